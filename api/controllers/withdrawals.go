package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bazaar-backend/api/responses"
	"github.com/angelmondragon/bazaar-backend/api/validators"
	"github.com/angelmondragon/bazaar-backend/internal/ledger"
	"github.com/angelmondragon/bazaar-backend/internal/users"
	"github.com/angelmondragon/bazaar-backend/internal/withdrawals"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

type withdrawalCreateRequest struct {
	Amount           decimal.Decimal `json:"amount" validate:"gt=0"`
	PaymentSettingID *uuid.UUID      `json:"payment_setting_id,omitempty"`
}

type withdrawalReviewRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

// VendorCreateWithdrawal requests a cash-out against the available balance.
func VendorCreateWithdrawal(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "withdrawal service unavailable"))
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body withdrawalCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		withdrawal, err := svc.Create(r.Context(), withdrawals.CreateInput{
			MerchantID:       userID,
			Amount:           body.Amount,
			PaymentSettingID: body.PaymentSettingID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, withdrawals.FromModel(withdrawal))
	}
}

func VendorListWithdrawals(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "withdrawal service unavailable"))
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", defaultListLimit, 1, maxListLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListForMerchant(r.Context(), userID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, withdrawals.FromModels(list))
	}
}

// VendorWallet reports the wallet balance next to what can still be withdrawn.
func VendorWallet(svc withdrawals.Service, userSvc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || userSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet services unavailable"))
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := userSvc.Get(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		available, err := svc.Available(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, withdrawals.WalletDTO{Balance: user.Balance, Available: available})
	}
}

// WalletHistory lists the caller's ledger transactions newest first.
func WalletHistory(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", defaultListLimit, 1, maxListLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.History(r.Context(), userID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ledger.FromModels(list))
	}
}

// AdminListWithdrawals lists withdrawals by status, pending by default.
func AdminListWithdrawals(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "withdrawal service unavailable"))
			return
		}
		status := enums.WithdrawalStatusPending
		if raw := validators.Query(r, "status"); raw != "" {
			parsed, err := enums.ParseWithdrawalStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			status = parsed
		}
		limit, err := validators.ParseQueryInt(r, "limit", defaultListLimit, 1, maxListLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListByStatus(r.Context(), status, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, withdrawals.FromModels(list))
	}
}

// AdminApproveWithdrawal debits the merchant wallet and completes the request.
func AdminApproveWithdrawal(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return reviewWithdrawal(svc, logg, false)
}

// AdminRejectWithdrawal cancels a request; a reason is required.
func AdminRejectWithdrawal(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return reviewWithdrawal(svc, logg, true)
}

func reviewWithdrawal(svc withdrawals.Service, logg *logger.Logger, reject bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "withdrawal service unavailable"))
			return
		}
		reviewerID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		withdrawalID, err := validators.URLParamUUID(r, "withdrawalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := withdrawals.ReviewInput{WithdrawalID: withdrawalID, ReviewerID: reviewerID}
		var result *models.Withdrawal
		if reject {
			var body withdrawalReviewRequest
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.Reason = body.Reason
			result, err = svc.Reject(r.Context(), input)
		} else {
			result, err = svc.Approve(r.Context(), input)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, withdrawals.FromModel(result))
	}
}
