package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/api/responses"
	"github.com/angelmondragon/bazaar-backend/api/validators"
	"github.com/angelmondragon/bazaar-backend/internal/payments"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

type initiatePaymentRequest struct {
	OrderID uuid.UUID     `json:"order_id" validate:"required"`
	Gateway enums.Gateway `json:"gateway" validate:"required"`
}

// InitiatePayment starts a new gateway attempt for an unpaid temporary order.
func InitiatePayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body initiatePaymentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !body.Gateway.IsValid() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unsupported gateway"))
			return
		}

		initiation, err := svc.Initiate(r.Context(), payments.InitiateInput{
			UserID:  userID,
			OrderID: body.OrderID,
			Gateway: body.Gateway,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, initiation)
	}
}

// PaymentStatus polls the gateway for the caller's attempt and reconciles it.
func PaymentStatus(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		merchantOrderID, err := validators.RequireQuery(r, "merchant_order_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CheckStatus(r.Context(), payments.CheckInput{
			UserID:          userID,
			MerchantOrderID: merchantOrderID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payments.ResultFromModel(result))
	}
}
