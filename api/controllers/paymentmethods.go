package controllers

import (
	"net/http"

	"github.com/angelmondragon/bazaar-backend/api/responses"
	"github.com/angelmondragon/bazaar-backend/api/validators"
	"github.com/angelmondragon/bazaar-backend/internal/paymentmethods"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

type paymentMethodReviewRequest struct {
	Status enums.ReviewStatus `json:"status" validate:"required"`
}

func ListPaymentMethods(svc paymentmethods.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment method service unavailable"))
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.List(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, paymentmethods.FromModels(list))
	}
}

// CreatePaymentMethod stores a payout destination pending admin review.
func CreatePaymentMethod(svc paymentmethods.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment method service unavailable"))
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body paymentmethods.SaveInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		setting, err := svc.Create(r.Context(), userID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, paymentmethods.FromModel(setting))
	}
}

// UpdatePaymentMethod edits a destination that has not been approved yet.
func UpdatePaymentMethod(svc paymentmethods.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment method service unavailable"))
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.URLParamUUID(r, "paymentMethodId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body paymentmethods.SaveInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		setting, err := svc.Update(r.Context(), userID, id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, paymentmethods.FromModel(setting))
	}
}

func DeletePaymentMethod(svc paymentmethods.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment method service unavailable"))
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.URLParamUUID(r, "paymentMethodId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), userID, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}

// AdminReviewPaymentMethod approves or rejects a merchant payout destination.
func AdminReviewPaymentMethod(svc paymentmethods.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment method service unavailable"))
			return
		}
		id, err := validators.URLParamUUID(r, "paymentMethodId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body paymentMethodReviewRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !body.Status.IsValid() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid review status"))
			return
		}
		setting, err := svc.Review(r.Context(), id, body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, paymentmethods.FromModel(setting))
	}
}
