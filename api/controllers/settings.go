package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bazaar-backend/api/responses"
	"github.com/angelmondragon/bazaar-backend/api/validators"
	"github.com/angelmondragon/bazaar-backend/internal/settings"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

type superSettingRequest struct {
	SalesCommission          decimal.Decimal `json:"sales_commission" validate:"gte=0,lte=100"`
	ShippingChargeCommission decimal.Decimal `json:"shipping_charge_commission" validate:"gte=0,lte=100"`
	BasicShippingCharge      decimal.Decimal `json:"basic_shipping_charge" validate:"gte=0"`
}

type courierRequest struct {
	ProviderCourierID int64  `json:"provider_courier_id" validate:"required,gte=1"`
	Name              string `json:"name" validate:"omitempty,max=120"`
	IsActive          bool   `json:"is_active"`
	Priority          int    `json:"priority" validate:"gte=0"`
}

// AdminGetSettings returns the platform commission and shipping settings.
func AdminGetSettings(svc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}
		current, err := svc.Current(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, settings.FromModel(current))
	}
}

// AdminCreateSettings creates the settings singleton; a second create conflicts.
func AdminCreateSettings(svc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return saveSettings(svc, logg, true)
}

func AdminUpdateSettings(svc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return saveSettings(svc, logg, false)
}

func saveSettings(svc settings.Service, logg *logger.Logger, create bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}
		var body superSettingRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := settings.Input{
			SalesCommission:          body.SalesCommission,
			ShippingChargeCommission: body.ShippingChargeCommission,
			BasicShippingCharge:      body.BasicShippingCharge,
		}

		var (
			saved *models.SuperSetting
			err   error
		)
		status := http.StatusOK
		if create {
			saved, err = svc.Create(r.Context(), input)
			status = http.StatusCreated
		} else {
			saved, err = svc.Update(r.Context(), input)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, status, settings.FromModel(saved))
	}
}

// ListCouriers returns every configured courier, or only active ones in
// booking order when active=true.
func ListCouriers(svc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}
		activeOnly, err := validators.ParseQueryBool(r, "active")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var list []models.GlobalCourier
		if activeOnly {
			list, err = svc.ActiveCouriers(r.Context())
		} else {
			list, err = svc.Couriers(r.Context())
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, settings.CouriersFromModels(list))
	}
}

func AdminSetCourier(svc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}
		var body courierRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		courier, err := svc.SetCourier(r.Context(), settings.CourierInput{
			ProviderCourierID: body.ProviderCourierID,
			Name:              body.Name,
			IsActive:          body.IsActive,
			Priority:          body.Priority,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, settings.CourierFromModel(courier))
	}
}
