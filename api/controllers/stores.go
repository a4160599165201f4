package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bazaar-backend/api/responses"
	"github.com/angelmondragon/bazaar-backend/api/validators"
	"github.com/angelmondragon/bazaar-backend/internal/stores"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

type storeCreateRequest struct {
	Name              string          `json:"name" validate:"required,max=200"`
	Address           string          `json:"address" validate:"required,max=500"`
	Phone             string          `json:"phone" validate:"required,min=10,max=15"`
	MinimumOrderValue decimal.Decimal `json:"minimum_order_value" validate:"gte=0"`
}

type storeUpdateRequest struct {
	Name              *string          `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Address           *string          `json:"address,omitempty" validate:"omitempty,min=1,max=500"`
	Phone             *string          `json:"phone,omitempty" validate:"omitempty,min=10,max=15"`
	MinimumOrderValue *decimal.Decimal `json:"minimum_order_value,omitempty" validate:"omitempty,gte=0"`
	IsOpened          *bool            `json:"is_opened,omitempty"`
}

func (r storeUpdateRequest) toInput() stores.UpdateStoreInput {
	return stores.UpdateStoreInput{
		Name:              r.Name,
		Address:           r.Address,
		Phone:             r.Phone,
		MinimumOrderValue: r.MinimumOrderValue,
		IsOpened:          r.IsOpened,
	}
}

// CreateStore opens a store for the calling merchant. Warehouse registration
// with the logistics provider happens asynchronously.
func CreateStore(svc stores.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "store service unavailable"))
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body storeCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		store, err := svc.Create(r.Context(), stores.CreateStoreInput{
			OwnerID:           userID,
			Name:              body.Name,
			Address:           body.Address,
			Phone:             body.Phone,
			MinimumOrderValue: body.MinimumOrderValue,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, store)
	}
}

// MyStores lists the stores owned by the caller.
func MyStores(svc stores.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "store service unavailable"))
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListMine(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if list == nil {
			list = []stores.StoreDTO{}
		}
		responses.WriteSuccess(w, list)
	}
}

// StoreProfile returns the store resolved for the vendor request.
func StoreProfile(svc stores.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "store service unavailable"))
			return
		}
		storeID, err := storeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		profile, err := svc.GetByID(r.Context(), storeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

// StoreUpdate adjusts the mutable fields of the vendor store.
func StoreUpdate(svc stores.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "store service unavailable"))
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		storeID, err := storeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload storeUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profile, err := svc.Update(r.Context(), userID, storeID, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

// RegisterStoreWarehouse retries pickup warehouse registration for the
// vendor store.
func RegisterStoreWarehouse(svc stores.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "store service unavailable"))
			return
		}
		storeID, err := storeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		profile, err := svc.RegisterWarehouse(r.Context(), storeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}
