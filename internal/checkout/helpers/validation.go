package helpers

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/money"
)

// ValidateVendorStore confirms the store exists and is taking orders.
func ValidateVendorStore(id uuid.UUID, store *models.Store) error {
	if store == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("store %s not found", id))
	}
	if !store.IsActive {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("store %s is not active", store.Name))
	}
	if !store.IsOpened {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("store %s is closed", store.Name))
	}
	return nil
}

// Shortfall is how far a vendor's subtotal sits below its store minimum.
type Shortfall struct {
	StoreID   uuid.UUID `json:"store_id"`
	StoreName string    `json:"store_name"`
	Minimum   string    `json:"minimum_order_value"`
	Subtotal  string    `json:"subtotal"`
	Shortfall string    `json:"shortfall"`
}

// ValidateMinimumOrders rejects the whole checkout when any vendor subtotal is
// below that store's minimum order value. Every short vendor is reported.
func ValidateMinimumOrders(groups []VendorGroup, stores map[uuid.UUID]*models.Store) error {
	var short []Shortfall
	for _, group := range groups {
		store := stores[group.StoreID]
		if store == nil || !store.MinimumOrderValue.IsPositive() {
			continue
		}
		if group.Subtotal.GreaterThanOrEqual(store.MinimumOrderValue) {
			continue
		}
		gap := money.Round(store.MinimumOrderValue.Sub(group.Subtotal))
		short = append(short, Shortfall{
			StoreID:   store.ID,
			StoreName: store.Name,
			Minimum:   store.MinimumOrderValue.StringFixed(money.Places),
			Subtotal:  group.Subtotal.StringFixed(money.Places),
			Shortfall: gap.StringFixed(money.Places),
		})
	}
	if len(short) == 0 {
		return nil
	}
	first := short[0]
	msg := fmt.Sprintf("add %s more from %s to reach its minimum order value of %s", first.Shortfall, first.StoreName, first.Minimum)
	return pkgerrors.Rule(pkgerrors.ReasonMinimumOrderValue, msg).WithDetails(map[string]any{"shortfalls": short})
}
