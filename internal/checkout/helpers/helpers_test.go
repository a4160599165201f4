package helpers

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

func TestGroupLinesByStore(t *testing.T) {
	t.Parallel()
	storeA := uuid.New()
	storeB := uuid.New()
	lines := []Line{
		{StoreID: storeA, Quantity: 2, Price: decimal.RequireFromString("25.00")},
		{StoreID: storeB, Quantity: 1, Price: decimal.RequireFromString("30.00")},
		{StoreID: storeA, Quantity: 1, Price: decimal.RequireFromString("50.00")},
	}

	groups := GroupLinesByStore(lines)
	if len(groups) != 2 {
		t.Fatalf("expected 2 vendors, got %d", len(groups))
	}
	if groups[0].StoreID != storeA || len(groups[0].Lines) != 2 {
		t.Fatalf("expected first group to be store A with 2 lines, got %+v", groups[0])
	}
	if got := groups[0].Subtotal.StringFixed(2); got != "100.00" {
		t.Fatalf("expected subtotal 100.00, got %s", got)
	}
	if got := groups[1].Subtotal.StringFixed(2); got != "30.00" {
		t.Fatalf("expected subtotal 30.00, got %s", got)
	}
	if got := CheckoutTotal(groups).StringFixed(2); got != "130.00" {
		t.Fatalf("expected total 130.00, got %s", got)
	}
}

func TestLineTotalRoundsToPaise(t *testing.T) {
	t.Parallel()
	line := Line{Quantity: 3, Price: decimal.RequireFromString("33.335")}
	if got := line.Total().StringFixed(2); got != "100.01" {
		t.Fatalf("expected 100.01, got %s", got)
	}
}

func TestValidateVendorStore(t *testing.T) {
	t.Parallel()
	id := uuid.New()
	if err := ValidateVendorStore(id, nil); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	closed := &models.Store{ID: id, Name: "Chai Point", IsActive: true}
	if err := ValidateVendorStore(id, closed); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for closed store, got %v", err)
	}
	closed.IsOpened = true
	if err := ValidateVendorStore(id, closed); err != nil {
		t.Fatalf("expected open store to pass, got %v", err)
	}
}

func TestValidateMinimumOrdersReportsShortfall(t *testing.T) {
	t.Parallel()
	storeA := &models.Store{ID: uuid.New(), Name: "A", MinimumOrderValue: decimal.RequireFromString("50")}
	storeB := &models.Store{ID: uuid.New(), Name: "B", MinimumOrderValue: decimal.RequireFromString("200")}
	stores := map[uuid.UUID]*models.Store{storeA.ID: storeA, storeB.ID: storeB}
	groups := []VendorGroup{
		{StoreID: storeA.ID, Subtotal: decimal.RequireFromString("100")},
		{StoreID: storeB.ID, Subtotal: decimal.RequireFromString("30")},
	}

	err := ValidateMinimumOrders(groups, stores)
	if !pkgerrors.HasReason(err, pkgerrors.ReasonMinimumOrderValue) {
		t.Fatalf("expected minimum order violation, got %v", err)
	}
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	if !ok {
		t.Fatalf("expected map details, got %T", pkgerrors.As(err).Details())
	}
	short := details["shortfalls"].([]Shortfall)
	if len(short) != 1 || short[0].Shortfall != "170.00" {
		t.Fatalf("expected one shortfall of 170.00, got %+v", short)
	}

	groups[1].Subtotal = decimal.RequireFromString("200")
	if err := ValidateMinimumOrders(groups, stores); err != nil {
		t.Fatalf("expected subtotal at the minimum to pass, got %v", err)
	}
}
