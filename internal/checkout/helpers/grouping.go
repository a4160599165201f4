package helpers

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bazaar-backend/pkg/money"
)

// Line is one cart line tagged with its owning store.
type Line struct {
	StoreID     uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	VariantKey  *string
	Quantity    int
	Price       decimal.Decimal
}

// Total is price × quantity at currency precision.
func (l Line) Total() decimal.Decimal {
	return money.Round(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
}

// VendorGroup holds one store's share of a checkout.
type VendorGroup struct {
	StoreID  uuid.UUID
	Lines    []Line
	Subtotal decimal.Decimal
}

// GroupLinesByStore partitions lines by store, keeping stores in the order
// they first appear in the cart.
func GroupLinesByStore(lines []Line) []VendorGroup {
	index := make(map[uuid.UUID]int, len(lines))
	groups := make([]VendorGroup, 0, len(lines))
	for _, line := range lines {
		pos, ok := index[line.StoreID]
		if !ok {
			pos = len(groups)
			index[line.StoreID] = pos
			groups = append(groups, VendorGroup{StoreID: line.StoreID, Subtotal: decimal.Zero})
		}
		groups[pos].Lines = append(groups[pos].Lines, line)
		groups[pos].Subtotal = groups[pos].Subtotal.Add(line.Total())
	}
	return groups
}

// StoreIDs lists the distinct stores of the groups.
func StoreIDs(groups []VendorGroup) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(groups))
	for _, group := range groups {
		ids = append(ids, group.StoreID)
	}
	return ids
}

// CheckoutTotal sums the vendor subtotals.
func CheckoutTotal(groups []VendorGroup) decimal.Decimal {
	total := decimal.Zero
	for _, group := range groups {
		total = total.Add(group.Subtotal)
	}
	return money.Round(total)
}
