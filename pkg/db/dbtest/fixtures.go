package dbtest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/types"
)

// Merchant inserts a merchant user with the given wallet balance.
func Merchant(t *testing.T, conn *gorm.DB, balance string) *models.User {
	t.Helper()
	user := &models.User{
		Name:       "Merchant " + uuid.NewString()[:4],
		Phone:      phone(),
		IsMerchant: true,
		Balance:    decimal.RequireFromString(balance),
	}
	require.NoError(t, conn.Create(user).Error)
	return user
}

// Customer inserts a plain customer.
func Customer(t *testing.T, conn *gorm.DB) *models.User {
	t.Helper()
	user := &models.User{Name: "Customer", Phone: phone(), Balance: decimal.Zero}
	require.NoError(t, conn.Create(user).Error)
	return user
}

// Store inserts an active, opened store owned by owner.
func Store(t *testing.T, conn *gorm.DB, owner *models.User, minimum string) *models.Store {
	t.Helper()
	store := &models.Store{
		OwnerID:           owner.ID,
		Name:              "Store " + uuid.NewString()[:4],
		Address:           "12 MG Road, Bengaluru, Karnataka 560001",
		Phone:             "9800000000",
		MinimumOrderValue: decimal.RequireFromString(minimum),
		IsActive:          true,
		IsOpened:          true,
	}
	require.NoError(t, conn.Create(store).Error)
	return store
}

// Settings inserts the platform singleton.
func Settings(t *testing.T, conn *gorm.DB, salesPct, shippingPct, basicShipping string) *models.SuperSetting {
	t.Helper()
	setting := &models.SuperSetting{
		SalesCommission:          decimal.RequireFromString(salesPct),
		ShippingChargeCommission: decimal.RequireFromString(shippingPct),
		BasicShippingCharge:      decimal.RequireFromString(basicShipping),
	}
	require.NoError(t, conn.Create(setting).Error)
	return setting
}

// Order inserts a single-line order for store with the given status fields.
func Order(t *testing.T, conn *gorm.DB, customer *models.User, store *models.Store, subtotal string, method enums.PaymentMethod, status enums.OrderStatus, payment enums.PaymentStatus) *models.Order {
	t.Helper()
	amount := decimal.RequireFromString(subtotal)
	storeID := store.ID
	order := &models.Order{
		OrderNumber:     "ORD-TEST-" + uuid.NewString()[:8],
		UserID:          customer.ID,
		StoreID:         &storeID,
		Status:          status,
		PaymentMethod:   method,
		PaymentStatus:   payment,
		Subtotal:        amount,
		ShippingCost:    decimal.Zero,
		TotalAmount:     amount,
		ShippingAddress: Address(),
		BillingAddress:  Address(),
		Phone:           "9811111111",
		Items: []models.OrderItem{{
			ProductID:   uuid.New(),
			StoreID:     store.ID,
			ProductName: "Cotton Kurta",
			Quantity:    1,
			Price:       amount,
			Total:       amount,
		}},
	}
	require.NoError(t, conn.Create(order).Error)
	return order
}

// Address returns a deliverable test address.
func Address() types.Address {
	return types.Address{
		FullName: "Priya Sharma",
		Phone:    "9811111111",
		Line1:    "Flat 4B, Lake View Apartments",
		City:     "Pune",
		State:    "Maharashtra",
		Pincode:  "411001",
	}
}

func phone() string {
	return "9" + uuid.NewString()[:9]
}
