package checkout

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/orders"
	"github.com/angelmondragon/bazaar-backend/internal/settings"
	"github.com/angelmondragon/bazaar-backend/internal/stores"
	"github.com/angelmondragon/bazaar-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

type stubNotifier struct {
	owners []uuid.UUID
	result bool
}

func (n *stubNotifier) NotifyNewOrder(ctx context.Context, ownerID uuid.UUID, order *models.Order) bool {
	n.owners = append(n.owners, ownerID)
	return n.result
}

type fixture struct {
	conn     *gorm.DB
	svc      Service
	notifier *stubNotifier
	customer *models.User
	storeA   *models.Store
	storeB   *models.Store
}

func newFixture(t *testing.T, minimumB string) *fixture {
	t.Helper()
	client, conn := dbtest.Client(t)
	dbtest.Settings(t, conn, "10", "5", "40")
	settingsSvc, err := settings.NewService(settings.NewRepository(conn))
	require.NoError(t, err)

	notifier := &stubNotifier{result: true}
	svc, err := NewService(client, orders.NewRepository(conn), stores.NewRepository(conn), settingsSvc, notifier, nil)
	require.NoError(t, err)

	return &fixture{
		conn:     conn,
		svc:      svc,
		notifier: notifier,
		customer: dbtest.Customer(t, conn),
		storeA:   dbtest.Store(t, conn, dbtest.Merchant(t, conn, "0"), "0"),
		storeB:   dbtest.Store(t, conn, dbtest.Merchant(t, conn, "0"), minimumB),
	}
}

func (f *fixture) payload(method enums.PaymentMethod) Payload {
	return Payload{
		UserID: f.customer.ID,
		Items: []LineItem{
			{StoreID: f.storeA.ID, ProductID: uuid.New(), ProductName: "Cotton Kurta", Quantity: 2, Price: decimal.RequireFromString("25.00")},
			{StoreID: f.storeB.ID, ProductID: uuid.New(), ProductName: "Brass Diya", Quantity: 1, Price: decimal.RequireFromString("30.00")},
			{StoreID: f.storeA.ID, ProductID: uuid.New(), ProductName: "Silk Dupatta", Quantity: 1, Price: decimal.RequireFromString("50.00")},
		},
		ShippingAddress: dbtest.Address(),
		BillingAddress:  dbtest.Address(),
		Phone:           "9811111111",
		PaymentMethod:   method,
	}
}

func (f *fixture) countOrders(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.conn.Model(&models.Order{}).Count(&count).Error)
	return count
}

func TestSplitCheckoutCreatesOneOrderPerStore(t *testing.T) {
	f := newFixture(t, "0")

	created, err := f.svc.SplitCheckout(context.Background(), f.payload(enums.PaymentMethodCOD))
	require.NoError(t, err)
	require.Len(t, created, 2)

	first, second := created[0], created[1]
	assert.Equal(t, f.storeA.ID, *first.StoreID)
	assert.Equal(t, "100.00", first.Subtotal.StringFixed(2))
	assert.Equal(t, "100.00", first.TotalAmount.StringFixed(2))
	assert.True(t, first.ShippingCost.IsZero())
	assert.Len(t, first.Items, 2)

	assert.Equal(t, f.storeB.ID, *second.StoreID)
	assert.Equal(t, "30.00", second.Subtotal.StringFixed(2))
	assert.Equal(t, "30.00", second.TotalAmount.StringFixed(2))

	assert.NotEqual(t, first.OrderNumber, second.OrderNumber)
	for _, order := range created {
		assert.Equal(t, enums.OrderStatusPending, order.Status)
		assert.Equal(t, enums.PaymentStatusPending, order.PaymentStatus)
		assert.Equal(t, enums.PaymentMethodCOD, order.PaymentMethod)
	}

	assert.Equal(t, []uuid.UUID{f.storeA.OwnerID, f.storeB.OwnerID}, f.notifier.owners)
	assert.Equal(t, int64(2), f.countOrders(t))
}

func TestSplitCheckoutRejectsWholeCartBelowMinimum(t *testing.T) {
	f := newFixture(t, "50.00")

	_, err := f.svc.SplitCheckout(context.Background(), f.payload(enums.PaymentMethodCOD))
	require.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonMinimumOrderValue))
	assert.Contains(t, err.Error(), "20.00")

	assert.Zero(t, f.countOrders(t))
	assert.Empty(t, f.notifier.owners)
}

func TestSplitCheckoutNotificationFailureKeepsOrders(t *testing.T) {
	f := newFixture(t, "0")
	f.notifier.result = false

	created, err := f.svc.SplitCheckout(context.Background(), f.payload(enums.PaymentMethodCOD))
	require.NoError(t, err)
	assert.Len(t, created, 2)
	assert.Equal(t, int64(2), f.countOrders(t))
}

func TestSplitCheckoutValidation(t *testing.T) {
	f := newFixture(t, "0")
	ctx := context.Background()

	_, err := f.svc.SplitCheckout(ctx, f.payload(enums.PaymentMethodPhonePe))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	empty := f.payload(enums.PaymentMethodCOD)
	empty.Items = nil
	_, err = f.svc.SplitCheckout(ctx, empty)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	zeroQty := f.payload(enums.PaymentMethodCOD)
	zeroQty.Items[0].Quantity = 0
	_, err = f.svc.SplitCheckout(ctx, zeroQty)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	require.NoError(t, f.conn.Model(&models.Store{}).Where("id = ?", f.storeB.ID).Update("is_opened", false).Error)
	_, err = f.svc.SplitCheckout(ctx, f.payload(enums.PaymentMethodCOD))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	unknown := f.payload(enums.PaymentMethodCOD)
	unknown.Items[1].StoreID = uuid.New()
	_, err = f.svc.SplitCheckout(ctx, unknown)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	assert.Zero(t, f.countOrders(t))
}

func TestCreatePendingCheckoutAddsShippingPerVendor(t *testing.T) {
	f := newFixture(t, "0")

	temp, err := f.svc.CreatePendingCheckout(context.Background(), f.payload(enums.PaymentMethodPhonePe))
	require.NoError(t, err)
	require.True(t, temp.IsTemporary())
	assert.Equal(t, "130.00", temp.Subtotal.StringFixed(2))
	assert.Equal(t, "80.00", temp.ShippingCost.StringFixed(2))
	assert.Equal(t, "210.00", temp.TotalAmount.StringFixed(2))
	assert.Equal(t, enums.PaymentStatusPending, temp.PaymentStatus)

	var pending models.PendingCheckout
	require.NoError(t, f.conn.First(&pending, "id = ?", *temp.PendingCheckoutID).Error)
	assert.Equal(t, 2, pending.VendorCount)
	assert.Len(t, pending.Items, 3)
	assert.Empty(t, f.notifier.owners)
}

func TestCreatePendingCheckoutRejectsCOD(t *testing.T) {
	f := newFixture(t, "0")
	_, err := f.svc.CreatePendingCheckout(context.Background(), f.payload(enums.PaymentMethodCOD))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSplitPendingRebuildsVendorOrders(t *testing.T) {
	f := newFixture(t, "0")
	ctx := context.Background()

	temp, err := f.svc.CreatePendingCheckout(ctx, f.payload(enums.PaymentMethodRazorpay))
	require.NoError(t, err)
	temp.PaymentStatus = enums.PaymentStatusSuccess

	var created []models.Order
	require.NoError(t, f.conn.Transaction(func(tx *gorm.DB) error {
		var err error
		created, err = f.svc.SplitPending(ctx, tx, temp)
		return err
	}))
	require.Len(t, created, 2)
	assert.Equal(t, "100.00", created[0].TotalAmount.StringFixed(2))
	assert.Equal(t, "30.00", created[1].TotalAmount.StringFixed(2))
	for _, order := range created {
		assert.Equal(t, enums.OrderStatusConfirmed, order.Status)
		assert.Equal(t, enums.PaymentStatusSuccess, order.PaymentStatus)
		assert.Equal(t, enums.PaymentMethodRazorpay, order.PaymentMethod)
		assert.Equal(t, "Pune", order.ShippingAddress.City)
	}

	f.svc.NotifyVendors(ctx, created)
	assert.Len(t, f.notifier.owners, 2)
}

func TestSplitPendingRequiresTemporaryOrder(t *testing.T) {
	f := newFixture(t, "0")
	order := dbtest.Order(t, f.conn, f.customer, f.storeA, "10", enums.PaymentMethodPhonePe, enums.OrderStatusPending, enums.PaymentStatusSuccess)

	err := f.conn.Transaction(func(tx *gorm.DB) error {
		_, err := f.svc.SplitPending(context.Background(), tx, order)
		return err
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.SplitPending(context.Background(), nil, order)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConsistency))
}
