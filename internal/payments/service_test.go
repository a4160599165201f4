package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/checkout"
	"github.com/angelmondragon/bazaar-backend/internal/ledger"
	"github.com/angelmondragon/bazaar-backend/internal/orders"
	"github.com/angelmondragon/bazaar-backend/internal/settings"
	"github.com/angelmondragon/bazaar-backend/internal/stores"
	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/gateways/razorpay"
)

type stubGateway struct {
	name        enums.Gateway
	initiateFn  func(ctx context.Context, req InitiateRequest) (*Initiation, error)
	statusFn    func(ctx context.Context, txn *models.Transaction) (*Outcome, error)
	callbackFn  func(ctx context.Context, cb Callback) (*CallbackResult, error)
	statusCalls int
	lastRequest InitiateRequest
}

func (g *stubGateway) Name() enums.Gateway { return g.name }

func (g *stubGateway) NewMerchantOrderID(time.Time) string {
	return "stub-" + uuid.NewString()[:8]
}

func (g *stubGateway) Initiate(ctx context.Context, req InitiateRequest) (*Initiation, error) {
	g.lastRequest = req
	if g.initiateFn != nil {
		return g.initiateFn(ctx, req)
	}
	return &Initiation{GatewayRef: "order_ref_1", RedirectURL: "https://pay.test/checkout"}, nil
}

func (g *stubGateway) Status(ctx context.Context, txn *models.Transaction) (*Outcome, error) {
	g.statusCalls++
	if g.statusFn != nil {
		return g.statusFn(ctx, txn)
	}
	return &Outcome{State: StatePending}, nil
}

func (g *stubGateway) ParseCallback(ctx context.Context, cb Callback) (*CallbackResult, error) {
	if g.callbackFn != nil {
		return g.callbackFn(ctx, cb)
	}
	return nil, errors.New("not implemented")
}

type stubNotifier struct {
	owners []uuid.UUID
}

func (n *stubNotifier) NotifyNewOrder(ctx context.Context, ownerID uuid.UUID, order *models.Order) bool {
	n.owners = append(n.owners, ownerID)
	return true
}

type fixture struct {
	client   *db.Client
	conn     *gorm.DB
	svc      Service
	gateway  *stubGateway
	notifier *stubNotifier
	checkout checkout.Service
	customer *models.User
	storeA   *models.Store
	storeB   *models.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client, conn := dbtest.Client(t)
	dbtest.Settings(t, conn, "10", "5", "40")
	settingsSvc, err := settings.NewService(settings.NewRepository(conn))
	require.NoError(t, err)

	notifier := &stubNotifier{}
	ordersRepo := orders.NewRepository(conn)
	checkoutSvc, err := checkout.NewService(client, ordersRepo, stores.NewRepository(conn), settingsSvc, notifier, nil)
	require.NoError(t, err)

	gateway := &stubGateway{name: enums.GatewayRazorpay}
	svc, err := NewService(client, ordersRepo, ledger.NewRepository(conn), checkoutSvc, "https://bazaar.test/", nil, nil, gateway)
	require.NoError(t, err)

	return &fixture{
		client:   client,
		conn:     conn,
		svc:      svc,
		gateway:  gateway,
		notifier: notifier,
		checkout: checkoutSvc,
		customer: dbtest.Customer(t, conn),
		storeA:   dbtest.Store(t, conn, dbtest.Merchant(t, conn, "0"), "0"),
		storeB:   dbtest.Store(t, conn, dbtest.Merchant(t, conn, "0"), "0"),
	}
}

// tempOrder creates a 100 + 30 checkout across two stores; with 40 basic
// shipping per vendor the temporary order totals 210.00.
func (f *fixture) tempOrder(t *testing.T) *models.Order {
	t.Helper()
	temp, err := f.checkout.CreatePendingCheckout(context.Background(), checkout.Payload{
		UserID: f.customer.ID,
		Items: []checkout.LineItem{
			{StoreID: f.storeA.ID, ProductID: uuid.New(), ProductName: "Cotton Kurta", Quantity: 4, Price: decimal.RequireFromString("25.00")},
			{StoreID: f.storeB.ID, ProductID: uuid.New(), ProductName: "Brass Diya", Quantity: 1, Price: decimal.RequireFromString("30.00")},
		},
		ShippingAddress: dbtest.Address(),
		BillingAddress:  dbtest.Address(),
		Phone:           "9811111111",
		PaymentMethod:   enums.PaymentMethodRazorpay,
	})
	require.NoError(t, err)
	return temp
}

func (f *fixture) initiate(t *testing.T) (*models.Order, *Initiation) {
	t.Helper()
	temp := f.tempOrder(t)
	init, err := f.svc.Initiate(context.Background(), InitiateInput{UserID: f.customer.ID, OrderID: temp.ID})
	require.NoError(t, err)
	return temp, init
}

func (f *fixture) transaction(t *testing.T, merchantOrderID string) models.Transaction {
	t.Helper()
	var txn models.Transaction
	require.NoError(t, f.conn.Where("merchant_order_id = ?", merchantOrderID).First(&txn).Error)
	return txn
}

func (f *fixture) vendorOrders(t *testing.T) []models.Order {
	t.Helper()
	var rows []models.Order
	require.NoError(t, f.conn.Where("store_id IS NOT NULL").Order("subtotal DESC").Find(&rows).Error)
	return rows
}

func completed(utr string) Outcome {
	return Outcome{State: StateCompleted, Raw: "captured", AmountPaise: 21000, Details: Details{UTR: utr, VPA: "priya@upi", BankID: "HDFC"}}
}

func TestInitiateRecordsPendingAttempt(t *testing.T) {
	f := newFixture(t)
	temp, init := f.initiate(t)

	assert.Equal(t, enums.GatewayRazorpay, init.Gateway)
	assert.Equal(t, temp.ID, init.OrderID)
	assert.Equal(t, "210.00", init.Amount.StringFixed(2))
	assert.Equal(t, int64(21000), f.gateway.lastRequest.AmountPaise)
	assert.Equal(t, "https://bazaar.test/api/v1/webhooks/razorpay", f.gateway.lastRequest.CallbackURL)

	txn := f.transaction(t, init.MerchantOrderID)
	assert.Equal(t, enums.TransactionTypeGatewayPayment, txn.Type)
	assert.Equal(t, enums.TransactionStatusPending, txn.Status)
	require.NotNil(t, txn.GatewayRef)
	assert.Equal(t, "order_ref_1", *txn.GatewayRef)
	require.NotNil(t, txn.OrderID)
	assert.Equal(t, temp.ID, *txn.OrderID)
}

func TestInitiateClosesAttemptWhenGatewayFails(t *testing.T) {
	f := newFixture(t)
	f.gateway.initiateFn = func(context.Context, InitiateRequest) (*Initiation, error) {
		return nil, errors.New("connection reset")
	}
	temp := f.tempOrder(t)

	_, err := f.svc.Initiate(context.Background(), InitiateInput{UserID: f.customer.ID, OrderID: temp.ID})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	var txn models.Transaction
	require.NoError(t, f.conn.Where("order_id = ?", temp.ID).First(&txn).Error)
	assert.Equal(t, enums.TransactionStatusFailed, txn.Status)
}

func TestInitiateRejectsForeignOrUnknownGateway(t *testing.T) {
	f := newFixture(t)
	temp := f.tempOrder(t)

	_, err := f.svc.Initiate(context.Background(), InitiateInput{UserID: uuid.New(), OrderID: temp.ID})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.Initiate(context.Background(), InitiateInput{UserID: f.customer.ID, OrderID: temp.ID, Gateway: enums.GatewayPhonePe})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestReconcileCompletedSplitsOnce(t *testing.T) {
	f := newFixture(t)
	temp, init := f.initiate(t)
	ctx := context.Background()

	result, err := f.svc.Reconcile(ctx, init.MerchantOrderID, completed("UTR123"))
	require.NoError(t, err)
	require.False(t, result.AlreadyFinal)
	require.Len(t, result.Orders, 2)
	assert.Len(t, f.notifier.owners, 2)

	vendor := f.vendorOrders(t)
	require.Len(t, vendor, 2)
	assert.Equal(t, "100.00", vendor[0].Subtotal.StringFixed(2))
	assert.Equal(t, "30.00", vendor[1].Subtotal.StringFixed(2))
	for _, order := range vendor {
		assert.Equal(t, enums.OrderStatusConfirmed, order.Status)
		assert.Equal(t, enums.PaymentStatusSuccess, order.PaymentStatus)
	}

	txn := f.transaction(t, init.MerchantOrderID)
	assert.Equal(t, enums.TransactionStatusCompleted, txn.Status)
	require.NotNil(t, txn.UTR)
	assert.Equal(t, "UTR123", *txn.UTR)
	require.NotNil(t, txn.OrderID)
	assert.Equal(t, result.Orders[0].ID, *txn.OrderID)

	var reloaded models.Order
	require.NoError(t, f.conn.First(&reloaded, "id = ?", temp.ID).Error)
	assert.Equal(t, enums.PaymentStatusSuccess, reloaded.PaymentStatus)
	assert.Equal(t, enums.OrderStatusConfirmed, reloaded.Status)

	again, err := f.svc.Reconcile(ctx, init.MerchantOrderID, completed("UTR123"))
	require.NoError(t, err)
	assert.True(t, again.AlreadyFinal)
	assert.Empty(t, again.Orders)
	assert.Len(t, f.vendorOrders(t), 2)
	assert.Len(t, f.notifier.owners, 2)

	var attempts int64
	require.NoError(t, f.conn.Model(&models.Transaction{}).Count(&attempts).Error)
	assert.Equal(t, int64(1), attempts)
}

func TestReconcileFailedDeletesTemporaryOrder(t *testing.T) {
	f := newFixture(t)
	temp, init := f.initiate(t)
	ctx := context.Background()

	result, err := f.svc.Reconcile(ctx, init.MerchantOrderID, Outcome{Raw: "DECLINED"})
	require.NoError(t, err)
	assert.Equal(t, StateFailed, result.State)
	assert.Equal(t, enums.TransactionStatusFailed, f.transaction(t, init.MerchantOrderID).Status)

	var orderCount, pendingCount int64
	require.NoError(t, f.conn.Model(&models.Order{}).Where("id = ?", temp.ID).Count(&orderCount).Error)
	require.NoError(t, f.conn.Model(&models.PendingCheckout{}).Count(&pendingCount).Error)
	assert.Zero(t, orderCount)
	assert.Zero(t, pendingCount)

	again, err := f.svc.Reconcile(ctx, init.MerchantOrderID, Outcome{State: StateFailed})
	require.NoError(t, err)
	assert.True(t, again.AlreadyFinal)

	_, err = f.svc.Reconcile(ctx, init.MerchantOrderID, completed("UTR9"))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConsistency))
}

func TestReconcilePendingDeletesTemporaryOrder(t *testing.T) {
	f := newFixture(t)
	temp, init := f.initiate(t)

	result, err := f.svc.Reconcile(context.Background(), init.MerchantOrderID, Outcome{Raw: "AUTHORIZED"})
	require.NoError(t, err)
	assert.Equal(t, StatePending, result.State)
	assert.Equal(t, enums.TransactionStatusPending, f.transaction(t, init.MerchantOrderID).Status)

	var count int64
	require.NoError(t, f.conn.Model(&models.Order{}).Where("id = ?", temp.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestReconcileAmountMismatchChangesNothing(t *testing.T) {
	f := newFixture(t)
	_, init := f.initiate(t)

	outcome := completed("UTR1")
	outcome.AmountPaise = 100
	_, err := f.svc.Reconcile(context.Background(), init.MerchantOrderID, outcome)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConsistency))

	assert.Equal(t, enums.TransactionStatusPending, f.transaction(t, init.MerchantOrderID).Status)
	assert.Empty(t, f.vendorOrders(t))
}

func TestReconcileSplitFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	temp, init := f.initiate(t)
	require.NoError(t, f.conn.Delete(&models.Store{}, "id = ?", f.storeB.ID).Error)

	_, err := f.svc.Reconcile(context.Background(), init.MerchantOrderID, completed("UTR1"))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConsistency))

	assert.Equal(t, enums.TransactionStatusPending, f.transaction(t, init.MerchantOrderID).Status)
	assert.Empty(t, f.vendorOrders(t))
	var reloaded models.Order
	require.NoError(t, f.conn.First(&reloaded, "id = ?", temp.ID).Error)
	assert.Equal(t, enums.PaymentStatusPending, reloaded.PaymentStatus)
	assert.Empty(t, f.notifier.owners)
}

func TestReconcileUnknownAttempt(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Reconcile(context.Background(), "missing", completed("x"))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.Reconcile(context.Background(), " ", completed("x"))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCheckStatusPollsUntilCompleted(t *testing.T) {
	f := newFixture(t)
	_, init := f.initiate(t)
	f.gateway.statusFn = func(_ context.Context, txn *models.Transaction) (*Outcome, error) {
		require.NotNil(t, txn.GatewayRef)
		outcome := completed("UTR7")
		return &outcome, nil
	}
	ctx := context.Background()

	result, err := f.svc.CheckStatus(ctx, CheckInput{UserID: f.customer.ID, MerchantOrderID: init.MerchantOrderID})
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, result.State)
	assert.Len(t, result.Orders, 2)

	again, err := f.svc.CheckStatus(ctx, CheckInput{MerchantOrderID: init.MerchantOrderID})
	require.NoError(t, err)
	assert.True(t, again.AlreadyFinal)
	assert.Equal(t, 1, f.gateway.statusCalls)

	_, err = f.svc.CheckStatus(ctx, CheckInput{UserID: uuid.New(), MerchantOrderID: init.MerchantOrderID})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestHandleCallbackResolvesGatewayReference(t *testing.T) {
	f := newFixture(t)
	_, init := f.initiate(t)
	f.gateway.callbackFn = func(_ context.Context, cb Callback) (*CallbackResult, error) {
		assert.Equal(t, "sig", cb.Signature)
		return &CallbackResult{GatewayRef: "order_ref_1", Outcome: completed("UTR5")}, nil
	}

	result, err := f.svc.HandleCallback(context.Background(), enums.GatewayRazorpay, Callback{Signature: "sig", Body: []byte(`{}`)})
	require.NoError(t, err)
	assert.Equal(t, init.MerchantOrderID, result.MerchantOrderID)
	assert.Equal(t, StateCompleted, result.State)

	_, err = f.svc.HandleCallback(context.Background(), enums.GatewaySabPaisa, Callback{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestRazorpayAuthorizedWebhookKeepsCheckoutForCapture(t *testing.T) {
	f := newFixture(t)
	api := &stubRazorpay{payments: map[string]*razorpay.Payment{}}
	svc, err := NewService(f.client, orders.NewRepository(f.conn), ledger.NewRepository(f.conn), f.checkout, "https://bazaar.test", nil, nil, NewRazorpayGateway(api))
	require.NoError(t, err)
	ctx := context.Background()

	temp := f.tempOrder(t)
	init, err := svc.Initiate(ctx, InitiateInput{UserID: f.customer.ID, OrderID: temp.ID})
	require.NoError(t, err)

	api.event = "payment.authorized"
	api.payments["pay_1"] = &razorpay.Payment{ID: "pay_1", OrderID: init.GatewayRef, Status: "authorized", Amount: 21000, Currency: "INR"}
	result, err := svc.HandleCallback(ctx, enums.GatewayRazorpay, Callback{Signature: "sig", Body: []byte(`{"event":"payment.authorized"}`)})
	require.NoError(t, err)
	assert.True(t, result.Ignored)
	assert.Equal(t, init.MerchantOrderID, result.MerchantOrderID)
	assert.Equal(t, enums.TransactionStatusPending, f.transaction(t, init.MerchantOrderID).Status)

	var count int64
	require.NoError(t, f.conn.Model(&models.Order{}).Where("id = ?", temp.ID).Count(&count).Error)
	require.Equal(t, int64(1), count)

	api.event = "payment.captured"
	captured := capturedPayment("pay_1")
	captured.OrderID = init.GatewayRef
	api.payments["pay_1"] = captured
	result, err = svc.HandleCallback(ctx, enums.GatewayRazorpay, Callback{Signature: "sig", Body: []byte(`{"event":"payment.captured"}`)})
	require.NoError(t, err)
	assert.False(t, result.Ignored)
	assert.Equal(t, StateCompleted, result.State)
	assert.Len(t, result.Orders, 2)
	assert.Len(t, f.vendorOrders(t), 2)
	assert.Equal(t, enums.TransactionStatusCompleted, f.transaction(t, init.MerchantOrderID).Status)
}

func TestHandleCallbackPendingLeavesAttemptOpen(t *testing.T) {
	f := newFixture(t)
	temp, init := f.initiate(t)
	f.gateway.callbackFn = func(context.Context, Callback) (*CallbackResult, error) {
		return &CallbackResult{MerchantOrderID: init.MerchantOrderID, Outcome: Outcome{Raw: "PAYMENT_PENDING"}}, nil
	}

	result, err := f.svc.HandleCallback(context.Background(), enums.GatewayRazorpay, Callback{Body: []byte(`{}`)})
	require.NoError(t, err)
	assert.True(t, result.Ignored)
	assert.Equal(t, StatePending, result.State)

	var count int64
	require.NoError(t, f.conn.Model(&models.Order{}).Where("id = ?", temp.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDiscardedAttemptsLeaveThePendingListing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, init := f.initiate(t)
		result, err := f.svc.CheckStatus(ctx, CheckInput{MerchantOrderID: init.MerchantOrderID})
		require.NoError(t, err)
		require.Equal(t, StatePending, result.State)
	}
	_, live := f.initiate(t)

	rows, err := ledger.NewRepository(f.conn).ListPendingGatewayPayments(ctx, time.Now().Add(time.Hour), 2)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].MerchantOrderID)
	assert.Equal(t, live.MerchantOrderID, *rows[0].MerchantOrderID)
}
