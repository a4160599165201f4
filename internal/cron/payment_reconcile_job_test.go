package cron

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bazaar-backend/internal/ledger"
	"github.com/angelmondragon/bazaar-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

func TestPaymentReconcileJobSkipsDiscardedCheckouts(t *testing.T) {
	conn := dbtest.Open(t)
	customer := dbtest.Customer(t, conn)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	attempt := func(id string, orderID uuid.UUID, createdAt time.Time) {
		t.Helper()
		gateway := enums.GatewayRazorpay
		ref := id
		txn := &models.Transaction{
			UserID:          customer.ID,
			Type:            enums.TransactionTypeGatewayPayment,
			Status:          enums.TransactionStatusPending,
			Amount:          decimal.RequireFromString("210.00"),
			OrderID:         &orderID,
			Gateway:         &gateway,
			MerchantOrderID: &ref,
			CreatedAt:       createdAt,
		}
		if err := conn.Create(txn).Error; err != nil {
			t.Fatalf("create attempt %s: %v", id, err)
		}
	}

	// abandoned checkouts whose temporary orders were already dropped
	for i := 0; i < 3; i++ {
		attempt(fmt.Sprintf("rzp-abandoned-%d", i), uuid.New(), base.Add(time.Duration(i)*time.Minute))
	}

	pendingCheckout := uuid.New()
	temp := &models.Order{
		OrderNumber:       "ORD-TEMP-0001",
		UserID:            customer.ID,
		PendingCheckoutID: &pendingCheckout,
		Status:            enums.OrderStatusPending,
		PaymentMethod:     enums.PaymentMethodRazorpay,
		PaymentStatus:     enums.PaymentStatusPending,
		Subtotal:          decimal.RequireFromString("130.00"),
		TotalAmount:       decimal.RequireFromString("210.00"),
		ShippingAddress:   dbtest.Address(),
		BillingAddress:    dbtest.Address(),
		Phone:             "9811111111",
	}
	if err := conn.Create(temp).Error; err != nil {
		t.Fatalf("create temporary order: %v", err)
	}
	attempt("rzp-live", temp.ID, base.Add(10*time.Minute))

	checker := &stubChecker{}
	jobIface, err := NewPaymentReconcileJob(PaymentReconcileJobParams{
		Logger:    logger.Nop(),
		Ledger:    ledger.NewRepository(conn),
		Payments:  checker,
		BatchSize: 2,
	})
	if err != nil {
		t.Fatalf("NewPaymentReconcileJob: %v", err)
	}
	job := jobIface.(*paymentReconcileJob)
	job.now = func() time.Time { return base.Add(time.Hour) }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(checker.inputs) != 1 || checker.inputs[0].MerchantOrderID != "rzp-live" {
		t.Fatalf("expected only the live attempt polled, got %+v", checker.inputs)
	}
}
