package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/bazaar-backend/internal/payments"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

const (
	defaultPaymentGrace = 15 * time.Minute
	defaultPaymentBatch = 50
)

// PaymentReconcileJobParams wires the stale payment poller.
type PaymentReconcileJobParams struct {
	Logger    *logger.Logger
	Ledger    pendingPaymentLister
	Payments  paymentChecker
	Grace     time.Duration
	BatchSize int
}

type pendingPaymentLister interface {
	ListPendingGatewayPayments(ctx context.Context, before time.Time, limit int) ([]models.Transaction, error)
}

type paymentChecker interface {
	CheckStatus(ctx context.Context, input payments.CheckInput) (*payments.Result, error)
}

// NewPaymentReconcileJob polls gateways for attempts whose callback never
// arrived. Attempts younger than the grace period are left to the callback.
func NewPaymentReconcileJob(params PaymentReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payments service required")
	}
	grace := params.Grace
	if grace <= 0 {
		grace = defaultPaymentGrace
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultPaymentBatch
	}
	return &paymentReconcileJob{
		logg:     params.Logger,
		ledger:   params.Ledger,
		payments: params.Payments,
		grace:    grace,
		batch:    batch,
		now:      time.Now,
	}, nil
}

type paymentReconcileJob struct {
	logg     *logger.Logger
	ledger   pendingPaymentLister
	payments paymentChecker
	grace    time.Duration
	batch    int
	now      func() time.Time
}

func (j *paymentReconcileJob) Name() string { return "payment-reconcile" }

func (j *paymentReconcileJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.grace)
	rows, err := j.ledger.ListPendingGatewayPayments(ctx, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("list pending payments: %w", err)
	}
	counts := map[payments.State]int{}
	var errs error
	for _, txn := range rows {
		if txn.MerchantOrderID == nil {
			continue
		}
		merchantOrderID := *txn.MerchantOrderID
		result, err := j.payments.CheckStatus(j.logg.WithMerchantOrderID(ctx, merchantOrderID), payments.CheckInput{
			MerchantOrderID: merchantOrderID,
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("check %s: %w", merchantOrderID, err))
			continue
		}
		counts[result.State]++
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":    cutoff,
		"checked":   len(rows),
		"completed": counts[payments.StateCompleted],
		"failed":    counts[payments.StateFailed],
		"pending":   counts[payments.StatePending],
		"errors":    len(multierr.Errors(errs)),
	})
	j.logg.Info(logCtx, "payment reconcile complete")
	return errs
}
