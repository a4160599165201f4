package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/bazaar-backend/internal/settlement"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

const defaultSettlementBatch = 100

// SettlementSweepJobParams wires the delivered-order settlement retry.
type SettlementSweepJobParams struct {
	Logger    *logger.Logger
	Orders    unsettledLister
	Settler   orderSettler
	BatchSize int
}

type unsettledLister interface {
	ListUnsettled(ctx context.Context, limit int) ([]models.Order, error)
}

type orderSettler interface {
	Settle(ctx context.Context, orderID uuid.UUID) (*settlement.Result, error)
}

// NewSettlementSweepJob credits vendors for delivered orders whose inline
// settlement did not commit, e.g. when the process died right after the
// delivery transition.
func NewSettlementSweepJob(params SettlementSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Settler == nil {
		return nil, fmt.Errorf("settlement service required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultSettlementBatch
	}
	return &settlementSweepJob{
		logg:    params.Logger,
		orders:  params.Orders,
		settler: params.Settler,
		batch:   batch,
	}, nil
}

type settlementSweepJob struct {
	logg    *logger.Logger
	orders  unsettledLister
	settler orderSettler
	batch   int
}

func (j *settlementSweepJob) Name() string { return "settlement-sweep" }

func (j *settlementSweepJob) Run(ctx context.Context) error {
	rows, err := j.orders.ListUnsettled(ctx, j.batch)
	if err != nil {
		return fmt.Errorf("list unsettled orders: %w", err)
	}
	var settled, skipped int
	var errs error
	for _, order := range rows {
		result, err := j.settler.Settle(j.logg.WithOrderID(ctx, order.ID.String()), order.ID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("settle order %s: %w", order.ID, err))
			continue
		}
		if result.AlreadySettled {
			skipped++
			continue
		}
		settled++
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": len(rows),
		"settled":    settled,
		"skipped":    skipped,
		"failed":     len(multierr.Errors(errs)),
	})
	j.logg.Info(logCtx, "settlement sweep complete")
	return errs
}
