package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/bazaar-backend/internal/stores"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

type WarehouseRegistrationJobParams struct {
	Logger    *logger.Logger
	Stores    warehouseRegistrar
	BatchSize int
}

type warehouseRegistrar interface {
	RegisterPending(ctx context.Context, limit int) (*stores.RegistrationResult, error)
}

func NewWarehouseRegistrationJob(params WarehouseRegistrationJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Stores == nil {
		return nil, fmt.Errorf("stores service required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = stores.DefaultWarehouseBatch
	}
	return &warehouseRegistrationJob{
		logg:   params.Logger,
		stores: params.Stores,
		batch:  batch,
	}, nil
}

type warehouseRegistrationJob struct {
	logg   *logger.Logger
	stores warehouseRegistrar
	batch  int
}

func (j *warehouseRegistrationJob) Name() string { return "warehouse-registration" }

func (j *warehouseRegistrationJob) Run(ctx context.Context) error {
	result, err := j.stores.RegisterPending(ctx, j.batch)
	if result != nil && result.Checked > 0 {
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"checked":    result.Checked,
			"registered": result.Registered,
			"failed":     result.Failed,
		})
		j.logg.Info(logCtx, "warehouse registration complete")
	}
	if err != nil {
		return fmt.Errorf("warehouse registration: %w", err)
	}
	return nil
}
