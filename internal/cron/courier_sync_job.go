package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/bazaar-backend/internal/settings"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/logistics"
)

type CourierSyncJobParams struct {
	Logger   *logger.Logger
	Provider courierCatalogue
	Settings courierSyncer
}

type courierCatalogue interface {
	Couriers(ctx context.Context) ([]logistics.Courier, error)
}

type courierSyncer interface {
	SyncCouriers(ctx context.Context, catalogue []settings.ProviderCourier) (int, error)
}

func NewCourierSyncJob(params CourierSyncJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Provider == nil {
		return nil, fmt.Errorf("logistics provider required")
	}
	if params.Settings == nil {
		return nil, fmt.Errorf("settings service required")
	}
	return &courierSyncJob{
		logg:     params.Logger,
		provider: params.Provider,
		settings: params.Settings,
	}, nil
}

type courierSyncJob struct {
	logg     *logger.Logger
	provider courierCatalogue
	settings courierSyncer
}

func (j *courierSyncJob) Name() string { return "courier-sync" }

func (j *courierSyncJob) Run(ctx context.Context) error {
	couriers, err := j.provider.Couriers(ctx)
	if err != nil {
		return fmt.Errorf("fetch courier catalogue: %w", err)
	}
	catalogue := make([]settings.ProviderCourier, 0, len(couriers))
	for _, c := range couriers {
		if c.ID == 0 {
			continue
		}
		catalogue = append(catalogue, settings.ProviderCourier{ID: c.ID, Name: c.Name})
	}
	changed, err := j.settings.SyncCouriers(ctx, catalogue)
	if err != nil {
		return fmt.Errorf("sync couriers: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"catalogue_size": len(catalogue),
		"changed":        changed,
	})
	j.logg.Info(logCtx, "courier sync complete")
	return nil
}
