package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/bazaar-backend/internal/shipments"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

// TrackingSyncJobParams wires the shipment tracking poller.
type TrackingSyncJobParams struct {
	Logger    *logger.Logger
	Shipments trackingSyncer
	BatchSize int
}

type trackingSyncer interface {
	SyncTracking(ctx context.Context, limit int) (*shipments.SyncResult, error)
}

// NewTrackingSyncJob polls the courier aggregator for every in-flight AWB and
// moves orders forward.
func NewTrackingSyncJob(params TrackingSyncJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Shipments == nil {
		return nil, fmt.Errorf("shipments service required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = shipments.DefaultTrackingBatch
	}
	return &trackingSyncJob{
		logg:      params.Logger,
		shipments: params.Shipments,
		batch:     batch,
	}, nil
}

type trackingSyncJob struct {
	logg      *logger.Logger
	shipments trackingSyncer
	batch     int
}

func (j *trackingSyncJob) Name() string { return "tracking-sync" }

func (j *trackingSyncJob) Run(ctx context.Context) error {
	result, err := j.shipments.SyncTracking(ctx, j.batch)
	if result != nil {
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"checked": result.Checked,
			"updated": result.Updated,
			"settled": result.Settled,
			"failed":  result.Failed,
		})
		j.logg.Info(logCtx, "tracking sync complete")
	}
	if err != nil {
		return fmt.Errorf("tracking sync: %w", err)
	}
	return nil
}
