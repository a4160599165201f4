package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

const (
	defaultNotificationRetention = 30 * 24 * time.Hour
	defaultNotificationBatch     = 500
	// caps one run so a large backlog drains over several cycles
	maxNotificationBatches = 20
)

// NotificationCleanupJobParams wires the read-notification purge.
type NotificationCleanupJobParams struct {
	Logger     *logger.Logger
	Repository notificationsCleanupRepo
	Retention  time.Duration
	BatchSize  int
}

type notificationsCleanupRepo interface {
	DeleteReadOlderThan(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultNotificationRetention
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultNotificationBatch
	}
	return &notificationCleanupJob{
		logg:      params.Logger,
		repo:      params.Repository,
		retention: retention,
		batch:     batch,
		now:       time.Now,
	}, nil
}

type notificationCleanupJob struct {
	logg      *logger.Logger
	repo      notificationsCleanupRepo
	retention time.Duration
	batch     int
	now       func() time.Time
}

func (j *notificationCleanupJob) Name() string { return "notification-cleanup" }

// Run deletes read notifications past retention in bounded batches. Unread
// rows are never touched.
func (j *notificationCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	var total int64
	rounds := 0
	for rounds < maxNotificationBatches {
		if err := ctx.Err(); err != nil {
			return err
		}
		deleted, err := j.repo.DeleteReadOlderThan(ctx, cutoff, j.batch)
		rounds++
		total += deleted
		if err != nil {
			return fmt.Errorf("notification cleanup after %d rows: %w", total, err)
		}
		if deleted < int64(j.batch) {
			break
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": total,
		"batches":      rounds,
	})
	j.logg.Info(logCtx, "notification cleanup complete")
	return nil
}
