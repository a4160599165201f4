package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

type fakeNotificationRepo struct {
	batches []int64
	err     error
	cutoffs []time.Time
	limits  []int
}

func (f *fakeNotificationRepo) DeleteReadOlderThan(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	f.cutoffs = append(f.cutoffs, cutoff)
	f.limits = append(f.limits, limit)
	if f.err != nil {
		return 0, f.err
	}
	if len(f.batches) == 0 {
		return 0, nil
	}
	next := f.batches[0]
	f.batches = f.batches[1:]
	return next, nil
}

func newCleanupJob(t *testing.T, repo *fakeNotificationRepo, batch int) *notificationCleanupJob {
	t.Helper()
	job, err := NewNotificationCleanupJob(NotificationCleanupJobParams{
		Logger:     logger.Nop(),
		Repository: repo,
		BatchSize:  batch,
	})
	if err != nil {
		t.Fatalf("NewNotificationCleanupJob: %v", err)
	}
	return job.(*notificationCleanupJob)
}

func TestNotificationCleanupDrainsFullBatches(t *testing.T) {
	now := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	repo := &fakeNotificationRepo{batches: []int64{10, 10, 3}}
	job := newCleanupJob(t, repo, 10)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(repo.cutoffs) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(repo.cutoffs))
	}
	want := now.Add(-30 * 24 * time.Hour)
	for i, cutoff := range repo.cutoffs {
		if !cutoff.Equal(want) || repo.limits[i] != 10 {
			t.Fatalf("batch %d: cutoff %s limit %d", i, cutoff, repo.limits[i])
		}
	}
}

func TestNotificationCleanupStopsAtBatchCap(t *testing.T) {
	full := make([]int64, maxNotificationBatches+5)
	for i := range full {
		full[i] = 1
	}
	repo := &fakeNotificationRepo{batches: full}
	job := newCleanupJob(t, repo, 1)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(repo.cutoffs) != maxNotificationBatches {
		t.Fatalf("expected %d batches, got %d", maxNotificationBatches, len(repo.cutoffs))
	}
}

func TestNotificationCleanupPropagatesErrors(t *testing.T) {
	job := newCleanupJob(t, &fakeNotificationRepo{err: errors.New("boom")}, 0)
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
