package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/metrics"
)

const (
	defaultInterval   = 15 * time.Minute
	defaultJobTimeout = 10 * time.Minute
)

// ServiceParams configure the cron service. JobTimeout should not exceed the
// lock TTL, otherwise a slow job can overlap with a run on another replica.
type ServiceParams struct {
	Logger     *logger.Logger
	Registry   *Registry
	Lock       Lock
	Metrics    *metrics.CronJobMetrics
	Interval   time.Duration
	JobTimeout time.Duration
}

// Service runs every registered job once per interval. Each job takes its
// own lock, so replicas can split a cycle between them.
type Service struct {
	logg       *logger.Logger
	registry   *Registry
	lock       Lock
	metrics    *metrics.CronJobMetrics
	interval   time.Duration
	jobTimeout time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Lock == nil {
		return nil, errors.New("lock required")
	}
	s := &Service{
		logg:       params.Logger,
		registry:   params.Registry,
		lock:       params.Lock,
		metrics:    params.Metrics,
		interval:   params.Interval,
		jobTimeout: params.JobTimeout,
	}
	if s.registry == nil {
		s.registry = NewRegistry()
	}
	if s.interval <= 0 {
		s.interval = defaultInterval
	}
	if s.jobTimeout <= 0 {
		s.jobTimeout = defaultJobTimeout
	}
	return s, nil
}

// Run executes a cycle immediately and then on every tick until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.runCycle(ctx)
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron service context canceled")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Service) runCycle(ctx context.Context) {
	start := time.Now()
	ran := 0
	for _, job := range s.registry.Jobs() {
		if ctx.Err() != nil {
			return
		}
		if s.runLocked(ctx, job) {
			ran++
		}
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"jobs_run":    ran,
		"duration_ms": time.Since(start).Milliseconds(),
	}), "cron cycle complete")
}

// runLocked reports whether this replica ran the job.
func (s *Service) runLocked(ctx context.Context, job Job) bool {
	name := job.Name()
	jobCtx := s.logg.WithField(ctx, "job", name)

	locked, err := s.lock.Acquire(ctx, name)
	if err != nil {
		s.logg.Error(jobCtx, "lock acquire failed", err)
		s.record(name, metrics.JobFailed)
		return false
	}
	if !locked {
		s.logg.Info(jobCtx, "job is running on another instance; skipping")
		s.record(name, metrics.JobSkipped)
		return false
	}
	defer func() {
		// release even when the cycle is being cancelled
		if err := s.lock.Release(context.WithoutCancel(ctx), name); err != nil {
			s.logg.Error(jobCtx, "failed to release cron lock", err)
		}
	}()

	start := time.Now()
	err = s.runJob(jobCtx, job)
	duration := time.Since(start)
	s.observeDuration(name, duration)

	jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		s.record(name, metrics.JobFailed)
		return true
	}
	s.logg.Info(jobCtx, "job completed")
	s.record(name, metrics.JobSucceeded)
	return true
}

// runJob bounds the job by the timeout and turns a panic into an error so
// one broken job cannot stop the worker.
func (s *Service) runJob(ctx context.Context, job Job) (err error) {
	ctx, cancel := context.WithTimeout(ctx, s.jobTimeout)
	defer cancel()
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("job panicked: %v", rec)
		}
	}()
	return job.Run(ctx)
}

func (s *Service) observeDuration(job string, duration time.Duration) {
	if s.metrics != nil {
		s.metrics.ObserveDuration(job, duration)
	}
}

func (s *Service) record(job string, outcome metrics.JobOutcome) {
	if s.metrics != nil {
		s.metrics.IncRun(job, outcome)
	}
}
