package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/bazaar-backend/internal/cron"
	"github.com/angelmondragon/bazaar-backend/internal/wiring"
	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/metrics"
	"github.com/angelmondragon/bazaar-backend/pkg/migrate"
	"github.com/angelmondragon/bazaar-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	services, err := wiring.Build(context.Background(), cfg, logg, dbClient, redisClient, prometheus.DefaultRegisterer)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}
	defer func() {
		if err := services.Close(); err != nil {
			logg.Error(context.Background(), "error closing services", err)
		}
	}()

	jobs, err := buildJobs(cfg, logg, services)
	if err != nil {
		logg.Error(context.Background(), "failed to build cron jobs", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, lockPrefix(redisClient, cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(jobs...)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   registry,
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.LockTTL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"jobs":        registry.Names(),
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildJobs(cfg *config.Config, logg *logger.Logger, s *wiring.Services) ([]cron.Job, error) {
	builders := []func() (cron.Job, error){
		func() (cron.Job, error) {
			return cron.NewTrackingSyncJob(cron.TrackingSyncJobParams{
				Logger:    logg,
				Shipments: s.Shipments,
				BatchSize: cfg.Cron.TrackingBatch,
			})
		},
		func() (cron.Job, error) {
			return cron.NewSettlementSweepJob(cron.SettlementSweepJobParams{
				Logger:  logg,
				Orders:  s.OrdersRepo,
				Settler: s.Settlement,
			})
		},
		func() (cron.Job, error) {
			return cron.NewPaymentReconcileJob(cron.PaymentReconcileJobParams{
				Logger:   logg,
				Ledger:   s.LedgerRepo,
				Payments: s.Payments,
			})
		},
		func() (cron.Job, error) {
			return cron.NewWarehouseRegistrationJob(cron.WarehouseRegistrationJobParams{
				Logger:    logg,
				Stores:    s.Stores,
				BatchSize: cfg.Cron.WarehouseBatch,
			})
		},
		func() (cron.Job, error) {
			return cron.NewCourierSyncJob(cron.CourierSyncJobParams{
				Logger:   logg,
				Provider: s.Logistics,
				Settings: s.Settings,
			})
		},
		func() (cron.Job, error) {
			return cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
				Logger:     logg,
				Repository: s.NotificationsRepo,
			})
		},
	}

	jobs := make([]cron.Job, 0, len(builders))
	for _, build := range builders {
		job, err := build()
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func lockPrefix(client *redis.Client, env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("%s:%s", client.CronLockPrefix(), env)
}
