package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/bazaar-backend/api/controllers"
	"github.com/angelmondragon/bazaar-backend/api/routes"
	"github.com/angelmondragon/bazaar-backend/internal/webhooks"
	"github.com/angelmondragon/bazaar-backend/internal/wiring"
	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/migrate"
	"github.com/angelmondragon/bazaar-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	callbackGuard, err := webhooks.NewIdempotencyGuard(redisClient, cfg.Payments.CallbackTTL, "payments")
	if err != nil {
		logg.Error(context.Background(), "failed to create callback guard", err)
		os.Exit(1)
	}

	readiness := map[string]controllers.Pinger{
		"db":    dbClient,
		"redis": redisClient,
	}
	if services.PubSub != nil {
		readiness["pubsub"] = services.PubSub
	}

	handler := routes.NewRouter(
		cfg,
		logg,
		readiness,
		prometheus.DefaultGatherer,
		redisClient,
		services.StoresRepo,
		services.OTP,
		services.Users,
		services.Stores,
		services.Products,
		services.Checkout,
		services.Payments,
		services.Orders,
		services.Shipments,
		services.Ledger,
		services.Withdrawals,
		services.PaymentMethods,
		services.Settings,
		services.Notifications,
		callbackGuard,
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
		logg.Info(ctx, "api server shut down gracefully")
	}
}
