package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/migrate"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "migration command: up|down|status|version|create|validate")
	dir := flag.String("dir", "", "migrations directory (default: migrations embedded in the binary)")
	name := flag.String("name", "", "migration name (for create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	// create and validate only touch the filesystem
	switch *cmd {
	case "create":
		if *name == "" {
			fail("missing -name for create", nil)
		}
		target := *dir
		if target == "" {
			target = migrate.DefaultDir
		}
		path, err := migrate.CreateSQLMigration(target, *name, time.Now())
		if err != nil {
			fail("failed to create migration", err)
		}
		fmt.Println("created migration:", path)
		return
	case "validate":
		if err := migrate.ValidateDir(*dir); err != nil {
			fail("migration validation failed", err)
		}
		fmt.Println("migration validation passed")
		return
	}

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":    cfg.App.Env,
		"cmd":    *cmd,
		"dir":    *dir,
		"sqlite": cfg.FeatureFlags.UseSQLite,
	})

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	// the SQL files target Postgres; sqlite schemas come from the models
	if cfg.FeatureFlags.UseSQLite {
		if *cmd != "up" {
			fail("sqlite only supports -cmd=up", nil)
		}
		if err := dbClient.DB().WithContext(ctx).AutoMigrate(models.All()...); err != nil {
			fail("sqlite auto-migrate failed", err)
		}
		logg.Info(ctx, "sqlite schema migrated")
		return
	}

	sqlDB, err := dbClient.DB().DB()
	requireResource(ctx, logg, "sql database", err)
	migrations, err := migrate.Source(*dir)
	requireResource(ctx, logg, "migrations", err)

	logg.Info(ctx, "migrate ready")

	switch *cmd {
	case "up", "down", "status":
		if err := migrate.Run(ctx, sqlDB, migrations, *cmd, os.Stdout); err != nil {
			fail("goose "+*cmd+" failed", err)
		}
	case "version":
		if *version == "" {
			fail("missing -version for version command", nil)
		}
		if err := migrate.MigrateToVersion(ctx, sqlDB, migrations, *version, os.Stdout); err != nil {
			fail("goose version migrate failed", err)
		}
	default:
		fail("unknown -cmd value: "+*cmd, nil)
	}
}

func fail(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	} else {
		fmt.Fprintln(os.Stderr, msg)
	}
	os.Exit(1)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
