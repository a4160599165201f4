package migrate

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

// MaybeRunDev migrates the schema on boot in dev when BAZAAR_AUTO_MIGRATE is
// set. SQLite gets gorm auto-migration since the SQL files target Postgres.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	if cfg.FeatureFlags.UseSQLite {
		logg.Info(ctx, "auto-migrating sqlite schema")
		if err := client.DB().WithContext(ctx).AutoMigrate(models.All()...); err != nil {
			return fmt.Errorf("sqlite auto-migrate: %w", err)
		}
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	migrations, err := Source("")
	if err != nil {
		return err
	}
	if err := Validate(migrations); err != nil {
		return err
	}

	logg.Info(ctx, "running embedded goose migrations")
	var report strings.Builder
	if err := Run(ctx, sqlDB, migrations, "up", &report); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}
	logg.Info(logg.WithField(ctx, "applied", strings.TrimSpace(report.String())), "goose migrations completed")
	return nil
}
