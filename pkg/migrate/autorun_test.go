package migrate

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

func TestMaybeRunDevAutoMigratesSQLite(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	client := db.NewFromConn(conn)

	cfg := &config.Config{
		App:          config.AppConfig{Env: config.AppEnvDev},
		FeatureFlags: config.FeatureFlagsConfig{UseSQLite: true, AutoMigrate: true},
	}
	require.NoError(t, MaybeRunDev(context.Background(), cfg, logger.Nop(), client))

	for _, table := range []string{"users", "orders", "transactions", "withdrawals", "super_settings"} {
		require.True(t, conn.Migrator().HasTable(table), table)
	}
}

func TestMaybeRunDevSkipsOutsideDev(t *testing.T) {
	cfg := &config.Config{
		App:          config.AppConfig{Env: config.AppEnvProd},
		FeatureFlags: config.FeatureFlagsConfig{AutoMigrate: true},
	}
	require.NoError(t, MaybeRunDev(context.Background(), cfg, logger.Nop(), nil))
}
