// Package dbtest opens isolated in-memory sqlite databases migrated with the
// production models for repository and transactional service tests.
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
)

// Open returns a migrated connection private to the calling test.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", name)
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Discard,
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, conn.AutoMigrate(models.All()...))
	return conn
}

// Client wraps Open in the db.Client used by services.
func Client(t *testing.T) (*db.Client, *gorm.DB) {
	t.Helper()
	conn := Open(t)
	return db.NewFromConn(conn), conn
}
