package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

// queryLogger routes gorm's query log through the service logger. Only
// failed and slow statements are written; not-found lookups are expected.
type queryLogger struct {
	logg      *logger.Logger
	slowQuery time.Duration
	level     gormlogger.LogLevel
}

func newQueryLogger(logg *logger.Logger, slowQuery time.Duration) gormlogger.Interface {
	if logg == nil {
		return gormlogger.Discard
	}
	return &queryLogger{logg: logg, slowQuery: slowQuery, level: gormlogger.Warn}
}

func (q *queryLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *q
	clone.level = level
	return &clone
}

func (q *queryLogger) Info(ctx context.Context, msg string, _ ...any) {
	if q.level >= gormlogger.Info {
		q.logg.Info(ctx, msg)
	}
}

func (q *queryLogger) Warn(ctx context.Context, msg string, _ ...any) {
	if q.level >= gormlogger.Warn {
		q.logg.Warn(ctx, msg)
	}
}

func (q *queryLogger) Error(ctx context.Context, msg string, _ ...any) {
	if q.level >= gormlogger.Error {
		q.logg.Error(ctx, msg, nil)
	}
}

func (q *queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if q.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	slow := q.slowQuery > 0 && elapsed > q.slowQuery
	if !failed && !slow {
		return
	}

	sql, rows := fc()
	ctx = q.logg.WithFields(ctx, map[string]any{
		"sql":         sql,
		"rows":        rows,
		"duration_ms": elapsed.Milliseconds(),
	})
	if failed && q.level >= gormlogger.Error {
		q.logg.Error(ctx, "db.query_failed", err)
		return
	}
	if slow && q.level >= gormlogger.Warn {
		q.logg.Warn(ctx, "db.slow_query")
	}
}
