package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/pressly/goose/v3"
)

// DefaultDir is where new migrations are written; the same files are
// embedded into every binary.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Source returns the migrations under dir, or the embedded set when dir is
// empty.
func Source(dir string) (fs.FS, error) {
	if dir == "" {
		return fs.Sub(embedded, "migrations")
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("migrations dir %q: %w", dir, err)
	}
	return os.DirFS(dir), nil
}

// The provider must not be closed: Close would close db, which the caller owns.
func newProvider(db *sql.DB, fsys fs.FS) (*goose.Provider, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if fsys == nil {
		return nil, fmt.Errorf("migrations source is required")
	}
	// SQL files are Postgres-only; sqlite schemas come from gorm models
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return provider, nil
}

// Run executes up, down or status and writes one line per migration to out.
func Run(ctx context.Context, db *sql.DB, fsys fs.FS, command string, out io.Writer) error {
	provider, err := newProvider(db, fsys)
	if err != nil {
		return err
	}
	if out == nil {
		out = io.Discard
	}

	switch command {
	case "up":
		results, err := provider.Up(ctx)
		reportResults(out, results...)
		if err != nil {
			return fmt.Errorf("goose up: %w", err)
		}
	case "down":
		result, err := provider.Down(ctx)
		if result != nil {
			reportResults(out, result)
		}
		if err != nil {
			return fmt.Errorf("goose down: %w", err)
		}
	case "status":
		statuses, err := provider.Status(ctx)
		if err != nil {
			return fmt.Errorf("goose status: %w", err)
		}
		for _, st := range statuses {
			applied := "-"
			if st.State == goose.StateApplied {
				applied = st.AppliedAt.UTC().Format("2006-01-02 15:04:05")
			}
			fmt.Fprintf(out, "%-8s %-20s %s\n", st.State, applied, st.Source.Path)
		}
	default:
		return fmt.Errorf("unsupported migration command %q", command)
	}
	return nil
}

// MigrateToVersion moves the schema up or down until targetVersion
// (YYYYMMDDHHMMSS) is the newest applied migration.
func MigrateToVersion(ctx context.Context, db *sql.DB, fsys fs.FS, targetVersion string, out io.Writer) error {
	target, err := strconv.ParseInt(targetVersion, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", targetVersion, err)
	}
	provider, err := newProvider(db, fsys)
	if err != nil {
		return err
	}
	if out == nil {
		out = io.Discard
	}

	current, err := provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	var results []*goose.MigrationResult
	switch {
	case current == target:
		return nil
	case current < target:
		results, err = provider.UpTo(ctx, target)
	default:
		results, err = provider.DownTo(ctx, target)
	}
	reportResults(out, results...)
	if err != nil {
		return fmt.Errorf("migrate to %d: %w", target, err)
	}
	return nil
}

func reportResults(out io.Writer, results ...*goose.MigrationResult) {
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		status := "OK"
		if r.Error != nil {
			status = "FAILED"
		}
		fmt.Fprintf(out, "%-4s %-6s %s (%s)\n", status, r.Direction, r.Source.Path, r.Duration.Round(time.Millisecond))
	}
}
