package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var nameSanitizeRe = regexp.MustCompile(`[^a-z0-9]+`)

const migrationTemplate = `-- +goose Up
-- +goose StatementBegin
-- %[1]s
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- rollback %[1]s
-- +goose StatementEnd
`

// CreateSQLMigration writes an empty goose migration named
// <YYYYMMDDHHMMSS>_<name>.sql into dir, stamped with now in UTC.
func CreateSQLMigration(dir, name string, now time.Time) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("dir is required")
	}
	slug := strings.Trim(nameSanitizeRe.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if slug == "" {
		return "", fmt.Errorf("name %q has no usable characters", name)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", dir, err)
	}

	version := now.UTC().Format("20060102150405")
	existing, err := filepath.Glob(filepath.Join(dir, version+"_*.sql"))
	if err != nil {
		return "", fmt.Errorf("scan %q: %w", dir, err)
	}
	if len(existing) > 0 {
		return "", fmt.Errorf("version %s already used by %s", version, filepath.Base(existing[0]))
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%s.sql", version, slug))
	if err := os.WriteFile(path, []byte(fmt.Sprintf(migrationTemplate, slug)), 0o644); err != nil {
		return "", fmt.Errorf("write migration %q: %w", path, err)
	}
	return path, nil
}
