package migrate

import (
	"fmt"
	"io/fs"
	"regexp"
	"strings"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

const (
	upMarker   = "-- +goose Up"
	downMarker = "-- +goose Down"
)

// Validate checks every .sql file in fsys: the YYYYMMDDHHMMSS_name.sql
// naming, unique versions, and an Up section that precedes a Down section.
// Schema changes that cannot be rolled back still need an explicit Down.
func Validate(fsys fs.FS) error {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	seen := map[string]string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}

		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			return fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}
		if prev, ok := seen[m[1]]; ok {
			return fmt.Errorf("duplicate migration version %s in %q and %q", m[1], prev, name)
		}
		seen[m[1]] = name

		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read %q: %w", name, err)
		}
		if err := checkSections(string(body)); err != nil {
			return fmt.Errorf("migration %q: %w", name, err)
		}
	}
	return nil
}

// ValidateDir validates the migrations under dir, or the embedded set when
// dir is empty.
func ValidateDir(dir string) error {
	fsys, err := Source(dir)
	if err != nil {
		return err
	}
	return Validate(fsys)
}

func checkSections(body string) error {
	up := strings.Index(body, upMarker)
	down := strings.Index(body, downMarker)
	switch {
	case up < 0:
		return fmt.Errorf("missing %q", upMarker)
	case down < 0:
		return fmt.Errorf("missing %q", downMarker)
	case down < up:
		return fmt.Errorf("%q must come before %q", upMarker, downMarker)
	}
	return nil
}
