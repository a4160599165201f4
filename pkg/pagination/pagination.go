// Package pagination implements newest-first keyset paging over
// (created_at, id).
package pagination

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

// Cursor points at the first row of the next page.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// NormalizeLimit clamps limit into [1, MaxLimit], using DefaultLimit for
// non-positive values.
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// Keyset orders rows newest first, skips everything at or after cursor and
// fetches one row past limit so Split can tell whether a next page exists.
func Keyset(cursor *Cursor, limit int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if cursor != nil {
			db = db.Where("created_at < ? OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
		}
		return db.Order("created_at DESC, id DESC").Limit(NormalizeLimit(limit) + 1)
	}
}

// Split trims the lookahead row fetched by Keyset and returns the cursor for
// the following page, or nil on the last page. The cursor points at the last
// row returned since Keyset resumes strictly after it.
func Split[T any](rows []T, limit int, key func(T) Cursor) ([]T, *Cursor) {
	limit = NormalizeLimit(limit)
	if len(rows) <= limit {
		return rows, nil
	}
	next := key(rows[limit-1])
	return rows[:limit], &next
}

// Encode renders the cursor as an opaque URL-safe token.
func (c Cursor) Encode() string {
	payload := strconv.FormatInt(c.CreatedAt.UTC().UnixNano(), 10) + "." + c.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

// Decode parses a token produced by Encode. An empty token yields nil.
func Decode(token string) (*Cursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	nanos, id, ok := strings.Cut(string(raw), ".")
	if !ok {
		return nil, fmt.Errorf("invalid cursor format")
	}
	ts, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor timestamp: %w", err)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor id: %w", err)
	}
	return &Cursor{CreatedAt: time.Unix(0, ts).UTC(), ID: parsed}, nil
}
