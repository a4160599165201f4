package webhooks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/bazaar-backend/pkg/redis"
)

// DefaultTTL bounds how long a delivered callback is remembered.
const DefaultTTL = 24 * time.Hour

const defaultScope = "webhook"

// IdempotencyGuard remembers gateway callback deliveries so retries are
// acknowledged without re-running reconciliation.
type IdempotencyGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
}

func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if ttl == 0 {
		ttl = DefaultTTL
	}
	if strings.TrimSpace(scope) == "" {
		scope = defaultScope
	}
	return &IdempotencyGuard{
		store: store,
		ttl:   ttl,
		scope: scope,
	}, nil
}

// CheckAndMark records the delivery and reports whether it was already seen.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, gateway, eventID string) (bool, error) {
	key, err := g.key(gateway, eventID)
	if err != nil {
		return false, err
	}
	set, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set idempotency key: %w", err)
	}
	return !set, nil
}

// Release forgets a delivery so the gateway's retry is processed again.
// Callers use it when handling failed after CheckAndMark.
func (g *IdempotencyGuard) Release(ctx context.Context, gateway, eventID string) error {
	key, err := g.key(gateway, eventID)
	if err != nil {
		return err
	}
	return g.store.Del(ctx, key)
}

func (g *IdempotencyGuard) key(gateway, eventID string) (string, error) {
	gateway = strings.ToLower(strings.TrimSpace(gateway))
	eventID = strings.TrimSpace(eventID)
	if gateway == "" {
		return "", errors.New("gateway is required")
	}
	if eventID == "" {
		return "", errors.New("event id is required")
	}
	return g.store.IdempotencyKey(g.scope, gateway+":"+eventID), nil
}
