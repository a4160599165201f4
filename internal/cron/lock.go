package cron

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultLockTTL    = 10 * time.Minute
	defaultLockPrefix = "bazaar:cron:lock"
)

// Lock coordinates exclusive job runs across cron-worker replicas.
type Lock interface {
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	CompareAndDelete(ctx context.Context, key, value string) (bool, error)
}

// RedisLock implements Lock using Redis SETNX + TTL. Each key is owned by a
// random token so a replica never frees a lock another replica took over
// after expiry.
type RedisLock struct {
	client redisStore
	prefix string
	ttl    time.Duration

	mu     sync.Mutex
	owners map[string]string
}

// NewRedisLock constructs a Redis-backed lock. Keys are namespaced under prefix.
func NewRedisLock(client redisStore, prefix string, ttl time.Duration) (*RedisLock, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if prefix == "" {
		prefix = defaultLockPrefix
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{client: client, prefix: prefix, ttl: ttl, owners: map[string]string{}}, nil
}

func (l *RedisLock) key(name string) string {
	return l.prefix + ":" + name
}

// Acquire tries to own the named lock for the configured TTL.
func (l *RedisLock) Acquire(ctx context.Context, name string) (bool, error) {
	if name == "" {
		return false, errors.New("lock key is required")
	}
	owner := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key(name), owner, l.ttl)
	if err != nil {
		return false, fmt.Errorf("setnx: %w", err)
	}
	if ok {
		l.mu.Lock()
		l.owners[name] = owner
		l.mu.Unlock()
	}
	return ok, nil
}

// Release frees the named lock only if this replica still owns it.
func (l *RedisLock) Release(ctx context.Context, name string) error {
	l.mu.Lock()
	owner, ok := l.owners[name]
	delete(l.owners, name)
	l.mu.Unlock()
	if !ok {
		return nil
	}
	if _, err := l.client.CompareAndDelete(ctx, l.key(name), owner); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}
