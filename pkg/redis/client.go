package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	keyNamespace      = "bazaar"
	idempotencyPrefix = "idempotency"
	rateLimitPrefix   = "rate_limit"
	otpPrefix         = "otp"
	cronPrefix        = "cron"
)

var errNotInitialized = errors.New("redis client not initialized")

// incrExpire runs INCR and PEXPIRE atomically; the TTL is set on the first hit only.
var incrExpire = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 and tonumber(ARGV[1]) > 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

var compareAndDelete = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Client namespaces keys under "bazaar:" and wraps the commands used by
// OTP, rate limiting, idempotency and cron locking.
type Client struct {
	raw *redis.Client
}

// IdempotencyStore is the subset of Client used to reserve and replay
// idempotent requests and webhook deliveries.
type IdempotencyStore interface {
	Get(context.Context, string) (string, error)
	Set(context.Context, string, any, time.Duration) error
	SetNX(context.Context, string, any, time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
	Del(context.Context, ...string) error
}

// New bootstraps a Redis client with pooling/timeouts and verifies connectivity.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	if logg != nil {
		logg.Info(ctx, "redis connection established")
	}
	return NewFromClient(raw), nil
}

// NewFromClient wraps an existing go-redis client.
func NewFromClient(raw *redis.Client) *Client {
	return &Client{raw: raw}
}

func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	var opts *redis.Options
	switch {
	case cfg.URL != "":
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	case cfg.Address != "":
		opts = &redis.Options{Addr: cfg.Address, Password: cfg.Password}
	default:
		return nil, errors.New("redis url or address is required")
	}

	// Explicit settings fill whatever the URL left unset.
	fill := func(dst *int, v int) {
		if *dst == 0 {
			*dst = v
		}
	}
	fillDuration := func(dst *time.Duration, v time.Duration) {
		if *dst == 0 {
			*dst = v
		}
	}
	fill(&opts.DB, cfg.DB)
	fill(&opts.PoolSize, cfg.PoolSize)
	fill(&opts.MinIdleConns, cfg.MinIdleConns)
	fillDuration(&opts.DialTimeout, cfg.DialTimeout)
	fillDuration(&opts.ReadTimeout, cfg.ReadTimeout)
	fillDuration(&opts.WriteTimeout, cfg.WriteTimeout)
	return opts, nil
}

func (c *Client) ready() error {
	if c == nil || c.raw == nil {
		return errNotInitialized
	}
	return nil
}

// Set stores a value with an optional TTL.
func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.raw.Set(ctx, key, value, ttl).Err()
}

// Get returns the value at key, or redis.Nil when it is absent.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}
	return c.raw.Get(ctx, key).Result()
}

func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if err := c.ready(); err != nil {
		return false, err
	}
	return c.raw.SetNX(ctx, key, value, ttl).Result()
}

// IncrWithTTL increments key and, on the first increment, expires it after ttl.
func (c *Client) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if err := c.ready(); err != nil {
		return 0, err
	}
	return incrExpire.Run(ctx, c.raw, []string{key}, ttl.Milliseconds()).Int64()
}

// CompareAndDelete removes key only while it still holds value. It reports
// whether the key was deleted.
func (c *Client) CompareAndDelete(ctx context.Context, key, value string) (bool, error) {
	if err := c.ready(); err != nil {
		return false, err
	}
	n, err := compareAndDelete.Run(ctx, c.raw, []string{key}, value).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// FixedWindowAllow counts a hit against scope and reports whether the
// window still has room.
func (c *Client) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	count, err := c.IncrWithTTL(ctx, c.RateLimitKey(scope), window)
	if err != nil {
		return false, 0, err
	}
	return count <= limit, count, nil
}

// IdempotencyKey returns a namespaced key for idempotency storage.
func (c *Client) IdempotencyKey(scope, id string) string {
	return c.buildKey(idempotencyPrefix, scope, id)
}

// RateLimitKey returns a namespaced key for rate limit counters.
func (c *Client) RateLimitKey(scope string) string {
	return c.buildKey(rateLimitPrefix, scope)
}

// OTPKey holds the hashed one-time code issued to a phone number.
func (c *Client) OTPKey(phone string) string {
	return c.buildKey(otpPrefix, "code", phone)
}

// OTPAttemptsKey counts verification attempts against the current code.
func (c *Client) OTPAttemptsKey(phone string) string {
	return c.buildKey(otpPrefix, "attempts", phone)
}

// CronLockPrefix namespaces the per-job cron locks.
func (c *Client) CronLockPrefix() string {
	return c.buildKey(cronPrefix, "lock")
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.raw.Del(ctx, keys...).Err()
}

// Ping verifies the connection; it backs the readiness probe.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.raw.Ping(ctx).Err()
}

func (c *Client) Close() error {
	if c == nil || c.raw == nil {
		return nil
	}
	return c.raw.Close()
}

func (c *Client) buildKey(parts ...string) string {
	clean := make([]string, 0, len(parts)+1)
	clean = append(clean, keyNamespace)
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			clean = append(clean, part)
		}
	}
	return strings.Join(clean, ":")
}
