package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/bazaar-backend/pkg/config"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := NewFromClient(redis.NewClient(&redis.Options{Addr: server.Addr()}))
	t.Cleanup(func() { _ = client.Close() })
	return client, server
}

func TestFixedWindowAllow(t *testing.T) {
	ctx := context.Background()
	client, server := newTestClient(t)

	for i, want := range []bool{true, true, false} {
		allowed, count, err := client.FixedWindowAllow(ctx, "otp:9811111111", 2, time.Minute)
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if allowed != want || count != int64(i+1) {
			t.Fatalf("call %d: allowed=%v count=%d", i, allowed, count)
		}
	}
	if ttl := server.TTL("bazaar:rate_limit:otp:9811111111"); ttl != time.Minute {
		t.Fatalf("expected window ttl 1m, got %v", ttl)
	}

	server.FastForward(time.Minute + time.Second)
	if allowed, count, err := client.FixedWindowAllow(ctx, "otp:9811111111", 2, time.Minute); err != nil || !allowed || count != 1 {
		t.Fatalf("expected fresh window, allowed=%v count=%d err=%v", allowed, count, err)
	}
}

func TestIncrWithTTLKeepsFirstExpiry(t *testing.T) {
	ctx := context.Background()
	client, server := newTestClient(t)
	key := client.OTPAttemptsKey("9811111111")

	if _, err := client.IncrWithTTL(ctx, key, time.Minute); err != nil {
		t.Fatalf("incr: %v", err)
	}
	server.FastForward(20 * time.Second)
	if n, err := client.IncrWithTTL(ctx, key, time.Minute); err != nil || n != 2 {
		t.Fatalf("second incr n=%d err=%v", n, err)
	}
	if ttl := server.TTL(key); ttl != 40*time.Second {
		t.Fatalf("ttl must not be refreshed, got %v", ttl)
	}
}

func TestCompareAndDelete(t *testing.T) {
	ctx := context.Background()
	client, server := newTestClient(t)
	key := client.CronLockPrefix() + ":tracking-sync"

	if ok, err := client.SetNX(ctx, key, "owner-a", time.Minute); err != nil || !ok {
		t.Fatalf("setnx ok=%v err=%v", ok, err)
	}
	if deleted, err := client.CompareAndDelete(ctx, key, "owner-b"); err != nil || deleted {
		t.Fatalf("foreign owner must not delete, deleted=%v err=%v", deleted, err)
	}
	if !server.Exists(key) {
		t.Fatal("key removed by foreign owner")
	}
	if deleted, err := client.CompareAndDelete(ctx, key, "owner-a"); err != nil || !deleted {
		t.Fatalf("owner delete deleted=%v err=%v", deleted, err)
	}
	if deleted, err := client.CompareAndDelete(ctx, key, "owner-a"); err != nil || deleted {
		t.Fatalf("missing key deleted=%v err=%v", deleted, err)
	}
}

func TestSetNXGetAndExpiry(t *testing.T) {
	ctx := context.Background()
	client, server := newTestClient(t)

	key := client.OTPKey("9811111111")
	ok, err := client.SetNX(ctx, key, "hash", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first setnx ok=%v err=%v", ok, err)
	}
	ok, err = client.SetNX(ctx, key, "other", time.Minute)
	if err != nil || ok {
		t.Fatalf("second setnx should lose, ok=%v err=%v", ok, err)
	}
	if value, err := client.Get(ctx, key); err != nil || value != "hash" {
		t.Fatalf("expected original value, got %q err=%v", value, err)
	}

	server.FastForward(2 * time.Minute)
	if _, err := client.Get(ctx, key); err != redis.Nil {
		t.Fatalf("expected redis.Nil after expiry, got %v", err)
	}
	if err := client.Del(ctx, key); err != nil {
		t.Fatalf("del of missing key: %v", err)
	}
}

func TestUninitializedClient(t *testing.T) {
	var client *Client
	if err := client.Ping(context.Background()); err != errNotInitialized {
		t.Fatalf("expected errNotInitialized, got %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close of nil client: %v", err)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://:pw@cache:6380/3", PoolSize: 20, DialTimeout: time.Second})
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if opts.Addr != "cache:6380" || opts.DB != 3 || opts.Password != "pw" {
		t.Fatalf("url not applied: %+v", opts)
	}
	if opts.PoolSize != 20 || opts.DialTimeout != time.Second {
		t.Fatalf("explicit settings not filled: pool=%d dial=%v", opts.PoolSize, opts.DialTimeout)
	}

	opts, err = optionsFromConfig(config.RedisConfig{Address: "localhost:6379", DB: 2})
	if err != nil || opts.Addr != "localhost:6379" || opts.DB != 2 {
		t.Fatalf("address config opts=%+v err=%v", opts, err)
	}

	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error without url or address")
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	cases := map[string]string{
		client.IdempotencyKey("webhook", "razorpay:pay_1"): "bazaar:idempotency:webhook:razorpay:pay_1",
		client.IdempotencyKey("webhook", " "):              "bazaar:idempotency:webhook",
		client.RateLimitKey("otp:9811111111"):              "bazaar:rate_limit:otp:9811111111",
		client.OTPKey("9811111111"):                        "bazaar:otp:code:9811111111",
		client.OTPAttemptsKey("9811111111"):                "bazaar:otp:attempts:9811111111",
		client.CronLockPrefix():                            "bazaar:cron:lock",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("expected %s, got %s", want, got)
		}
	}
}
