package webhooks

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	pkgredis "github.com/angelmondragon/bazaar-backend/pkg/redis"
)

func newGuard(t *testing.T, ttl time.Duration) (*IdempotencyGuard, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := pkgredis.NewFromClient(redis.NewClient(&redis.Options{Addr: server.Addr()}))
	t.Cleanup(func() { _ = client.Close() })
	guard, err := NewIdempotencyGuard(client, ttl, "")
	require.NoError(t, err)
	return guard, server
}

func TestGuardDetectsRedelivery(t *testing.T) {
	ctx := context.Background()
	guard, server := newGuard(t, time.Hour)

	seen, err := guard.CheckAndMark(ctx, "Razorpay", "order_1")
	require.NoError(t, err)
	require.False(t, seen)
	require.True(t, server.Exists("bazaar:idempotency:webhook:razorpay:order_1"))

	seen, err = guard.CheckAndMark(ctx, "razorpay", "order_1")
	require.NoError(t, err)
	require.True(t, seen)

	seen, err = guard.CheckAndMark(ctx, "phonepe", "order_1")
	require.NoError(t, err)
	require.False(t, seen, "gateways are isolated")
}

func TestGuardReleaseAllowsRetry(t *testing.T) {
	ctx := context.Background()
	guard, _ := newGuard(t, time.Hour)

	_, err := guard.CheckAndMark(ctx, "sabpaisa", "TXN1")
	require.NoError(t, err)
	require.NoError(t, guard.Release(ctx, "sabpaisa", "TXN1"))

	seen, err := guard.CheckAndMark(ctx, "sabpaisa", "TXN1")
	require.NoError(t, err)
	require.False(t, seen)
}

func TestGuardMarkExpires(t *testing.T) {
	ctx := context.Background()
	guard, server := newGuard(t, time.Minute)

	_, err := guard.CheckAndMark(ctx, "phonepe", "txn1")
	require.NoError(t, err)
	server.FastForward(2 * time.Minute)

	seen, err := guard.CheckAndMark(ctx, "phonepe", "txn1")
	require.NoError(t, err)
	require.False(t, seen)
}

func TestGuardRejectsMissingIdentifiers(t *testing.T) {
	guard, _ := newGuard(t, 0)
	_, err := guard.CheckAndMark(context.Background(), "", "x")
	require.Error(t, err)
	_, err = guard.CheckAndMark(context.Background(), "phonepe", " ")
	require.Error(t, err)

	_, err = NewIdempotencyGuard(nil, time.Minute, "")
	require.Error(t, err)
}
