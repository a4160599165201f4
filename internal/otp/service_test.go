package otp

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/bazaar-backend/pkg/redis"
)

type stubDelivery struct {
	messages []string
	err      error
}

func (s *stubDelivery) Deliver(_ context.Context, _, _, message string) error {
	s.messages = append(s.messages, message)
	return s.err
}

func newTestService(t *testing.T, delivery *stubDelivery) (*service, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := pkgredis.NewFromClient(redis.NewClient(&redis.Options{Addr: server.Addr()}))
	t.Cleanup(func() { _ = client.Close() })
	svc, err := NewService(ServiceParams{Store: client, Delivery: delivery, Logger: logger.Nop(), MaxAttempts: 2})
	require.NoError(t, err)
	impl := svc.(*service)
	impl.generate = func(int) (string, error) { return "482913", nil }
	return impl, server
}

func TestSendAndVerifyConsumesCode(t *testing.T) {
	delivery := &stubDelivery{}
	svc, server := newTestService(t, delivery)
	ctx := context.Background()

	require.NoError(t, svc.SendOTP(ctx, "+91 98111-11111", "+91"))
	require.Len(t, delivery.messages, 1)
	require.True(t, strings.HasPrefix(delivery.messages[0], "482913 "))

	stored, err := server.Get("bazaar:otp:code:9811111111")
	require.NoError(t, err)
	require.NotContains(t, stored, "482913", "code must be stored hashed")
	require.Equal(t, 5*time.Minute, server.TTL("bazaar:otp:code:9811111111"))

	require.NoError(t, svc.Verify(ctx, "9811111111", "+91", "482913"))
	err = svc.Verify(ctx, "9811111111", "+91", "482913")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "code is single use, got %v", err)
}

func TestVerifyBurnsCodeAfterMaxAttempts(t *testing.T) {
	svc, server := newTestService(t, &stubDelivery{})
	ctx := context.Background()
	require.NoError(t, svc.SendOTP(ctx, "9811111111", ""))

	for i := 0; i < 2; i++ {
		err := svc.Verify(ctx, "9811111111", "+91", "000000")
		require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "attempt %d: %v", i, err)
	}
	err := svc.Verify(ctx, "9811111111", "+91", "482913")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeRateLimit), "got %v", err)
	require.False(t, server.Exists("bazaar:otp:code:9811111111"))
}

func TestSendOTPRateLimited(t *testing.T) {
	svc, _ := newTestService(t, &stubDelivery{})
	ctx := context.Background()
	for i := 0; i < sendLimit; i++ {
		require.NoError(t, svc.SendOTP(ctx, "9811111111", "+91"))
	}
	err := svc.SendOTP(ctx, "9811111111", "+91")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeRateLimit), "got %v", err)
}

func TestSendOTPDeliveryFailure(t *testing.T) {
	svc, _ := newTestService(t, &stubDelivery{err: errors.New("sms gateway down")})
	err := svc.SendOTP(context.Background(), "9811111111", "+91")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency), "got %v", err)
}

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		phone, country, want string
		ok                   bool
	}{
		{"9811111111", "+91", "9811111111", true},
		{"+91 98111 11111", "+91", "9811111111", true},
		{"977-9801234567", "+977", "9801234567", true},
		{"12345", "+91", "", false},
		{"9811111111", "+1", "", false},
	}
	for _, tc := range cases {
		got, _, err := NormalizePhone(tc.phone, tc.country)
		if tc.ok {
			require.NoError(t, err, tc.phone)
			require.Equal(t, tc.want, got)
			continue
		}
		require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), tc.phone)
	}
}

func TestLogDeliveryMasksPhone(t *testing.T) {
	require.Equal(t, "******1111", maskPhone("9811111111"))
	require.NoError(t, NewLogDelivery(nil, false).Deliver(context.Background(), "9811111111", "+91", "msg"))
}
