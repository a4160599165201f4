// Package otp issues and verifies one-time phone verification codes.
package otp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/security"
)

const (
	codeDigits       = 6
	defaultTTL       = 5 * time.Minute
	defaultAttempts  = 5
	sendLimit        = 3
	sendWindow       = 10 * time.Minute
	countryCodeIndia = "+91"
	countryCodeNepal = "+977"
	messageTemplate  = "%s is your Bazaar verification code. It expires in %d minutes."
)

// Sender issues a code to a phone number.
type Sender interface {
	SendOTP(ctx context.Context, phone, countryCode string) error
}

// Service issues and checks codes.
type Service interface {
	Sender
	Verify(ctx context.Context, phone, countryCode, code string) error
}

// Delivery hands the rendered message to an SMS provider.
type Delivery interface {
	Deliver(ctx context.Context, phone, countryCode, message string) error
}

type codeStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	OTPKey(phone string) string
	OTPAttemptsKey(phone string) string
}

// ServiceParams wires the OTP service.
type ServiceParams struct {
	Store       codeStore
	Delivery    Delivery
	Logger      *logger.Logger
	TTL         time.Duration
	MaxAttempts int
}

type service struct {
	store       codeStore
	delivery    Delivery
	logg        *logger.Logger
	ttl         time.Duration
	maxAttempts int
	generate    func(digits int) (string, error)
}

func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("otp store required")
	}
	if params.Delivery == nil {
		return nil, fmt.Errorf("otp delivery required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	attempts := params.MaxAttempts
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	return &service{
		store:       params.Store,
		delivery:    params.Delivery,
		logg:        logg,
		ttl:         ttl,
		maxAttempts: attempts,
		generate:    security.GenerateNumericCode,
	}, nil
}

// SendOTP replaces any outstanding code for the phone with a fresh one.
func (s *service) SendOTP(ctx context.Context, phone, countryCode string) error {
	phone, countryCode, err := NormalizePhone(phone, countryCode)
	if err != nil {
		return err
	}
	allowed, _, err := s.store.FixedWindowAllow(ctx, "otp:"+phone, sendLimit, sendWindow)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "otp rate limit")
	}
	if !allowed {
		return pkgerrors.New(pkgerrors.CodeRateLimit, "too many codes requested; try again later")
	}

	code, err := s.generate(codeDigits)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate otp")
	}
	hash, err := security.HashSecret(code, security.CodeParams)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash otp")
	}
	if err := s.store.Set(ctx, s.store.OTPKey(phone), hash, s.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store otp")
	}
	if err := s.store.Del(ctx, s.store.OTPAttemptsKey(phone)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reset otp attempts")
	}

	message := fmt.Sprintf(messageTemplate, code, int(s.ttl.Minutes()))
	if err := s.delivery.Deliver(ctx, phone, countryCode, message); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deliver otp")
	}
	return nil
}

// Verify consumes the code on success. Too many wrong guesses burn it.
func (s *service) Verify(ctx context.Context, phone, countryCode, code string) error {
	phone, _, err := NormalizePhone(phone, countryCode)
	if err != nil {
		return err
	}
	code = strings.TrimSpace(code)
	if len(code) != codeDigits {
		return pkgerrors.New(pkgerrors.CodeValidation, "code must be 6 digits")
	}

	codeKey, attemptsKey := s.store.OTPKey(phone), s.store.OTPAttemptsKey(phone)
	hash, err := s.store.Get(ctx, codeKey)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return pkgerrors.New(pkgerrors.CodeValidation, "code expired or was never requested")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load otp")
	}

	attempts, err := s.store.IncrWithTTL(ctx, attemptsKey, s.ttl)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count otp attempts")
	}
	if attempts > int64(s.maxAttempts) {
		if err := s.store.Del(ctx, codeKey, attemptsKey); err != nil {
			s.logg.Error(ctx, "burn otp", err)
		}
		return pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts; request a new code")
	}

	ok, err := security.VerifySecret(code, hash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify otp")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid code")
	}
	if err := s.store.Del(ctx, codeKey, attemptsKey); err != nil {
		s.logg.Error(ctx, "clear otp", err)
	}
	return nil
}

// NormalizePhone strips formatting and checks the national number length for
// the supported country codes.
func NormalizePhone(phone, countryCode string) (string, string, error) {
	countryCode = strings.TrimSpace(countryCode)
	if countryCode == "" {
		countryCode = countryCodeIndia
	}
	if countryCode != countryCodeIndia && countryCode != countryCodeNepal {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported country code %q", countryCode))
	}
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	national := strings.TrimPrefix(digits.String(), strings.TrimPrefix(countryCode, "+"))
	if len(digits.String()) == 10 {
		national = digits.String()
	}
	if len(national) != 10 {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "phone number must have 10 digits")
	}
	return national, countryCode, nil
}
