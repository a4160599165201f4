package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// clockSkew tolerates small drift between API replicas.
const clockSkew = 30 * time.Second

var errSubjectMismatch = errors.New("token subject does not match user id")

func checkSigningConfig(cfg config.JWTConfig) error {
	switch {
	case cfg.Secret == "":
		return errors.New("jwt secret is required")
	case cfg.Issuer == "":
		return errors.New("jwt issuer is required")
	}
	return nil
}

// MintAccessToken signs an HS256 token valid for cfg.ExpirationMinutes from now.
func MintAccessToken(cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	if err := checkSigningConfig(cfg); err != nil {
		return "", err
	}
	if cfg.ExpirationMinutes <= 0 {
		return "", errors.New("jwt expiration minutes must be positive")
	}
	if payload.UserID == uuid.Nil {
		return "", errors.New("user id is required")
	}
	if !payload.Role.IsValid() {
		return "", fmt.Errorf("invalid user role %q", payload.Role)
	}
	if payload.StoreID != nil && *payload.StoreID == uuid.Nil {
		payload.StoreID = nil
	}

	jti := strings.TrimSpace(payload.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}
	ttl := time.Duration(cfg.ExpirationMinutes) * time.Minute

	claims := AccessTokenClaims{
		UserID:  payload.UserID,
		Role:    payload.Role,
		StoreID: payload.StoreID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   payload.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        jti,
		},
	}

	signed, err := jwt.NewWithClaims(jwtSigningMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// ParseAccessToken verifies signature, issuer and expiry, then checks that
// the custom claims agree with the registered ones.
func ParseAccessToken(cfg config.JWTConfig, tokenString string) (*AccessTokenClaims, error) {
	if err := checkSigningConfig(cfg); err != nil {
		return nil, err
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockSkew),
	)
	claims := &AccessTokenClaims{}
	if _, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return []byte(cfg.Secret), nil
	}); err != nil {
		return nil, err
	}

	if claims.UserID == uuid.Nil || claims.Subject != claims.UserID.String() {
		return nil, errSubjectMismatch
	}
	if !claims.Role.IsValid() {
		return nil, fmt.Errorf("invalid user role %q", claims.Role)
	}
	return claims, nil
}
