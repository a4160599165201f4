package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// ErrInvalidHash signals a malformed Argon2id hash string.
var ErrInvalidHash = fmt.Errorf("invalid argon2id hash")

// ArgonParams captures the Argon2id parameters we embed into each hash string.
type ArgonParams struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLen     uint32
	KeyLen      uint32
}

// CodeParams is sized for short-lived one-time codes rather than passwords.
var CodeParams = ArgonParams{
	Memory:      16 * 1024,
	Time:        1,
	Parallelism: 1,
	SaltLen:     16,
	KeyLen:      32,
}

// HashSecret returns a formatted Argon2id hash for the provided secret.
func HashSecret(secret string, params ArgonParams) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("secret cannot be empty")
	}
	params = clampParams(params)
	salt := make([]byte, params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(secret), salt, params.Time, params.Memory, params.Parallelism, params.KeyLen)

	encSalt := base64.RawStdEncoding.EncodeToString(salt)
	encHash := base64.RawStdEncoding.EncodeToString(hash)

	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s", params.Memory, params.Time, params.Parallelism, encSalt, encHash), nil
}

// VerifySecret returns true when the secret matches the encoded hash.
func VerifySecret(secret, encoded string) (bool, error) {
	params, salt, hash, err := decodeHash(encoded)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(secret), salt, params.Time, params.Memory, params.Parallelism, params.KeyLen)

	return subtle.ConstantTimeCompare(hash, computed) == 1, nil
}

// GenerateNumericCode returns a uniformly random string of decimal digits.
func GenerateNumericCode(digits int) (string, error) {
	if digits <= 0 {
		return "", fmt.Errorf("digits must be positive")
	}
	var b strings.Builder
	b.Grow(digits)
	ten := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

func clampParams(p ArgonParams) ArgonParams {
	return ArgonParams{
		Memory:      uint32(clampInt(int(p.Memory), 8, 512*1024)),
		Time:        uint32(clampInt(int(p.Time), 1, 10)),
		Parallelism: uint8(clampInt(int(p.Parallelism), 1, 255)),
		SaltLen:     uint32(clampInt(int(p.SaltLen), 8, 64)),
		KeyLen:      uint32(clampInt(int(p.KeyLen), 16, 64)),
	}
}

func decodeHash(encoded string) (ArgonParams, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return ArgonParams{}, nil, nil, ErrInvalidHash
	}

	var params ArgonParams
	for _, token := range strings.Split(parts[3], ",") {
		keyValue := strings.SplitN(token, "=", 2)
		if len(keyValue) != 2 {
			return ArgonParams{}, nil, nil, ErrInvalidHash
		}
		key, value := keyValue[0], keyValue[1]
		switch key {
		case "m":
			v, err := strconv.ParseUint(value, 10, 32)
			if err != nil {
				return ArgonParams{}, nil, nil, ErrInvalidHash
			}
			params.Memory = uint32(v)
		case "t":
			v, err := strconv.ParseUint(value, 10, 32)
			if err != nil {
				return ArgonParams{}, nil, nil, ErrInvalidHash
			}
			params.Time = uint32(v)
		case "p":
			v, err := strconv.ParseUint(value, 10, 8)
			if err != nil {
				return ArgonParams{}, nil, nil, ErrInvalidHash
			}
			params.Parallelism = uint8(v)
		}
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return ArgonParams{}, nil, nil, ErrInvalidHash
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return ArgonParams{}, nil, nil, ErrInvalidHash
	}

	params.SaltLen = uint32(len(salt))
	params.KeyLen = uint32(len(hash))

	return params, salt, hash, nil
}

func clampInt(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
