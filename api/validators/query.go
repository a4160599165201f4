package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

func queryValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

func queryError(key, msg string, extra map[string]any) error {
	details := map[string]any{"field": key}
	for k, v := range extra {
		details[k] = v
	}
	return pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(details)
}

// ParseQueryInt reads an optional integer bounded by [min, max].
func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := queryValue(r, key)
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, queryError(key, key+" must be numeric", nil)
	}
	if value < min || value > max {
		return 0, queryError(key, key+" out of range", map[string]any{"min": min, "max": max})
	}
	return value, nil
}

// ParseQueryBool reads an optional boolean flag such as ?unreadOnly=true.
func ParseQueryBool(r *http.Request, key string) (bool, error) {
	raw := queryValue(r, key)
	if raw == "" {
		return false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, queryError(key, key+" must be true or false", nil)
	}
	return value, nil
}

// RequireQuery returns a mandatory, non-blank query value.
func RequireQuery(r *http.Request, key string) (string, error) {
	raw := queryValue(r, key)
	if raw == "" {
		return "", queryError(key, key+" is required", nil)
	}
	return raw, nil
}

// Query returns the trimmed value, empty when absent.
func Query(r *http.Request, key string) string {
	return queryValue(r, key)
}
