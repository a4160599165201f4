package enums

import (
	"fmt"
	"slices"
)

func oneOf[T ~string](v T, valid []T) bool {
	return slices.Contains(valid, v)
}

// parseOneOf matches raw exactly; callers normalise case and whitespace.
func parseOneOf[T ~string](raw string, valid []T, kind string) (T, error) {
	if v := T(raw); slices.Contains(valid, v) {
		return v, nil
	}
	return "", fmt.Errorf("invalid %s %q", kind, raw)
}
