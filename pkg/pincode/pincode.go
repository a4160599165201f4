// Package pincode normalizes Indian postal codes for logistics calls.
package pincode

import (
	"regexp"
	"strings"
)

// Length is the number of digits in an Indian pincode.
const Length = 6

var (
	trailingPincode = regexp.MustCompile(`(?:^|\D)(\d{6})[\s.,-]*$`)
	anyPincode      = regexp.MustCompile(`(?:^|\D)(\d{6})(?:\D|$)`)
	segmentSplit    = regexp.MustCompile(`[,\n]`)
)

// Normalize strips non-digits and left-pads or truncates to six digits. It
// reports false when no digit is present at all.
func Normalize(raw string) (string, bool) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return "", false
	}
	if len(digits) > Length {
		return digits[:Length], true
	}
	return strings.Repeat("0", Length-len(digits)) + digits, true
}

// FromAddress extracts the pickup pincode from a free-form store address. A
// six digit token at the very end wins, then one inside the last comma or
// newline delimited segment, then the last token found anywhere. fallback is
// returned when the address carries none.
func FromAddress(address, fallback string) string {
	address = strings.TrimSpace(address)
	if address == "" {
		return fallback
	}
	if m := trailingPincode.FindStringSubmatch(address); m != nil {
		return m[1]
	}

	segments := segmentSplit.Split(address, -1)
	for i := len(segments) - 1; i >= 0; i-- {
		if m := anyPincode.FindStringSubmatch(segments[i]); m != nil {
			return m[1]
		}
	}
	return fallback
}
