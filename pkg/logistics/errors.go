package logistics

import (
	"regexp"
	"strings"
)

var notServiceable = regexp.MustCompile(`non?[\s_-]*servic(e|ea)(able|d)`)

// IsServiceabilityError reports whether err says the lane's pincode is not
// served by the courier, which means the next courier should be tried.
func IsServiceabilityError(err error) bool {
	if err == nil {
		return false
	}
	text := strings.ToLower(err.Error())
	if !strings.Contains(text, "pincode") && !strings.Contains(text, "pin code") {
		return false
	}
	return notServiceable.MatchString(text) || strings.Contains(text, "not serviceable") || strings.Contains(text, "not serviced")
}
