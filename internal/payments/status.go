package payments

import "strings"

// State is the internal tri-state every gateway vocabulary collapses into.
type State string

const (
	StateCompleted State = "COMPLETED"
	StateFailed    State = "FAILED"
	StatePending   State = "PENDING"
)

var completedStatuses = map[string]struct{}{
	"SUCCESS":         {},
	"PAYMENT_SUCCESS": {},
	"PAID":            {},
	"COMPLETED":       {},
	"CAPTURED":        {},
}

var failedStatuses = map[string]struct{}{
	"FAILED":         {},
	"PAYMENT_FAILED": {},
	"FAILURE":        {},
	"CANCELLED":      {},
	"DECLINED":       {},
}

// NormalizeStatus maps a raw gateway status onto State. Unknown values are
// PENDING.
func NormalizeStatus(raw string) State {
	key := strings.ToUpper(strings.TrimSpace(raw))
	if _, ok := completedStatuses[key]; ok {
		return StateCompleted
	}
	if _, ok := failedStatuses[key]; ok {
		return StateFailed
	}
	return StatePending
}
