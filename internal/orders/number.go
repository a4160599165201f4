package orders

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/db"
)

const maxOrderNumberAttempts = 5

// NewOrderNumber returns a human-readable order number such as
// ORD-20261015-3FA9C21B.
func NewOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return "ORD-" + now.UTC().Format("20060102") + "-" + suffix
}

func isOrderNumberConflict(err error) bool {
	return db.IsUniqueViolation(err, "idx_orders_order_number") ||
		db.IsUniqueViolation(err, "orders.order_number")
}
