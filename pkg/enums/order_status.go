package enums

// OrderStatus tracks an order from placement through delivery or cancellation.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusAccepted  OrderStatus = "accepted"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusRejected  OrderStatus = "rejected"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRefunded  OrderStatus = "refunded"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusAccepted,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusRejected,
	OrderStatusCancelled,
	OrderStatusRefunded,
}

// String implements fmt.Stringer.
func (v OrderStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known OrderStatus.
func (v OrderStatus) IsValid() bool {
	return oneOf(v, validOrderStatuses)
}

// ParseOrderStatus converts raw input into a OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	return parseOneOf(value, validOrderStatuses, "order status")
}

// IsTerminal reports whether no further lifecycle transition is expected.
func (v OrderStatus) IsTerminal() bool {
	switch v {
	case OrderStatusDelivered, OrderStatusRejected, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

// Progress orders the fulfilment path so tracking updates can only move forward.
// Statuses off the fulfilment path report -1.
func (v OrderStatus) Progress() int {
	switch v {
	case OrderStatusPending, OrderStatusConfirmed:
		return 0
	case OrderStatusAccepted:
		return 1
	case OrderStatusShipped:
		return 2
	case OrderStatusDelivered:
		return 3
	}
	return -1
}
