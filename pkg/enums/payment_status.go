package enums

// PaymentStatus is the customer-facing payment outcome stored on an order.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusSuccess PaymentStatus = "success"
	PaymentStatusFailed  PaymentStatus = "failed"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusSuccess,
	PaymentStatusFailed,
}

// String implements fmt.Stringer.
func (v PaymentStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known PaymentStatus.
func (v PaymentStatus) IsValid() bool {
	return oneOf(v, validPaymentStatuses)
}

// ParsePaymentStatus converts raw input into a PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	return parseOneOf(value, validPaymentStatuses, "payment status")
}
