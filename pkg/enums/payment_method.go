package enums

// PaymentMethod identifies how the customer pays for a checkout.
type PaymentMethod string

const (
	PaymentMethodCOD      PaymentMethod = "cod"
	PaymentMethodOnline   PaymentMethod = "online"
	PaymentMethodPhonePe  PaymentMethod = "phonepe"
	PaymentMethodRazorpay PaymentMethod = "razorpay"
	PaymentMethodSabPaisa PaymentMethod = "sabpaisa"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodCOD,
	PaymentMethodOnline,
	PaymentMethodPhonePe,
	PaymentMethodRazorpay,
	PaymentMethodSabPaisa,
}

// String implements fmt.Stringer.
func (v PaymentMethod) String() string {
	return string(v)
}

// IsValid reports whether the value is a known PaymentMethod.
func (v PaymentMethod) IsValid() bool {
	return oneOf(v, validPaymentMethods)
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	return parseOneOf(value, validPaymentMethods, "payment method")
}

// IsDeferred reports whether the order must wait for a gateway confirmation
// before it is split per vendor.
func (v PaymentMethod) IsDeferred() bool {
	return v != PaymentMethodCOD
}

// Gateway returns the gateway behind an online payment method. Plain "online"
// payments go through Razorpay's SDK flow.
func (v PaymentMethod) Gateway() (Gateway, bool) {
	switch v {
	case PaymentMethodPhonePe:
		return GatewayPhonePe, true
	case PaymentMethodRazorpay, PaymentMethodOnline:
		return GatewayRazorpay, true
	case PaymentMethodSabPaisa:
		return GatewaySabPaisa, true
	}
	return "", false
}

// IsOnline reports whether payment is collected through a gateway before the
// cart is split.
func (v PaymentMethod) IsOnline() bool {
	switch v {
	case PaymentMethodOnline, PaymentMethodPhonePe, PaymentMethodRazorpay, PaymentMethodSabPaisa:
		return true
	}
	return false
}
