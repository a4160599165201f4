package enums

// Gateway names the payment gateway that handled a transaction.
type Gateway string

const (
	GatewayPhonePe  Gateway = "phonepe"
	GatewayRazorpay Gateway = "razorpay"
	GatewaySabPaisa Gateway = "sabpaisa"
)

var validGateways = []Gateway{
	GatewayPhonePe,
	GatewayRazorpay,
	GatewaySabPaisa,
}

// String implements fmt.Stringer.
func (v Gateway) String() string {
	return string(v)
}

// IsValid reports whether the value is a known Gateway.
func (v Gateway) IsValid() bool {
	return oneOf(v, validGateways)
}

// ParseGateway converts raw input into a Gateway.
func ParseGateway(value string) (Gateway, error) {
	return parseOneOf(value, validGateways, "gateway")
}
