package enums

// PaymentSettingType identifies the payout destination a merchant registered.
type PaymentSettingType string

const (
	PaymentSettingTypeBankAccount PaymentSettingType = "bank_account"
	PaymentSettingTypeUPI         PaymentSettingType = "upi"
)

var validPaymentSettingTypes = []PaymentSettingType{
	PaymentSettingTypeBankAccount,
	PaymentSettingTypeUPI,
}

// String implements fmt.Stringer.
func (v PaymentSettingType) String() string {
	return string(v)
}

// IsValid reports whether the value is a known PaymentSettingType.
func (v PaymentSettingType) IsValid() bool {
	return oneOf(v, validPaymentSettingTypes)
}

// ParsePaymentSettingType converts raw input into a PaymentSettingType.
func ParsePaymentSettingType(value string) (PaymentSettingType, error) {
	return parseOneOf(value, validPaymentSettingTypes, "payment setting type")
}
