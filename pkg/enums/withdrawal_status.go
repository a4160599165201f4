package enums

// WithdrawalStatus tracks a merchant cash-out request.
type WithdrawalStatus string

const (
	WithdrawalStatusPending    WithdrawalStatus = "pending"
	WithdrawalStatusApproved   WithdrawalStatus = "approved"
	WithdrawalStatusProcessing WithdrawalStatus = "processing"
	WithdrawalStatusRejected   WithdrawalStatus = "rejected"
)

var validWithdrawalStatuses = []WithdrawalStatus{
	WithdrawalStatusPending,
	WithdrawalStatusApproved,
	WithdrawalStatusProcessing,
	WithdrawalStatusRejected,
}

// String implements fmt.Stringer.
func (v WithdrawalStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known WithdrawalStatus.
func (v WithdrawalStatus) IsValid() bool {
	return oneOf(v, validWithdrawalStatuses)
}

// ParseWithdrawalStatus converts raw input into a WithdrawalStatus.
func ParseWithdrawalStatus(value string) (WithdrawalStatus, error) {
	return parseOneOf(value, validWithdrawalStatuses, "withdrawal status")
}

// ReservedWithdrawalStatuses hold part of the wallet until they resolve.
var ReservedWithdrawalStatuses = []WithdrawalStatus{
	WithdrawalStatusPending,
	WithdrawalStatusApproved,
	WithdrawalStatusProcessing,
}
