package enums

// TransactionStatus tracks a ledger row's settlement state.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusCancelled TransactionStatus = "cancelled"
)

var validTransactionStatuses = []TransactionStatus{
	TransactionStatusPending,
	TransactionStatusCompleted,
	TransactionStatusFailed,
	TransactionStatusCancelled,
}

// String implements fmt.Stringer.
func (v TransactionStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known TransactionStatus.
func (v TransactionStatus) IsValid() bool {
	return oneOf(v, validTransactionStatuses)
}

// ParseTransactionStatus converts raw input into a TransactionStatus.
func ParseTransactionStatus(value string) (TransactionStatus, error) {
	return parseOneOf(value, validTransactionStatuses, "transaction status")
}
