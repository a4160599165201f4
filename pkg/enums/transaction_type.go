package enums

// TransactionType classifies a ledger row.
type TransactionType string

const (
	TransactionTypeCommission          TransactionType = "commission"
	TransactionTypeWithdrawal          TransactionType = "withdrawal"
	TransactionTypeWithdrawalProcessed TransactionType = "withdrawal_processed"
	TransactionTypeGatewayPayment      TransactionType = "gateway_payment"
	TransactionTypePayout              TransactionType = "payout"
)

var validTransactionTypes = []TransactionType{
	TransactionTypeCommission,
	TransactionTypeWithdrawal,
	TransactionTypeWithdrawalProcessed,
	TransactionTypeGatewayPayment,
	TransactionTypePayout,
}

// String implements fmt.Stringer.
func (v TransactionType) String() string {
	return string(v)
}

// IsValid reports whether the value is a known TransactionType.
func (v TransactionType) IsValid() bool {
	return oneOf(v, validTransactionTypes)
}

// ParseTransactionType converts raw input into a TransactionType.
func ParseTransactionType(value string) (TransactionType, error) {
	return parseOneOf(value, validTransactionTypes, "transaction type")
}
