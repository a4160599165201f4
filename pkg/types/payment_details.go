package types

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	ifscPattern = regexp.MustCompile(`^[A-Z]{4}0[A-Z0-9]{6}$`)
	vpaPattern  = regexp.MustCompile(`^[a-zA-Z0-9.\-_]{2,256}@[a-zA-Z]{2,64}$`)
)

// BankAccountDetails is the payout destination for bank_account settings.
type BankAccountDetails struct {
	AccountHolder string `json:"account_holder"`
	AccountNumber string `json:"account_number"`
	IFSC          string `json:"ifsc"`
	BankName      string `json:"bank_name,omitempty"`
}

// UPIDetails is the payout destination for upi settings.
type UPIDetails struct {
	VPA string `json:"vpa"`
}

// PaymentDetails holds exactly one of the per-type payout structures.
type PaymentDetails struct {
	BankAccount *BankAccountDetails `json:"bank_account,omitempty"`
	UPI         *UPIDetails         `json:"upi,omitempty"`
}

func (b BankAccountDetails) Validate() error {
	if strings.TrimSpace(b.AccountHolder) == "" {
		return fmt.Errorf("account holder is required")
	}
	digits := strings.TrimSpace(b.AccountNumber)
	if len(digits) < 9 || len(digits) > 18 {
		return fmt.Errorf("account number must be 9 to 18 digits")
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return fmt.Errorf("account number must be numeric")
		}
	}
	if !ifscPattern.MatchString(strings.ToUpper(strings.TrimSpace(b.IFSC))) {
		return fmt.Errorf("invalid IFSC code %q", b.IFSC)
	}
	return nil
}

func (u UPIDetails) Validate() error {
	if !vpaPattern.MatchString(strings.TrimSpace(u.VPA)) {
		return fmt.Errorf("invalid UPI id %q", u.VPA)
	}
	return nil
}

// Fingerprint identifies the payout destination regardless of cosmetic
// differences, used to reject duplicates for the same merchant.
func (p PaymentDetails) Fingerprint() string {
	switch {
	case p.BankAccount != nil:
		return "bank:" + strings.ToUpper(strings.TrimSpace(p.BankAccount.IFSC)) + ":" + strings.TrimSpace(p.BankAccount.AccountNumber)
	case p.UPI != nil:
		return "upi:" + strings.ToLower(strings.TrimSpace(p.UPI.VPA))
	}
	return ""
}
