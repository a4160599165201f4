package types

import "strings"

// Address is the shipping/billing snapshot stored with orders as JSON.
type Address struct {
	FullName string `json:"full_name" validate:"required"`
	Phone    string `json:"phone" validate:"required"`
	Line1    string `json:"line1" validate:"required"`
	Line2    string `json:"line2,omitempty"`
	City     string `json:"city" validate:"required"`
	State    string `json:"state" validate:"required"`
	Pincode  string `json:"pincode" validate:"required"`
}

// OneLine renders the street part of the address for provider payloads.
func (a Address) OneLine() string {
	parts := []string{strings.TrimSpace(a.Line1)}
	if line2 := strings.TrimSpace(a.Line2); line2 != "" {
		parts = append(parts, line2)
	}
	return strings.Join(parts, ", ")
}
