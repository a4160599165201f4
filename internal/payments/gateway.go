package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/gateways/sabpaisa"
)

// Gateway adapts one payment provider to the reconciliation engine.
type Gateway interface {
	Name() enums.Gateway
	NewMerchantOrderID(now time.Time) string
	Initiate(ctx context.Context, req InitiateRequest) (*Initiation, error)
	Status(ctx context.Context, txn *models.Transaction) (*Outcome, error)
	ParseCallback(ctx context.Context, cb Callback) (*CallbackResult, error)
}

// InitiateRequest is what a gateway needs to start collecting payment for a
// temporary order.
type InitiateRequest struct {
	MerchantOrderID string
	Order           *models.Order
	Amount          decimal.Decimal
	AmountPaise     int64
	RedirectURL     string
	CallbackURL     string
	Now             time.Time
}

// Initiation is returned to the client app. Exactly one of RedirectURL, SDK
// or Form is set depending on the gateway.
type Initiation struct {
	Gateway         enums.Gateway   `json:"gateway"`
	MerchantOrderID string          `json:"merchant_order_id"`
	OrderID         uuid.UUID       `json:"order_id"`
	Amount          decimal.Decimal `json:"amount"`
	GatewayRef      string          `json:"gateway_ref,omitempty"`
	RedirectURL     string          `json:"redirect_url,omitempty"`
	SDK             *SDKToken       `json:"sdk,omitempty"`
	Form            *sabpaisa.Form  `json:"form,omitempty"`
}

// SDKToken carries what the mobile SDK needs to open its checkout.
type SDKToken struct {
	KeyID       string `json:"key_id"`
	OrderID     string `json:"order_id"`
	AmountPaise int64  `json:"amount"`
	Currency    string `json:"currency"`
}

// Details are the bank-side references captured on success.
type Details struct {
	UTR          string
	VPA          string
	BankID       string
	GatewayTxnID string
}

// Outcome is a normalized gateway report for one merchant order.
type Outcome struct {
	State State
	Raw   string
	// AmountPaise is what the gateway says was collected; zero when unknown.
	AmountPaise int64
	Details     Details
}

// Callback is the raw material of an inbound gateway notification.
type Callback struct {
	Authorization string
	Signature     string
	Body          []byte
}

// CallbackResult identifies the attempt a verified callback refers to. When
// the gateway does not echo our merchant order id, GatewayRef is set instead.
//
// Ignored marks a delivery that carries no verdict, such as an authorization
// notice ahead of capture. It is acknowledged and the attempt is left open.
type CallbackResult struct {
	MerchantOrderID string
	GatewayRef      string
	Outcome         Outcome
	Ignored         bool
}
