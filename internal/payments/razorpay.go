package payments

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/gateways/razorpay"
)

type razorpayAPI interface {
	KeyID() string
	CreateOrder(ctx context.Context, amountPaise int64, receipt string) (*razorpay.Order, error)
	FetchPayment(ctx context.Context, paymentID string) (*razorpay.Payment, error)
	OrderPayments(ctx context.Context, orderID string) ([]razorpay.Payment, error)
	VerifyPaymentSignature(orderID, paymentID, signature string) error
	ParseWebhook(body []byte, signature string) (*razorpay.WebhookEvent, error)
}

// RazorpayGateway drives the SDK checkout. The razorpay order id is kept as
// the transaction's gateway reference.
type RazorpayGateway struct {
	api razorpayAPI
}

// NewRazorpayGateway wraps a Razorpay client.
func NewRazorpayGateway(api razorpayAPI) *RazorpayGateway {
	return &RazorpayGateway{api: api}
}

func (g *RazorpayGateway) Name() enums.Gateway {
	return enums.GatewayRazorpay
}

func (g *RazorpayGateway) NewMerchantOrderID(now time.Time) string {
	return razorpay.NewReceipt(now)
}

func (g *RazorpayGateway) Initiate(ctx context.Context, req InitiateRequest) (*Initiation, error) {
	order, err := g.api.CreateOrder(ctx, req.AmountPaise, req.MerchantOrderID)
	if err != nil {
		return nil, err
	}
	return &Initiation{
		GatewayRef: order.ID,
		SDK: &SDKToken{
			KeyID:       g.api.KeyID(),
			OrderID:     order.ID,
			AmountPaise: order.Amount,
			Currency:    order.Currency,
		},
	}, nil
}

// Status looks at every attempt against the razorpay order: any captured
// payment wins, otherwise an open attempt keeps it pending.
func (g *RazorpayGateway) Status(ctx context.Context, txn *models.Transaction) (*Outcome, error) {
	if txn.GatewayRef == nil || *txn.GatewayRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction has no razorpay order")
	}
	payments, err := g.api.OrderPayments(ctx, *txn.GatewayRef)
	if err != nil {
		return nil, err
	}
	if len(payments) == 0 {
		return &Outcome{State: StatePending, Raw: "created"}, nil
	}
	allFailed := true
	for i := range payments {
		state := NormalizeStatus(payments[i].Status)
		if state == StateCompleted {
			return razorpayOutcome(&payments[i])
		}
		if state != StateFailed {
			allFailed = false
		}
	}
	if allFailed {
		return razorpayOutcome(&payments[0])
	}
	return &Outcome{State: StatePending, Raw: payments[0].Status}, nil
}

// Only these webhook events settle an attempt; payment.authorized and the
// rest arrive ahead of or beside them.
var razorpayVerdictEvents = map[string]bool{
	"payment.captured": true,
	"payment.failed":   true,
	"order.paid":       true,
}

type checkoutConfirmation struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

// ParseCallback accepts either a signed webhook (Signature set) or the
// checkout confirmation the app posts after the SDK returns.
func (g *RazorpayGateway) ParseCallback(ctx context.Context, cb Callback) (*CallbackResult, error) {
	if cb.Signature != "" {
		event, err := g.api.ParseWebhook(cb.Body, cb.Signature)
		if err != nil {
			return nil, err
		}
		payment := &event.Payload.Payment.Entity
		if !razorpayVerdictEvents[event.Event] {
			ref := payment.OrderID
			if ref == "" {
				ref = event.Payload.Order.Entity.ID
			}
			return &CallbackResult{
				MerchantOrderID: event.Payload.Order.Entity.Receipt,
				GatewayRef:      ref,
				Outcome:         Outcome{State: StatePending, Raw: event.Event},
				Ignored:         true,
			}, nil
		}
		if payment.ID == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "razorpay webhook "+event.Event+" carries no payment")
		}
		outcome, err := razorpayOutcome(payment)
		if err != nil {
			return nil, err
		}
		return &CallbackResult{
			MerchantOrderID: event.Payload.Order.Entity.Receipt,
			GatewayRef:      payment.OrderID,
			Outcome:         *outcome,
		}, nil
	}

	var confirmation checkoutConfirmation
	if err := json.Unmarshal(cb.Body, &confirmation); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode razorpay confirmation")
	}
	if err := g.api.VerifyPaymentSignature(confirmation.OrderID, confirmation.PaymentID, confirmation.Signature); err != nil {
		return nil, err
	}
	payment, err := g.api.FetchPayment(ctx, confirmation.PaymentID)
	if err != nil {
		return nil, err
	}
	if payment.OrderID != "" && payment.OrderID != confirmation.OrderID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "razorpay payment belongs to a different order")
	}
	outcome, err := razorpayOutcome(payment)
	if err != nil {
		return nil, err
	}
	// With auto-capture the SDK returns while the payment is still authorized.
	return &CallbackResult{
		GatewayRef: confirmation.OrderID,
		Outcome:    *outcome,
		Ignored:    outcome.State == StatePending,
	}, nil
}

func razorpayOutcome(payment *razorpay.Payment) (*Outcome, error) {
	state := NormalizeStatus(payment.Status)
	if state == StateCompleted {
		if err := razorpay.VerifyCaptured(payment, 0); err != nil {
			return nil, err
		}
	}
	return &Outcome{
		State:       state,
		Raw:         strings.ToLower(payment.Status),
		AmountPaise: payment.Amount,
		Details: Details{
			UTR:          payment.Reference(),
			VPA:          payment.VPA,
			BankID:       payment.Bank,
			GatewayTxnID: payment.ID,
		},
	}, nil
}
