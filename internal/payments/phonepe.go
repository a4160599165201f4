package payments

import (
	"context"
	"time"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/gateways/phonepe"
)

type phonePeAPI interface {
	Pay(ctx context.Context, req phonepe.PayRequest) (*phonepe.PayResponse, error)
	OrderStatus(ctx context.Context, merchantOrderID string) (*phonepe.OrderStatus, error)
	VerifyCallback(authorization string, body []byte) (*phonepe.CallbackEvent, error)
}

// PhonePeGateway drives the redirect checkout.
type PhonePeGateway struct {
	api phonePeAPI
}

// NewPhonePeGateway wraps a PhonePe client.
func NewPhonePeGateway(api phonePeAPI) *PhonePeGateway {
	return &PhonePeGateway{api: api}
}

func (g *PhonePeGateway) Name() enums.Gateway {
	return enums.GatewayPhonePe
}

func (g *PhonePeGateway) NewMerchantOrderID(now time.Time) string {
	return phonepe.NewMerchantOrderID(now)
}

func (g *PhonePeGateway) Initiate(ctx context.Context, req InitiateRequest) (*Initiation, error) {
	resp, err := g.api.Pay(ctx, phonepe.PayRequest{
		MerchantOrderID: req.MerchantOrderID,
		AmountPaise:     req.AmountPaise,
		RedirectURL:     req.RedirectURL,
	})
	if err != nil {
		return nil, err
	}
	return &Initiation{GatewayRef: resp.OrderID, RedirectURL: resp.RedirectURL}, nil
}

func (g *PhonePeGateway) Status(ctx context.Context, txn *models.Transaction) (*Outcome, error) {
	if txn.MerchantOrderID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction has no merchant order id")
	}
	status, err := g.api.OrderStatus(ctx, *txn.MerchantOrderID)
	if err != nil {
		return nil, err
	}
	outcome := phonePeOutcome(status)
	return &outcome, nil
}

func (g *PhonePeGateway) ParseCallback(_ context.Context, cb Callback) (*CallbackResult, error) {
	event, err := g.api.VerifyCallback(cb.Authorization, cb.Body)
	if err != nil {
		return nil, err
	}
	return &CallbackResult{
		MerchantOrderID: event.Payload.MerchantOrderID,
		GatewayRef:      event.Payload.OrderID,
		Outcome:         phonePeOutcome(&event.Payload),
	}, nil
}

func phonePeOutcome(status *phonepe.OrderStatus) Outcome {
	outcome := Outcome{
		State:       NormalizeStatus(status.State),
		Raw:         status.State,
		AmountPaise: status.Amount,
	}
	if attempt := status.LatestAttempt(); attempt != nil {
		outcome.Details = Details{
			UTR:          attempt.Rail.UTR,
			VPA:          attempt.Rail.VPA,
			BankID:       attempt.Instrument.BankID,
			GatewayTxnID: attempt.TransactionID,
		}
	}
	return outcome
}
