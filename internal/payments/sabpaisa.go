package payments

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/gateways/sabpaisa"
	"github.com/angelmondragon/bazaar-backend/pkg/money"
)

type sabPaisaAPI interface {
	BuildForm(req sabpaisa.FormRequest) (*sabpaisa.Form, error)
	DecryptResponse(encResponse string) (*sabpaisa.Response, error)
	Enquire(ctx context.Context, clientTxnID string) (*sabpaisa.Response, error)
}

// SabPaisaGateway drives the encrypted form post checkout.
type SabPaisaGateway struct {
	api sabPaisaAPI
}

// NewSabPaisaGateway wraps a SabPaisa client.
func NewSabPaisaGateway(api sabPaisaAPI) *SabPaisaGateway {
	return &SabPaisaGateway{api: api}
}

func (g *SabPaisaGateway) Name() enums.Gateway {
	return enums.GatewaySabPaisa
}

func (g *SabPaisaGateway) NewMerchantOrderID(now time.Time) string {
	return sabpaisa.NewClientTxnID(now)
}

func (g *SabPaisaGateway) Initiate(_ context.Context, req InitiateRequest) (*Initiation, error) {
	order := req.Order
	form, err := g.api.BuildForm(sabpaisa.FormRequest{
		ClientTxnID: req.MerchantOrderID,
		Amount:      req.Amount,
		CallbackURL: req.CallbackURL,
		Payer: sabpaisa.Payer{
			Name:    order.ShippingAddress.FullName,
			Mobile:  order.Phone,
			Address: order.ShippingAddress.OneLine(),
		},
		Now: req.Now,
	})
	if err != nil {
		return nil, err
	}
	return &Initiation{Form: form}, nil
}

func (g *SabPaisaGateway) Status(ctx context.Context, txn *models.Transaction) (*Outcome, error) {
	if txn.MerchantOrderID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction has no client txn id")
	}
	resp, err := g.api.Enquire(ctx, *txn.MerchantOrderID)
	if err != nil {
		return nil, err
	}
	outcome := sabPaisaOutcome(resp)
	return &outcome, nil
}

func (g *SabPaisaGateway) ParseCallback(_ context.Context, cb Callback) (*CallbackResult, error) {
	enc, err := sabpaisa.ParseCallbackBody(cb.Body)
	if err != nil {
		return nil, err
	}
	resp, err := g.api.DecryptResponse(enc)
	if err != nil {
		return nil, err
	}
	return &CallbackResult{MerchantOrderID: resp.ClientTxnID, Outcome: sabPaisaOutcome(resp)}, nil
}

func sabPaisaOutcome(resp *sabpaisa.Response) Outcome {
	outcome := Outcome{
		State: NormalizeStatus(resp.State()),
		Raw:   resp.StatusCode,
		Details: Details{
			UTR:          resp.BankTxnID,
			BankID:       resp.BankName,
			GatewayTxnID: resp.SabPaisaTxnID,
		},
	}
	if paid, err := decimal.NewFromString(resp.PaidAmount); err == nil && paid.IsPositive() {
		outcome.AmountPaise = money.ToPaise(paid)
	}
	return outcome
}
