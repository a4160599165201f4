// Package payments collects online payments for temporary orders and
// reconciles gateway reports into per-vendor orders.
package payments

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/ledger"
	"github.com/angelmondragon/bazaar-backend/internal/orders"
	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/metrics"
	"github.com/angelmondragon/bazaar-backend/pkg/money"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type splitter interface {
	SplitPending(ctx context.Context, tx *gorm.DB, temp *models.Order) ([]models.Order, error)
	NotifyVendors(ctx context.Context, created []models.Order)
}

// InitiateInput starts a payment for a temporary order. Gateway defaults to
// the one implied by the order's payment method.
type InitiateInput struct {
	UserID  uuid.UUID
	OrderID uuid.UUID
	Gateway enums.Gateway
}

// CheckInput polls one attempt. A non-nil UserID restricts it to its payer.
type CheckInput struct {
	UserID          uuid.UUID
	MerchantOrderID string
}

// Result is the state of an attempt after reconciliation.
type Result struct {
	MerchantOrderID string
	State           State
	Transaction     *models.Transaction
	Orders          []models.Order
	// AlreadyFinal is set when the attempt had reached a terminal state before
	// this call and nothing was changed.
	AlreadyFinal bool
	// Ignored is set for callbacks that were acknowledged without a verdict.
	Ignored bool
}

// Service is the payment reconciliation engine.
type Service interface {
	Initiate(ctx context.Context, input InitiateInput) (*Initiation, error)
	Reconcile(ctx context.Context, merchantOrderID string, outcome Outcome) (*Result, error)
	CheckStatus(ctx context.Context, input CheckInput) (*Result, error)
	HandleCallback(ctx context.Context, gateway enums.Gateway, cb Callback) (*Result, error)
}

type service struct {
	tx       txRunner
	orders   orders.Repository
	txns     ledger.Repository
	splitter splitter
	gateways map[enums.Gateway]Gateway
	baseURL  string
	metrics  *metrics.PaymentMetrics
	now      func() time.Time
	logg     *logger.Logger
}

// NewService wires the reconciliation engine. publicBaseURL is where gateways
// send the customer back and post callbacks.
func NewService(tx txRunner, ordersRepo orders.Repository, txns ledger.Repository, split splitter, publicBaseURL string, recorder *metrics.PaymentMetrics, logg *logger.Logger, gateways ...Gateway) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if txns == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if split == nil {
		return nil, fmt.Errorf("checkout splitter required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	registry := make(map[enums.Gateway]Gateway, len(gateways))
	for _, gw := range gateways {
		if gw != nil {
			registry[gw.Name()] = gw
		}
	}
	return &service{
		tx:       tx,
		orders:   ordersRepo,
		txns:     txns,
		splitter: split,
		gateways: registry,
		baseURL:  strings.TrimRight(publicBaseURL, "/"),
		metrics:  recorder,
		now:      time.Now,
		logg:     logg,
	}, nil
}

func (s *service) Initiate(ctx context.Context, input InitiateInput) (*Initiation, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	temp, err := s.orders.FindByID(ctx, input.OrderID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if input.UserID != uuid.Nil && temp.UserID != input.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if !temp.IsTemporary() || temp.PaymentStatus != enums.PaymentStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting payment")
	}

	name := input.Gateway
	if name == "" {
		implied, ok := temp.PaymentMethod.Gateway()
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("payment method %s has no gateway", temp.PaymentMethod))
		}
		name = implied
	}
	gw, err := s.gateway(name)
	if err != nil {
		return nil, err
	}

	now := s.now()
	merchantOrderID := gw.NewMerchantOrderID(now)
	orderID := temp.ID
	gatewayName := gw.Name()
	txn := &models.Transaction{
		UserID:          temp.UserID,
		Type:            enums.TransactionTypeGatewayPayment,
		Status:          enums.TransactionStatusPending,
		Amount:          temp.TotalAmount,
		Description:     fmt.Sprintf("%s payment for %s", gatewayName, temp.OrderNumber),
		OrderID:         &orderID,
		Gateway:         &gatewayName,
		MerchantOrderID: &merchantOrderID,
	}
	if err := s.txns.Create(ctx, txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record payment attempt")
	}

	ctx = s.logg.WithMerchantOrderID(s.logg.WithOrderID(ctx, temp.ID.String()), merchantOrderID)
	initiation, err := gw.Initiate(ctx, InitiateRequest{
		MerchantOrderID: merchantOrderID,
		Order:           temp,
		Amount:          temp.TotalAmount,
		AmountPaise:     money.ToPaise(temp.TotalAmount),
		RedirectURL:     s.redirectURL(merchantOrderID),
		CallbackURL:     s.callbackURL(gatewayName),
		Now:             now,
	})
	if err != nil {
		if updateErr := s.txns.Update(ctx, txn.ID, map[string]any{"status": enums.TransactionStatusFailed}); updateErr != nil {
			s.logg.Error(ctx, "failed to close payment attempt after initiation error", updateErr)
		}
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "initiate payment")
	}

	if initiation.GatewayRef != "" {
		ref := initiation.GatewayRef
		if err := s.txns.Update(ctx, txn.ID, map[string]any{"gateway_ref": ref}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record gateway reference")
		}
		txn.GatewayRef = &ref
	}

	initiation.Gateway = gatewayName
	initiation.MerchantOrderID = merchantOrderID
	initiation.OrderID = temp.ID
	initiation.Amount = temp.TotalAmount
	s.logg.Info(ctx, "payment initiated")
	return initiation, nil
}

func (s *service) Reconcile(ctx context.Context, merchantOrderID string, outcome Outcome) (*Result, error) {
	merchantOrderID = strings.TrimSpace(merchantOrderID)
	if merchantOrderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant order id is required")
	}
	if outcome.State == "" {
		outcome.State = NormalizeStatus(outcome.Raw)
	}
	ctx = s.logg.WithMerchantOrderID(ctx, merchantOrderID)

	result := &Result{MerchantOrderID: merchantOrderID, State: outcome.State}
	gatewayLabel := ""
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txns := s.txns.WithTx(tx)
		txn, err := txns.FindByMerchantOrderIDForUpdate(ctx, merchantOrderID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payment attempt not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock payment attempt")
		}
		result.Transaction = txn
		if txn.Gateway != nil {
			gatewayLabel = txn.Gateway.String()
		}

		switch txn.Status {
		case enums.TransactionStatusCompleted:
			result.State = StateCompleted
			result.AlreadyFinal = true
			return nil
		case enums.TransactionStatusFailed, enums.TransactionStatusCancelled:
			if outcome.State == StateCompleted {
				return pkgerrors.New(pkgerrors.CodeConsistency, "gateway reports a captured payment for a closed attempt")
			}
			result.State = StateFailed
			result.AlreadyFinal = true
			return nil
		}

		switch outcome.State {
		case StateCompleted:
			if outcome.AmountPaise > 0 && outcome.AmountPaise != money.ToPaise(txn.Amount) {
				return pkgerrors.New(pkgerrors.CodeConsistency,
					fmt.Sprintf("gateway collected %d paise, attempt expects %d", outcome.AmountPaise, money.ToPaise(txn.Amount)))
			}
			created, err := s.complete(ctx, tx, txn, outcome.Details)
			if err != nil {
				return err
			}
			result.Orders = created
			return nil
		case StateFailed:
			return s.discard(ctx, tx, txn, enums.TransactionStatusFailed)
		default:
			return s.discard(ctx, tx, txn, enums.TransactionStatusPending)
		}
	})
	if err != nil {
		s.metrics.IncError(gatewayLabel)
		s.logg.Error(ctx, "payment reconciliation failed", err)
		return nil, err
	}

	if !result.AlreadyFinal {
		s.metrics.IncReconciled(gatewayLabel, string(result.State))
	}
	if len(result.Orders) > 0 {
		s.splitter.NotifyVendors(ctx, result.Orders)
	}
	return result, nil
}

// complete marks the attempt paid and splits the temporary order. Any failure
// rolls the whole unit back.
func (s *service) complete(ctx context.Context, tx *gorm.DB, txn *models.Transaction, details Details) ([]models.Order, error) {
	if txn.OrderID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConsistency, "payment attempt is not linked to an order")
	}
	ordersRepo := s.orders.WithTx(tx)
	temp, err := ordersRepo.FindByIDForUpdate(ctx, *txn.OrderID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConsistency, "payment captured but the temporary order no longer exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock temporary order")
	}
	if !temp.IsTemporary() {
		return nil, pkgerrors.New(pkgerrors.CodeConsistency, "payment attempt points at an order that was already split")
	}

	if err := ordersRepo.Update(ctx, temp.ID, map[string]any{
		"payment_status": enums.PaymentStatusSuccess,
		"status":         enums.OrderStatusConfirmed,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "confirm temporary order")
	}
	temp.PaymentStatus = enums.PaymentStatusSuccess
	temp.Status = enums.OrderStatusConfirmed

	created, err := s.splitter.SplitPending(ctx, tx, temp)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConsistency, err, "payment captured but the checkout could not be split")
	}
	if len(created) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConsistency, "payment captured but the checkout produced no orders")
	}

	fields := map[string]any{
		"status":   enums.TransactionStatusCompleted,
		"order_id": created[0].ID,
	}
	setIfPresent(fields, "utr", details.UTR)
	setIfPresent(fields, "vpa", details.VPA)
	setIfPresent(fields, "bank_id", details.BankID)
	if txn.GatewayRef == nil {
		setIfPresent(fields, "gateway_ref", details.GatewayTxnID)
	}
	if err := s.txns.WithTx(tx).Update(ctx, txn.ID, fields); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "complete payment attempt")
	}

	firstID := created[0].ID
	txn.Status = enums.TransactionStatusCompleted
	txn.OrderID = &firstID
	s.logg.Info(s.logg.WithField(ctx, "vendor_orders", len(created)), "payment completed and checkout split")
	return created, nil
}

// discard records a non-successful outcome and drops the temporary order so
// the customer restarts checkout.
func (s *service) discard(ctx context.Context, tx *gorm.DB, txn *models.Transaction, status enums.TransactionStatus) error {
	if txn.Status != status {
		if err := s.txns.WithTx(tx).Update(ctx, txn.ID, map[string]any{"status": status}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update payment attempt")
		}
		txn.Status = status
	}
	if txn.OrderID == nil {
		return nil
	}

	ordersRepo := s.orders.WithTx(tx)
	temp, err := ordersRepo.FindByIDForUpdate(ctx, *txn.OrderID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock temporary order")
	}
	if !temp.IsTemporary() {
		return nil
	}
	if err := ordersRepo.Delete(ctx, temp.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete temporary order")
	}
	if err := ordersRepo.DeletePendingCheckout(ctx, *temp.PendingCheckoutID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete pending checkout")
	}
	s.logg.Info(s.logg.WithOrderID(ctx, temp.ID.String()), "temporary order discarded")
	return nil
}

func (s *service) CheckStatus(ctx context.Context, input CheckInput) (*Result, error) {
	merchantOrderID := strings.TrimSpace(input.MerchantOrderID)
	if merchantOrderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant order id is required")
	}
	txn, err := s.txns.FindByMerchantOrderID(ctx, merchantOrderID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment attempt not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment attempt")
	}
	if input.UserID != uuid.Nil && txn.UserID != input.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment attempt not found")
	}
	if txn.Status == enums.TransactionStatusCompleted {
		return &Result{MerchantOrderID: merchantOrderID, State: StateCompleted, Transaction: txn, AlreadyFinal: true}, nil
	}
	if txn.Gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment attempt has no gateway")
	}
	gw, err := s.gateway(*txn.Gateway)
	if err != nil {
		return nil, err
	}
	outcome, err := gw.Status(ctx, txn)
	if err != nil {
		s.metrics.IncError(txn.Gateway.String())
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "poll payment status")
	}
	return s.Reconcile(ctx, merchantOrderID, *outcome)
}

func (s *service) HandleCallback(ctx context.Context, gateway enums.Gateway, cb Callback) (*Result, error) {
	gw, err := s.gateway(gateway)
	if err != nil {
		return nil, err
	}
	parsed, err := gw.ParseCallback(ctx, cb)
	if err != nil {
		return nil, err
	}

	if parsed.Outcome.State == "" {
		parsed.Outcome.State = NormalizeStatus(parsed.Outcome.Raw)
	}
	// A pushed PENDING leaves the attempt open for a later callback or the poller.
	if parsed.Ignored || parsed.Outcome.State == StatePending {
		return s.acknowledge(ctx, gateway, parsed), nil
	}

	merchantOrderID := parsed.MerchantOrderID
	if merchantOrderID == "" {
		if parsed.GatewayRef == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "callback does not identify a payment attempt")
		}
		merchantOrderID, err = s.txns.FindMerchantOrderIDByGatewayRef(ctx, gateway, parsed.GatewayRef)
		if err != nil {
			if db.IsNotFound(err) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment attempt not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve gateway reference")
		}
	}
	return s.Reconcile(ctx, merchantOrderID, parsed.Outcome)
}

func (s *service) acknowledge(ctx context.Context, gateway enums.Gateway, parsed *CallbackResult) *Result {
	merchantOrderID := parsed.MerchantOrderID
	if merchantOrderID == "" && parsed.GatewayRef != "" {
		if resolved, err := s.txns.FindMerchantOrderIDByGatewayRef(ctx, gateway, parsed.GatewayRef); err == nil {
			merchantOrderID = resolved
		}
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"gateway_ref": parsed.GatewayRef, "gateway_status": parsed.Outcome.Raw})
	s.logg.Info(s.logg.WithMerchantOrderID(ctx, merchantOrderID), "payment callback carries no verdict")
	return &Result{MerchantOrderID: merchantOrderID, State: StatePending, Ignored: true}
}

func (s *service) gateway(name enums.Gateway) (Gateway, error) {
	gw, ok := s.gateways[name]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("gateway %q is not configured", name))
	}
	return gw, nil
}

func (s *service) redirectURL(merchantOrderID string) string {
	return s.baseURL + "/api/public/payments/return?merchant_order_id=" + url.QueryEscape(merchantOrderID)
}

func (s *service) callbackURL(gateway enums.Gateway) string {
	return s.baseURL + "/api/v1/webhooks/" + gateway.String()
}

func setIfPresent(fields map[string]any, column, value string) {
	if value = strings.TrimSpace(value); value != "" {
		fields[column] = value
	}
}
