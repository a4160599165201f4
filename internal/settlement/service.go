// Package settlement credits merchant wallets once an order is delivered and
// paid. Each order is settled at most once.
package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/commission"
	"github.com/angelmondragon/bazaar-backend/internal/ledger"
	"github.com/angelmondragon/bazaar-backend/internal/orders"
	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/money"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type settingsSource interface {
	Current(ctx context.Context) (*models.SuperSetting, error)
}

type settlementNotifier interface {
	NotifyOrderSettled(ctx context.Context, ownerID uuid.UUID, order *models.Order, payout decimal.Decimal) bool
}

// Result describes the outcome of one settlement attempt.
type Result struct {
	OrderID        uuid.UUID
	Revenue        commission.OrderRevenue
	Transaction    *models.Transaction
	AlreadySettled bool
}

// Service settles delivered orders.
type Service interface {
	Settle(ctx context.Context, orderID uuid.UUID) (*Result, error)
	SettleOrder(ctx context.Context, orderID uuid.UUID) error
}

type service struct {
	tx       txRunner
	orders   orders.Repository
	ledger   ledger.Service
	txns     ledger.Repository
	settings settingsSource
	notifier settlementNotifier
	logg     *logger.Logger
}

// NewService wires the settlement service.
func NewService(tx txRunner, orderRepo orders.Repository, ledgerSvc ledger.Service, txns ledger.Repository, settings settingsSource, notifier settlementNotifier, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if ledgerSvc == nil || txns == nil {
		return nil, fmt.Errorf("ledger dependencies required")
	}
	if settings == nil {
		return nil, fmt.Errorf("settings source required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		tx:       tx,
		orders:   orderRepo,
		ledger:   ledgerSvc,
		txns:     txns,
		settings: settings,
		notifier: notifier,
		logg:     logg,
	}, nil
}

// SettleOrder implements orders.Settler.
func (s *service) SettleOrder(ctx context.Context, orderID uuid.UUID) error {
	_, err := s.Settle(ctx, orderID)
	return err
}

func (s *service) Settle(ctx context.Context, orderID uuid.UUID) (*Result, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	setting, err := s.settings.Current(ctx)
	if err != nil {
		return nil, err
	}
	rates := commission.RatesFrom(setting)
	logCtx := s.logg.WithOrderID(ctx, orderID.String())

	result := &Result{OrderID: orderID}
	var settled *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.orders.WithTx(tx)
		order, err := orderRepo.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock order")
		}
		if order.Status != enums.OrderStatusDelivered || order.PaymentStatus != enums.PaymentStatusSuccess {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only delivered and paid orders can be settled").
				WithDetails(map[string]any{"status": order.Status, "payment_status": order.PaymentStatus})
		}
		if order.Store == nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order has no store to settle against")
		}

		credited, err := s.txns.WithTx(tx).HasCompleted(ctx, order.ID, enums.TransactionTypeCommission)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check prior settlement")
		}
		if order.CommissionSettled {
			result.AlreadySettled = true
			return nil
		}
		if credited {
			return pkgerrors.New(pkgerrors.CodeConsistency, "order has a settlement transaction but is not flagged as settled")
		}

		revenue := commission.ComputeOrderRevenue(order, rates)
		result.Revenue = revenue

		if revenue.Payout.IsPositive() {
			orderRef := order.ID
			txn, err := s.ledger.Credit(ctx, tx, ledger.CreditInput{
				UserID:  order.Store.OwnerID,
				Amount:  revenue.Payout,
				Type:    enums.TransactionTypeCommission,
				OrderID: &orderRef,
				Description: fmt.Sprintf("Payout for order %s (commission %s)",
					order.OrderNumber, revenue.Commission.StringFixed(money.Places)),
			})
			if err != nil {
				return err
			}
			result.Transaction = txn
		}

		now := time.Now().UTC()
		if err := orderRepo.Update(ctx, order.ID, map[string]any{
			"commission_settled":    true,
			"commission_settled_at": now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "flag order settled")
		}
		settled = order
		return nil
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeConsistency) {
			s.logg.Error(logCtx, "settlement guard tripped", err)
		}
		return nil, err
	}

	if settled != nil {
		s.logg.Info(s.logg.WithFields(logCtx, map[string]any{
			"commission": result.Revenue.Commission.StringFixed(money.Places),
			"payout":     result.Revenue.Payout.StringFixed(money.Places),
		}), "order settled")
		s.notifier.NotifyOrderSettled(ctx, settled.Store.OwnerID, settled, result.Revenue.Payout)
	}
	return result, nil
}
