package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines order lifecycle operations beyond repository reads.
type Service interface {
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListForCustomer(ctx context.Context, userID uuid.UUID, limit int) ([]models.Order, error)
	ListForStore(ctx context.Context, storeID uuid.UUID, limit int) ([]models.Order, error)
	Reject(ctx context.Context, input RejectInput) (*models.Order, error)
	Advance(ctx context.Context, input AdvanceInput) (*AdvanceResult, error)
}

// RejectInput carries a merchant's refusal of a new order.
type RejectInput struct {
	OrderID    uuid.UUID
	MerchantID uuid.UUID
	Reason     string
}

// AdvanceInput moves an order along the fulfilment path. Status changes that
// would move the order backwards are ignored; the remaining fields are only
// filled when still empty.
type AdvanceInput struct {
	OrderID        uuid.UUID
	Status         enums.OrderStatus
	ProviderStatus *string
	PickupDate     *time.Time
	DeliveredDate  *time.Time
}

// AdvanceResult reports what Advance changed.
type AdvanceResult struct {
	Order         *models.Order
	StatusChanged bool
	Settled       bool
}

type service struct {
	repo    Repository
	tx      txRunner
	settler Settler
	logg    *logger.Logger
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository, tx txRunner, settler Settler, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if settler == nil {
		return nil, fmt.Errorf("settler required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, tx: tx, settler: settler, logg: logg}, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, mapLoadError(err)
	}
	return order, nil
}

func (s *service) ListForCustomer(ctx context.Context, userID uuid.UUID, limit int) ([]models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return s.repo.ListByUser(ctx, userID, limit)
}

func (s *service) ListForStore(ctx context.Context, storeID uuid.UUID, limit int) ([]models.Order, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	return s.repo.ListByStore(ctx, storeID, limit)
}

func (s *service) Reject(ctx context.Context, input RejectInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.MerchantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection reason is required")
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, input.OrderID)
		if err != nil {
			return mapLoadError(err)
		}
		if err := EnsureMerchantOwns(order, input.MerchantID); err != nil {
			return err
		}
		if order.Status == enums.OrderStatusRejected {
			result = order
			return nil
		}
		if order.Status != enums.OrderStatusPending && order.Status != enums.OrderStatusConfirmed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order in status %s cannot be rejected", order.Status))
		}

		if err := repo.Update(ctx, order.ID, map[string]any{
			"status":           enums.OrderStatusRejected,
			"rejection_reason": reason,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reject order")
		}
		order.Status = enums.OrderStatusRejected
		order.RejectionReason = &reason
		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) Advance(ctx context.Context, input AdvanceInput) (*AdvanceResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Status != "" && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", input.Status))
	}

	result := &AdvanceResult{}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, input.OrderID)
		if err != nil {
			return mapLoadError(err)
		}

		updates := map[string]any{}
		if input.ProviderStatus != nil {
			updates["shipment_status"] = *input.ProviderStatus
			order.ShipmentStatus = input.ProviderStatus
		}
		if input.PickupDate != nil && order.PickupDate == nil {
			updates["pickup_date"] = *input.PickupDate
			order.PickupDate = input.PickupDate
		}
		if input.DeliveredDate != nil && order.DeliveredDate == nil {
			updates["delivered_date"] = *input.DeliveredDate
			order.DeliveredDate = input.DeliveredDate
		}

		if CanAdvance(order.Status, input.Status) {
			updates["status"] = input.Status
			order.Status = input.Status
			result.StatusChanged = true

			if input.Status == enums.OrderStatusDelivered {
				if order.DeliveredDate == nil {
					now := time.Now().UTC()
					updates["delivered_date"] = now
					order.DeliveredDate = &now
				}
				// Cash on delivery is collected by the courier at hand-over.
				if order.PaymentMethod == enums.PaymentMethodCOD && order.PaymentStatus == enums.PaymentStatusPending {
					updates["payment_status"] = enums.PaymentStatusSuccess
					order.PaymentStatus = enums.PaymentStatusSuccess
				}
			}
		}

		result.Order = order
		if len(updates) == 0 {
			return nil
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order progress")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order := result.Order
	if order.Status != enums.OrderStatusDelivered || order.PaymentStatus != enums.PaymentStatusSuccess || order.CommissionSettled {
		return result, nil
	}
	if err := s.settler.SettleOrder(ctx, order.ID); err != nil {
		s.logg.Error(s.logg.WithOrderID(ctx, order.ID.String()), "settlement after delivery failed", err)
		return result, err
	}
	result.Settled = true
	return result, nil
}

// CanAdvance reports whether an order in current may move to target. Only
// forward moves along the fulfilment path are allowed, plus cancellation of a
// non-terminal order reported by the carrier.
func CanAdvance(current, target enums.OrderStatus) bool {
	if target == "" || current == target || current.IsTerminal() {
		return false
	}
	if target == enums.OrderStatusCancelled {
		return true
	}
	from, to := current.Progress(), target.Progress()
	return from >= 0 && to > from
}

// EnsureMerchantOwns verifies the order belongs to a store owned by merchantID.
func EnsureMerchantOwns(order *models.Order, merchantID uuid.UUID) error {
	if order.Store == nil || order.StoreID == nil {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order has not been assigned to a store")
	}
	if order.Store.OwnerID != merchantID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to merchant")
	}
	return nil
}

func mapLoadError(err error) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
}
