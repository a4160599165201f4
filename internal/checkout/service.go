// Package checkout turns a customer cart into per-vendor orders, either
// immediately (cash on delivery) or after a gateway confirms payment.
package checkout

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/checkout/helpers"
	"github.com/angelmondragon/bazaar-backend/internal/orders"
	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/money"
	"github.com/angelmondragon/bazaar-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type storeLoader interface {
	FindByIDsWithTx(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]*models.Store, error)
}

type settingsSource interface {
	Current(ctx context.Context) (*models.SuperSetting, error)
}

type vendorNotifier interface {
	NotifyNewOrder(ctx context.Context, ownerID uuid.UUID, order *models.Order) bool
}

// Service executes checkout orchestration.
type Service interface {
	// SplitCheckout creates one cash-on-delivery order per store.
	SplitCheckout(ctx context.Context, payload Payload) ([]models.Order, error)
	// CreatePendingCheckout stores the cart and returns the single temporary
	// order a gateway payment is collected against.
	CreatePendingCheckout(ctx context.Context, payload Payload) (*models.Order, error)
	// SplitPending materializes the per-vendor orders of a paid temporary
	// order inside the caller's transaction. Vendors are not notified.
	SplitPending(ctx context.Context, tx *gorm.DB, temp *models.Order) ([]models.Order, error)
	// NotifyVendors tells each store owner about their new order.
	NotifyVendors(ctx context.Context, created []models.Order)
}

type service struct {
	tx       txRunner
	orders   orders.Repository
	stores   storeLoader
	settings settingsSource
	notifier vendorNotifier
	logg     *logger.Logger
}

// NewService builds the checkout service.
func NewService(tx txRunner, ordersRepo orders.Repository, stores storeLoader, settings settingsSource, notifier vendorNotifier, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if stores == nil {
		return nil, fmt.Errorf("store loader required")
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
		orders:   ordersRepo,
		stores:   stores,
		settings: settings,
		notifier: notifier,
		logg:     logg,
	}, nil
}

func (s *service) SplitCheckout(ctx context.Context, payload Payload) ([]models.Order, error) {
	if err := payload.validate(); err != nil {
		return nil, err
	}
	if payload.PaymentMethod != enums.PaymentMethodCOD {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "online payments must go through a pending checkout")
	}

	var created []models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		groups, stores, err := s.prepare(ctx, tx, payload.lines())
		if err != nil {
			return err
		}
		created, err = s.createVendorOrders(ctx, tx, groups, stores, orderTemplate{
			userID:          payload.UserID,
			status:          enums.OrderStatusPending,
			paymentMethod:   enums.PaymentMethodCOD,
			paymentStatus:   enums.PaymentStatusPending,
			shippingAddress: payload.ShippingAddress,
			billingAddress:  payload.BillingAddress,
			phone:           payload.Phone,
			notes:           payload.Notes,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.NotifyVendors(ctx, created)
	return created, nil
}

func (s *service) CreatePendingCheckout(ctx context.Context, payload Payload) (*models.Order, error) {
	if err := payload.validate(); err != nil {
		return nil, err
	}
	if !payload.PaymentMethod.IsOnline() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cash on delivery orders are split immediately")
	}

	settings, err := s.settings.Current(ctx)
	if err != nil {
		return nil, err
	}

	var temp *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		lines := payload.lines()
		groups, _, err := s.prepare(ctx, tx, lines)
		if err != nil {
			return err
		}

		vendors := decimal.NewFromInt(int64(len(groups)))
		shipping := money.Round(settings.BasicShippingCharge.Mul(vendors))
		subtotal := helpers.CheckoutTotal(groups)

		items := make([]models.PendingCheckoutItem, len(lines))
		for i, line := range lines {
			items[i] = models.PendingCheckoutItem{
				StoreID:     line.StoreID,
				ProductID:   line.ProductID,
				ProductName: line.ProductName,
				VariantKey:  line.VariantKey,
				Quantity:    line.Quantity,
				Price:       line.Price,
			}
		}
		ordersRepo := s.orders.WithTx(tx)
		pending := &models.PendingCheckout{
			UserID:          payload.UserID,
			PaymentMethod:   payload.PaymentMethod,
			Items:           items,
			ShippingAddress: payload.ShippingAddress,
			BillingAddress:  payload.BillingAddress,
			Phone:           payload.Phone,
			VendorCount:     len(groups),
			ShippingCharge:  shipping,
		}
		if err := ordersRepo.CreatePendingCheckout(ctx, pending); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store pending checkout")
		}

		pendingID := pending.ID
		temp = &models.Order{
			UserID:            payload.UserID,
			PendingCheckoutID: &pendingID,
			Status:            enums.OrderStatusPending,
			PaymentMethod:     payload.PaymentMethod,
			PaymentStatus:     enums.PaymentStatusPending,
			Subtotal:          subtotal,
			ShippingCost:      shipping,
			TotalAmount:       money.Round(subtotal.Add(shipping)),
			ShippingAddress:   payload.ShippingAddress,
			BillingAddress:    payload.BillingAddress,
			Phone:             payload.Phone,
			Notes:             payload.Notes,
		}
		if err := ordersRepo.Create(ctx, temp); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create temporary order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return temp, nil
}

func (s *service) SplitPending(ctx context.Context, tx *gorm.DB, temp *models.Order) ([]models.Order, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConsistency, "pending split requires a database transaction")
	}
	if temp == nil || !temp.IsTemporary() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order is not a pending checkout")
	}

	ordersRepo := s.orders.WithTx(tx)
	pending, err := ordersRepo.FindPendingCheckout(ctx, *temp.PendingCheckoutID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConsistency, "pending checkout record missing for temporary order")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load pending checkout")
	}
	if len(pending.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConsistency, "pending checkout has no items")
	}

	lines := make([]helpers.Line, len(pending.Items))
	for i, item := range pending.Items {
		lines[i] = helpers.Line{
			StoreID:     item.StoreID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			VariantKey:  item.VariantKey,
			Quantity:    item.Quantity,
			Price:       item.Price,
		}
	}

	// Payment is already captured, so store state and minimums are not
	// re-checked here; only existence is required.
	groups := helpers.GroupLinesByStore(lines)
	stores, err := s.stores.FindByIDsWithTx(ctx, tx, helpers.StoreIDs(groups))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load stores")
	}
	for _, group := range groups {
		if stores[group.StoreID] == nil {
			return nil, pkgerrors.New(pkgerrors.CodeConsistency, fmt.Sprintf("store %s no longer exists", group.StoreID))
		}
	}

	return s.createVendorOrders(ctx, tx, groups, stores, orderTemplate{
		userID:          temp.UserID,
		status:          enums.OrderStatusConfirmed,
		paymentMethod:   temp.PaymentMethod,
		paymentStatus:   temp.PaymentStatus,
		shippingAddress: pending.ShippingAddress,
		billingAddress:  pending.BillingAddress,
		phone:           pending.Phone,
		notes:           temp.Notes,
	})
}

func (s *service) NotifyVendors(ctx context.Context, created []models.Order) {
	for i := range created {
		order := &created[i]
		if order.Store == nil {
			continue
		}
		if !s.notifier.NotifyNewOrder(ctx, order.Store.OwnerID, order) {
			s.logg.Warn(s.logg.WithOrderID(ctx, order.ID.String()), "new order notification not delivered")
		}
	}
}

// prepare groups the lines and checks every store before anything is written.
func (s *service) prepare(ctx context.Context, tx *gorm.DB, lines []helpers.Line) ([]helpers.VendorGroup, map[uuid.UUID]*models.Store, error) {
	groups := helpers.GroupLinesByStore(lines)
	stores, err := s.stores.FindByIDsWithTx(ctx, tx, helpers.StoreIDs(groups))
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load stores")
	}
	for _, group := range groups {
		if err := helpers.ValidateVendorStore(group.StoreID, stores[group.StoreID]); err != nil {
			return nil, nil, err
		}
	}
	if err := helpers.ValidateMinimumOrders(groups, stores); err != nil {
		return nil, nil, err
	}
	return groups, stores, nil
}

type orderTemplate struct {
	userID          uuid.UUID
	status          enums.OrderStatus
	paymentMethod   enums.PaymentMethod
	paymentStatus   enums.PaymentStatus
	shippingAddress types.Address
	billingAddress  types.Address
	phone           string
	notes           *string
}

func (s *service) createVendorOrders(ctx context.Context, tx *gorm.DB, groups []helpers.VendorGroup, stores map[uuid.UUID]*models.Store, tmpl orderTemplate) ([]models.Order, error) {
	ordersRepo := s.orders.WithTx(tx)
	created := make([]models.Order, 0, len(groups))
	for _, group := range groups {
		storeID := group.StoreID
		subtotal := money.Round(group.Subtotal)
		order := models.Order{
			UserID:          tmpl.userID,
			StoreID:         &storeID,
			Store:           stores[storeID],
			Status:          tmpl.status,
			PaymentMethod:   tmpl.paymentMethod,
			PaymentStatus:   tmpl.paymentStatus,
			Subtotal:        subtotal,
			ShippingCost:    decimal.Zero,
			TotalAmount:     subtotal,
			ShippingAddress: tmpl.shippingAddress,
			BillingAddress:  tmpl.billingAddress,
			Phone:           tmpl.phone,
			Notes:           tmpl.notes,
			Items:           make([]models.OrderItem, len(group.Lines)),
		}
		for i, line := range group.Lines {
			order.Items[i] = models.OrderItem{
				ProductID:   line.ProductID,
				StoreID:     line.StoreID,
				ProductName: line.ProductName,
				VariantKey:  line.VariantKey,
				Quantity:    line.Quantity,
				Price:       line.Price,
				Total:       line.Total(),
			}
		}
		if err := ordersRepo.Create(ctx, &order); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create vendor order")
		}
		created = append(created, order)
	}
	return created, nil
}
