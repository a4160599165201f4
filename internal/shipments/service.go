// Package shipments books accepted orders with the logistics provider,
// falling back across couriers, and keeps order status in step with tracking.
package shipments

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/commission"
	"github.com/angelmondragon/bazaar-backend/internal/orders"
	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/logistics"
	"github.com/angelmondragon/bazaar-backend/pkg/metrics"
	"github.com/angelmondragon/bazaar-backend/pkg/money"
	"github.com/angelmondragon/bazaar-backend/pkg/pincode"
)

const (
	// DefaultTrackingBatch bounds one tracking sync pass.
	DefaultTrackingBatch = 100
	// DefaultFallbackPincode is used when a store address carries no pincode.
	DefaultFallbackPincode = "110001"

	payTypeCOD     = "cod"
	payTypePrepaid = "prepaid"
)

var codFeePct = decimal.NewFromInt(2)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type provider interface {
	CreateShipment(ctx context.Context, req logistics.ShipmentRequest) (*logistics.Shipment, error)
	CancelShipment(ctx context.Context, awb string) error
	TrackShipment(ctx context.Context, awb string) (*logistics.Tracking, error)
	Rates(ctx context.Context, req logistics.RateRequest) (json.RawMessage, error)
}

type courierSource interface {
	ActiveCouriers(ctx context.Context) ([]models.GlobalCourier, error)
}

type settingsSource interface {
	Current(ctx context.Context) (*models.SuperSetting, error)
}

type storeLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error)
}

type progressor interface {
	Advance(ctx context.Context, input orders.AdvanceInput) (*orders.AdvanceResult, error)
}

// Service is the merchant-facing shipment workflow.
type Service interface {
	AcceptOrder(ctx context.Context, input AcceptInput) (*AcceptResult, error)
	CreateShipment(ctx context.Context, input ShipInput) (*models.Order, error)
	RateLookup(ctx context.Context, input RateInput) (json.RawMessage, error)
	CancelOrder(ctx context.Context, input CancelInput) (*models.Order, error)
	SyncTracking(ctx context.Context, limit int) (*SyncResult, error)
}

// Package is what the merchant measured. Lengths are centimetres, weight is grams.
type Package struct {
	Length  decimal.Decimal
	Breadth decimal.Decimal
	Height  decimal.Decimal
	Weight  decimal.Decimal
}

func (p Package) validate() error {
	dims := []struct {
		name  string
		value decimal.Decimal
	}{
		{"length", p.Length},
		{"breadth", p.Breadth},
		{"height", p.Height},
		{"weight", p.Weight},
	}
	for _, dim := range dims {
		if !dim.value.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("package %s must be greater than zero", dim.name))
		}
	}
	return nil
}

// AcceptInput is a merchant accepting a new order. CourierRate is the rate the
// merchant picked from RateLookup for CourierID.
type AcceptInput struct {
	OrderID     uuid.UUID
	MerchantID  uuid.UUID
	Package     Package
	CourierID   *int64
	CourierRate decimal.Decimal
}

// AcceptResult carries the accepted order. ShipmentErr is set when the
// order was accepted but no courier booked it.
type AcceptResult struct {
	Order       *models.Order
	Charge      *models.ShippingChargeHistory
	ShipmentErr error
}

// ShipInput books an accepted order. A zero MerchantID skips the ownership check.
type ShipInput struct {
	OrderID    uuid.UUID
	MerchantID uuid.UUID
	CourierID  *int64
}

// RateInput asks the provider for an advisory quote.
type RateInput struct {
	StoreID            uuid.UUID
	DestinationPincode string
	Package            Package
	OrderAmount        decimal.Decimal
	PaymentType        string
}

// CancelInput cancels an order on behalf of its customer, its merchant or staff.
type CancelInput struct {
	OrderID uuid.UUID
	ActorID uuid.UUID
	Staff   bool
	Reason  string
}

// SyncResult summarizes one tracking pass.
type SyncResult struct {
	Checked int
	Updated int
	Settled int
	Failed  int
}

// ServiceParams bundles the shipment service dependencies.
type ServiceParams struct {
	Tx              txRunner
	Orders          orders.Repository
	Charges         ChargeRepository
	Stores          storeLoader
	Couriers        courierSource
	Settings        settingsSource
	Progress        progressor
	Provider        provider
	Metrics         *metrics.ShipmentMetrics
	FallbackPincode string
	Logger          *logger.Logger
}

type service struct {
	tx              txRunner
	orders          orders.Repository
	charges         ChargeRepository
	stores          storeLoader
	couriers        courierSource
	settings        settingsSource
	progress        progressor
	provider        provider
	recorder        *metrics.ShipmentMetrics
	fallbackPincode string
	logg            *logger.Logger
}

// NewService builds the shipment service.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case params.Charges == nil:
		return nil, fmt.Errorf("charge repository required")
	case params.Stores == nil:
		return nil, fmt.Errorf("store loader required")
	case params.Couriers == nil:
		return nil, fmt.Errorf("courier source required")
	case params.Settings == nil:
		return nil, fmt.Errorf("settings source required")
	case params.Progress == nil:
		return nil, fmt.Errorf("order progressor required")
	case params.Provider == nil:
		return nil, fmt.Errorf("logistics provider required")
	}
	fallback := strings.TrimSpace(params.FallbackPincode)
	if fallback == "" {
		fallback = DefaultFallbackPincode
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		tx:              params.Tx,
		orders:          params.Orders,
		charges:         params.Charges,
		stores:          params.Stores,
		couriers:        params.Couriers,
		settings:        params.Settings,
		progress:        params.Progress,
		provider:        params.Provider,
		recorder:        params.Metrics,
		fallbackPincode: fallback,
		logg:            logg,
	}, nil
}

func (s *service) AcceptOrder(ctx context.Context, input AcceptInput) (*AcceptResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.MerchantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if err := input.Package.validate(); err != nil {
		return nil, err
	}
	if input.CourierRate.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "courier rate cannot be negative")
	}

	setting, err := s.settings.Current(ctx)
	if err != nil {
		return nil, err
	}
	courierName, err := s.courierName(ctx, input.CourierID)
	if err != nil {
		return nil, err
	}
	rates := commission.RatesFrom(setting)
	charge := commission.ComputeShippingCharge(money.Round(input.CourierRate), rates.ShippingCommissionPct)

	result := &AcceptResult{}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, input.OrderID)
		if err != nil {
			return mapOrderError(err)
		}
		if err := orders.EnsureMerchantOwns(order, input.MerchantID); err != nil {
			return err
		}
		if order.Status != enums.OrderStatusPending && order.Status != enums.OrderStatusConfirmed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order in status %s cannot be accepted", order.Status))
		}
		if order.PaymentMethod != enums.PaymentMethodCOD && order.PaymentStatus != enums.PaymentStatusSuccess {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "online order has not been paid")
		}

		history := &models.ShippingChargeHistory{
			OrderID:          order.ID,
			StoreID:          *order.StoreID,
			CourierID:        input.CourierID,
			CourierName:      courierName,
			CourierRate:      charge.CourierRate,
			CommissionPct:    rates.ShippingCommissionPct,
			CommissionAmount: charge.CommissionAmount,
			ShippingCharge:   charge.ShippingCharge,
		}
		if err := s.charges.WithTx(tx).Create(ctx, history); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "shipping charge already recorded for order")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record shipping charge")
		}

		updates := map[string]any{
			"status":          enums.OrderStatusAccepted,
			"package_length":  input.Package.Length,
			"package_breadth": input.Package.Breadth,
			"package_height":  input.Package.Height,
			"package_weight":  input.Package.Weight,
		}
		if input.CourierID != nil {
			updates["courier_id"] = *input.CourierID
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "accept order")
		}
		order.Status = enums.OrderStatusAccepted
		order.PackageLength = &input.Package.Length
		order.PackageBreadth = &input.Package.Breadth
		order.PackageHeight = &input.Package.Height
		order.PackageWeight = &input.Package.Weight
		result.Order = order
		result.Charge = history
		return nil
	})
	if err != nil {
		return nil, err
	}

	shipped, err := s.CreateShipment(ctx, ShipInput{OrderID: input.OrderID, CourierID: input.CourierID})
	if err != nil {
		s.logg.Warn(s.logg.WithOrderID(ctx, input.OrderID.String()), "order accepted without shipment: "+err.Error())
		result.ShipmentErr = err
		return result, nil
	}
	result.Order = shipped
	return result, nil
}

func (s *service) CreateShipment(ctx context.Context, input ShipInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.orders.FindByID(ctx, input.OrderID)
	if err != nil {
		return nil, mapOrderError(err)
	}
	if input.MerchantID != uuid.Nil {
		if err := orders.EnsureMerchantOwns(order, input.MerchantID); err != nil {
			return nil, err
		}
	}
	if order.AWBNumber != nil && *order.AWBNumber != "" {
		return order, nil
	}
	if order.Status != enums.OrderStatusAccepted {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order in status %s cannot be shipped", order.Status))
	}
	if !order.HasPackage() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "package length, breadth, height and weight are required")
	}
	destination, ok := pincode.Normalize(order.ShippingAddress.Pincode)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address has no valid pincode")
	}
	if order.Store == nil || order.Store.PickupWarehouseID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "store pickup warehouse is not registered yet")
	}

	active, err := s.couriers.ActiveCouriers(ctx)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithOrderID(ctx, order.ID.String())

	for _, courier := range courierCandidates(active, input.CourierID) {
		req := buildShipmentRequest(order, destination, courier.ProviderCourierID)
		shipment, err := s.provider.CreateShipment(ctx, req)
		if err != nil {
			if logistics.IsServiceabilityError(err) {
				s.recorder.IncAttempt("unserviceable")
				continue
			}
			s.recorder.IncAttempt("error")
			s.logg.Error(s.logg.WithField(ctx, "courier_id", courier.ProviderCourierID), "courier booking failed", err)
			continue
		}
		s.recorder.IncAttempt("booked")
		return s.recordShipment(ctx, order, courier, shipment)
	}

	s.recorder.IncExhausted()
	message := "no courier could book this shipment"
	if err := s.orders.Update(ctx, order.ID, map[string]any{"shipment_error": message}); err != nil {
		s.logg.Error(ctx, "record shipment error", err)
	}
	return nil, pkgerrors.Rule(pkgerrors.ReasonNoCourierAvailable, message)
}

func (s *service) recordShipment(ctx context.Context, order *models.Order, courier models.GlobalCourier, shipment *logistics.Shipment) (*models.Order, error) {
	courierID := shipment.CourierID
	if courierID == 0 {
		courierID = courier.ProviderCourierID
	}
	courierName := strings.TrimSpace(shipment.CourierName)
	if courierName == "" {
		courierName = courier.Name
	}
	updates := map[string]any{
		"awb_number":        shipment.AWBNumber,
		"shipment_id":       shipment.ShipmentID,
		"shipment_label":    shipment.Label,
		"shipment_manifest": shipment.Manifest,
		"shipment_status":   shipment.Status,
		"shipment_error":    nil,
		"courier_id":        courierID,
		"courier_name":      courierName,
	}
	if err := s.orders.Update(ctx, order.ID, updates); err != nil {
		// The provider holds a live booking the order does not know about.
		s.logg.Error(s.logg.WithAWB(ctx, shipment.AWBNumber), "persist booked shipment", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist shipment")
	}
	s.recorder.IncBooked()
	s.logg.Info(s.logg.WithAWB(ctx, shipment.AWBNumber), "shipment booked with "+courierName)

	order.AWBNumber = &shipment.AWBNumber
	order.ShipmentID = &shipment.ShipmentID
	order.ShipmentLabel = &shipment.Label
	order.ShipmentManifest = &shipment.Manifest
	order.ShipmentStatus = &shipment.Status
	order.ShipmentError = nil
	order.CourierID = &courierID
	order.CourierName = &courierName
	return order, nil
}

func buildShipmentRequest(order *models.Order, destination string, courierID int64) logistics.ShipmentRequest {
	payType := payTypePrepaid
	codFee := decimal.Zero
	if order.PaymentMethod == enums.PaymentMethodCOD {
		payType = payTypeCOD
		codFee = money.Percent(order.TotalAmount, codFeePct)
	}

	pickup := *order.Store.PickupWarehouseID
	rto := pickup
	if order.Store.RTOWarehouseID != nil {
		rto = *order.Store.RTOWarehouseID
	}

	items := make([]logistics.ShipmentItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, logistics.ShipmentItem{
			Name:     item.ProductName,
			Quantity: item.Quantity,
			Price:    item.Price.InexactFloat64(),
			SKU:      "SKU" + item.ProductID.String(),
		})
	}

	address := order.ShippingAddress
	return logistics.ShipmentRequest{
		OrderNumber: order.OrderNumber,
		PayType:     payType,
		Weight:      order.PackageWeight.InexactFloat64(),
		Dimensions: logistics.Dimensions{
			Length:  order.PackageLength.InexactFloat64(),
			Breadth: order.PackageBreadth.InexactFloat64(),
			Height:  order.PackageHeight.InexactFloat64(),
		},
		ShippingFee:       order.ShippingCost.InexactFloat64(),
		CODFee:            codFee.InexactFloat64(),
		TotalAmount:       order.TotalAmount.InexactFloat64(),
		CourierID:         courierID,
		PickupWarehouseID: pickup,
		RTOWarehouseID:    rto,
		LabelFormat:       "thermal",
		AutoPickup:        "yes",
		ShipmentCreated:   "yes",
		Consignee: logistics.Consignee{
			Name:     address.FullName,
			Address1: address.Line1,
			Address2: address.Line2,
			City:     address.City,
			State:    address.State,
			Pincode:  destination,
			Phone:    order.Phone,
		},
		Items: items,
	}
}

func (s *service) RateLookup(ctx context.Context, input RateInput) (json.RawMessage, error) {
	if input.StoreID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	if err := input.Package.validate(); err != nil {
		return nil, err
	}
	destination, ok := pincode.Normalize(input.DestinationPincode)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "destination pincode is required")
	}
	payType := strings.ToLower(strings.TrimSpace(input.PaymentType))
	if payType == "" {
		payType = payTypePrepaid
	}
	if payType != payTypeCOD && payType != payTypePrepaid {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment type must be cod or prepaid")
	}

	store, err := s.stores.FindByID(ctx, input.StoreID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load store")
	}

	return s.provider.Rates(ctx, logistics.RateRequest{
		OriginPincode:      pincode.FromAddress(store.Address, s.fallbackPincode),
		DestinationPincode: destination,
		Weight:             input.Package.Weight.InexactFloat64(),
		Length:             input.Package.Length.InexactFloat64(),
		Breadth:            input.Package.Breadth.InexactFloat64(),
		Height:             input.Package.Height.InexactFloat64(),
		OrderAmount:        input.OrderAmount.InexactFloat64(),
		PaymentType:        payType,
	})
}

func (s *service) CancelOrder(ctx context.Context, input CancelInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	order, err := s.orders.FindByID(ctx, input.OrderID)
	if err != nil {
		return nil, mapOrderError(err)
	}
	if !canCancel(order, input) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	if order.Status == enums.OrderStatusCancelled {
		return order, nil
	}
	if order.Status.IsTerminal() || order.Status == enums.OrderStatusShipped {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order in status %s cannot be cancelled", order.Status))
	}

	hasShipment := order.AWBNumber != nil && *order.AWBNumber != ""
	if hasShipment {
		awbCtx := s.logg.WithAWB(s.logg.WithOrderID(ctx, order.ID.String()), *order.AWBNumber)
		if err := s.provider.CancelShipment(awbCtx, *order.AWBNumber); err != nil {
			s.logg.Error(awbCtx, "provider shipment cancellation failed", err)
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel shipment with courier")
		}
	}

	reason := strings.TrimSpace(input.Reason)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		locked, err := repo.FindByIDForUpdate(ctx, order.ID)
		if err != nil {
			return mapOrderError(err)
		}
		if locked.Status == enums.OrderStatusCancelled {
			order = locked
			return nil
		}
		if locked.Status.IsTerminal() || locked.Status == enums.OrderStatusShipped {
			if hasShipment {
				desync := pkgerrors.New(pkgerrors.CodeConsistency,
					fmt.Sprintf("shipment cancelled with the courier but the order moved to %s", locked.Status))
				s.logg.Error(s.logg.WithAWB(s.logg.WithOrderID(ctx, locked.ID.String()), *order.AWBNumber), "order cancellation lost a race with tracking", desync)
			}
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order in status %s cannot be cancelled", locked.Status))
		}
		updates := map[string]any{"status": enums.OrderStatusCancelled}
		if reason != "" {
			updates["cancellation_reason"] = reason
			locked.CancellationReason = &reason
		}
		if hasShipment {
			cancelled := "Cancelled"
			updates["shipment_status"] = cancelled
			locked.ShipmentStatus = &cancelled
		}
		if err := repo.Update(ctx, locked.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel order")
		}
		locked.Status = enums.OrderStatusCancelled
		order = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func canCancel(order *models.Order, input CancelInput) bool {
	if input.Staff || order.UserID == input.ActorID {
		return true
	}
	return order.Store != nil && order.Store.OwnerID == input.ActorID
}

func (s *service) SyncTracking(ctx context.Context, limit int) (*SyncResult, error) {
	if limit <= 0 {
		limit = DefaultTrackingBatch
	}
	rows, err := s.orders.ListTrackable(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list trackable orders")
	}

	result := &SyncResult{}
	var errs error
	for i := range rows {
		order := &rows[i]
		result.Checked++
		orderCtx := s.logg.WithAWB(s.logg.WithOrderID(ctx, order.ID.String()), *order.AWBNumber)

		tracking, err := s.provider.TrackShipment(orderCtx, *order.AWBNumber)
		if err != nil {
			result.Failed++
			s.logg.Error(orderCtx, "track shipment", err)
			errs = multierr.Append(errs, fmt.Errorf("track %s: %w", *order.AWBNumber, err))
			continue
		}

		input := orders.AdvanceInput{
			OrderID:       order.ID,
			PickupDate:    tracking.PickupDate,
			DeliveredDate: tracking.DeliveredDate,
		}
		if tracking.Status != "" {
			providerStatus := tracking.Status
			input.ProviderStatus = &providerStatus
			if mapped, ok := MapProviderStatus(providerStatus); ok {
				input.Status = mapped
			}
		}

		advanced, err := s.progress.Advance(orderCtx, input)
		if err != nil {
			result.Failed++
			errs = multierr.Append(errs, fmt.Errorf("advance order %s: %w", order.ID, err))
			continue
		}
		if advanced.StatusChanged {
			result.Updated++
		}
		if advanced.Settled {
			result.Settled++
		}
	}
	return result, errs
}

func (s *service) courierName(ctx context.Context, courierID *int64) (*string, error) {
	if courierID == nil {
		return nil, nil
	}
	active, err := s.couriers.ActiveCouriers(ctx)
	if err != nil {
		return nil, err
	}
	for _, courier := range active {
		if courier.ProviderCourierID == *courierID {
			name := courier.Name
			return &name, nil
		}
	}
	return nil, nil
}

func mapOrderError(err error) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
}
