// Package settings owns the platform singleton (commission rates and the
// basic shipping charge) and the global courier catalogue.
package settings

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/money"
)

var hundred = decimal.NewFromInt(100)

// Service exposes platform settings and courier operations.
type Service interface {
	Current(ctx context.Context) (*models.SuperSetting, error)
	Create(ctx context.Context, input Input) (*models.SuperSetting, error)
	Update(ctx context.Context, input Input) (*models.SuperSetting, error)
	ActiveCouriers(ctx context.Context) ([]models.GlobalCourier, error)
	Couriers(ctx context.Context) ([]models.GlobalCourier, error)
	SetCourier(ctx context.Context, input CourierInput) (*models.GlobalCourier, error)
	SyncCouriers(ctx context.Context, catalogue []ProviderCourier) (int, error)
}

// Input carries the editable platform settings. Percentages are 0-100.
type Input struct {
	SalesCommission          decimal.Decimal
	ShippingChargeCommission decimal.Decimal
	BasicShippingCharge      decimal.Decimal
}

// CourierInput creates or updates one courier by its provider id.
type CourierInput struct {
	ProviderCourierID int64
	Name              string
	IsActive          bool
	Priority          int
}

// ProviderCourier is one entry of the logistics provider's courier list.
type ProviderCourier struct {
	ID   int64
	Name string
}

type service struct {
	repo Repository
}

// NewService builds a settings service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("settings repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Current(ctx context.Context) (*models.SuperSetting, error) {
	setting, err := s.repo.Get(ctx)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "platform settings have not been configured")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load platform settings")
	}
	return setting, nil
}

func (s *service) Create(ctx context.Context, input Input) (*models.SuperSetting, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	setting := &models.SuperSetting{
		SalesCommission:          input.SalesCommission,
		ShippingChargeCommission: input.ShippingChargeCommission,
		BasicShippingCharge:      money.Round(input.BasicShippingCharge),
	}
	if err := s.repo.Create(ctx, setting); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "platform settings already exist")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create platform settings")
	}
	return setting, nil
}

func (s *service) Update(ctx context.Context, input Input) (*models.SuperSetting, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	setting, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	basic := money.Round(input.BasicShippingCharge)
	if err := s.repo.Update(ctx, setting.ID, map[string]any{
		"sales_commission":           input.SalesCommission,
		"shipping_charge_commission": input.ShippingChargeCommission,
		"basic_shipping_charge":      basic,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update platform settings")
	}
	setting.SalesCommission = input.SalesCommission
	setting.ShippingChargeCommission = input.ShippingChargeCommission
	setting.BasicShippingCharge = basic
	return setting, nil
}

func (s *service) ActiveCouriers(ctx context.Context) ([]models.GlobalCourier, error) {
	rows, err := s.repo.ListCouriers(ctx, true)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list active couriers")
	}
	return rows, nil
}

func (s *service) Couriers(ctx context.Context) ([]models.GlobalCourier, error) {
	rows, err := s.repo.ListCouriers(ctx, false)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list couriers")
	}
	return rows, nil
}

func (s *service) SetCourier(ctx context.Context, input CourierInput) (*models.GlobalCourier, error) {
	name := strings.TrimSpace(input.Name)
	if input.ProviderCourierID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "provider courier id is required")
	}
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "courier name is required")
	}
	if input.Priority < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "priority must not be negative")
	}

	courier, err := s.repo.FindCourierByProviderID(ctx, input.ProviderCourierID)
	if err != nil && !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load courier")
	}
	if courier == nil {
		courier = &models.GlobalCourier{ProviderCourierID: input.ProviderCourierID}
	}
	courier.Name = name
	courier.IsActive = input.IsActive
	courier.Priority = input.Priority
	if err := s.repo.SaveCourier(ctx, courier); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save courier")
	}
	return courier, nil
}

// SyncCouriers refreshes names from the provider catalogue. Unknown couriers
// are added inactive at the lowest priority so an admin opts them in.
func (s *service) SyncCouriers(ctx context.Context, catalogue []ProviderCourier) (int, error) {
	existing, err := s.repo.ListCouriers(ctx, false)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list couriers")
	}
	byProvider := make(map[int64]*models.GlobalCourier, len(existing))
	lowest := 0
	for i := range existing {
		byProvider[existing[i].ProviderCourierID] = &existing[i]
		if existing[i].Priority >= lowest {
			lowest = existing[i].Priority + 1
		}
	}

	changed := 0
	for _, entry := range catalogue {
		name := strings.TrimSpace(entry.Name)
		if entry.ID <= 0 || name == "" {
			continue
		}
		courier, ok := byProvider[entry.ID]
		switch {
		case !ok:
			courier = &models.GlobalCourier{ProviderCourierID: entry.ID, Name: name, Priority: lowest}
			lowest++
		case courier.Name != name:
			courier.Name = name
		default:
			continue
		}
		if err := s.repo.SaveCourier(ctx, courier); err != nil {
			return changed, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save courier")
		}
		byProvider[entry.ID] = courier
		changed++
	}
	return changed, nil
}

func (in Input) validate() error {
	for name, pct := range map[string]decimal.Decimal{
		"sales commission":           in.SalesCommission,
		"shipping charge commission": in.ShippingChargeCommission,
	} {
		if pct.IsNegative() || pct.GreaterThan(hundred) {
			return pkgerrors.New(pkgerrors.CodeValidation, name+" must be between 0 and 100")
		}
	}
	if in.BasicShippingCharge.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "basic shipping charge must not be negative")
	}
	return nil
}
