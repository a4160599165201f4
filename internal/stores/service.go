package stores

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/logistics"
	"github.com/angelmondragon/bazaar-backend/pkg/money"
	"github.com/angelmondragon/bazaar-backend/pkg/pincode"
)

const (
	defaultContactName     = "Store Owner"
	defaultFallbackPincode = "110001"
	// DefaultWarehouseBatch bounds one registration pass.
	DefaultWarehouseBatch = 25
)

type storeRepository interface {
	Create(ctx context.Context, store *models.Store) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error)
	FindByIDWithOwner(ctx context.Context, id uuid.UUID) (*models.Store, error)
	FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Store, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) error
	ListMissingWarehouse(ctx context.Context, limit int) ([]models.Store, error)
}

type usersRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type warehouseProvider interface {
	CreateWarehouse(ctx context.Context, req logistics.WarehouseRequest) (*logistics.Warehouse, error)
}

// Service exposes store operations.
type Service interface {
	Create(ctx context.Context, input CreateStoreInput) (*StoreDTO, error)
	GetByID(ctx context.Context, id uuid.UUID) (*StoreDTO, error)
	ListMine(ctx context.Context, ownerID uuid.UUID) ([]StoreDTO, error)
	Update(ctx context.Context, userID, storeID uuid.UUID, input UpdateStoreInput) (*StoreDTO, error)
	RegisterWarehouse(ctx context.Context, storeID uuid.UUID) (*StoreDTO, error)
	RegisterPending(ctx context.Context, limit int) (*RegistrationResult, error)
}

// RegistrationResult summarizes one warehouse registration pass.
type RegistrationResult struct {
	Checked    int
	Registered int
	Failed     int
}

type service struct {
	repo            storeRepository
	users           usersRepository
	provider        warehouseProvider
	fallbackPincode string
	logg            *logger.Logger
}

// NewService builds a store service with the provided repositories.
func NewService(repo storeRepository, usersRepo usersRepository, provider warehouseProvider, fallbackPincode string, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("store repository required")
	}
	if usersRepo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if provider == nil {
		return nil, fmt.Errorf("warehouse provider required")
	}
	if strings.TrimSpace(fallbackPincode) == "" {
		fallbackPincode = defaultFallbackPincode
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:            repo,
		users:           usersRepo,
		provider:        provider,
		fallbackPincode: fallbackPincode,
		logg:            logg,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateStoreInput) (*StoreDTO, error) {
	if input.OwnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	input.Name = strings.TrimSpace(input.Name)
	input.Address = strings.TrimSpace(input.Address)
	input.Phone = strings.TrimSpace(input.Phone)
	if input.Name == "" || input.Address == "" || input.Phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name, address and phone are required")
	}
	if input.MinimumOrderValue.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "minimum order value cannot be negative")
	}
	input.MinimumOrderValue = money.Round(input.MinimumOrderValue)

	owner, err := s.users.FindByID(ctx, input.OwnerID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	if !owner.IsMerchant {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only merchants can open stores")
	}

	store := input.ToModel()
	if err := s.repo.Create(ctx, store); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create store")
	}
	// Warehouse registration runs from the cron worker.
	return FromModel(store), nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*StoreDTO, error) {
	store, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(store), nil
}

func (s *service) ListMine(ctx context.Context, ownerID uuid.UUID) ([]StoreDTO, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	rows, err := s.repo.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list stores")
	}
	out := make([]StoreDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) Update(ctx context.Context, userID, storeID uuid.UUID, input UpdateStoreInput) (*StoreDTO, error) {
	store, err := s.load(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if store.OwnerID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "store does not belong to user")
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		updates["name"] = name
		store.Name = name
	}
	if input.Phone != nil {
		phone := strings.TrimSpace(*input.Phone)
		if phone == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone cannot be empty")
		}
		updates["phone"] = phone
		store.Phone = phone
	}
	if input.MinimumOrderValue != nil {
		if input.MinimumOrderValue.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "minimum order value cannot be negative")
		}
		minimum := money.Round(*input.MinimumOrderValue)
		updates["minimum_order_value"] = minimum
		store.MinimumOrderValue = minimum
	}
	if input.IsOpened != nil {
		updates["is_opened"] = *input.IsOpened
		store.IsOpened = *input.IsOpened
	}
	if input.Address != nil {
		address := strings.TrimSpace(*input.Address)
		if address == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "address cannot be empty")
		}
		if address != store.Address {
			// A moved store needs a new pickup location with the provider.
			updates["address"] = address
			updates["pickup_warehouse_id"] = nil
			updates["rto_warehouse_id"] = nil
			updates["warehouse_sync_error"] = nil
			store.Address = address
			store.PickupWarehouseID = nil
			store.RTOWarehouseID = nil
			store.WarehouseSyncError = nil
		}
	}
	if len(updates) == 0 {
		return FromModel(store), nil
	}
	if err := s.repo.Update(ctx, store.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update store")
	}
	return FromModel(store), nil
}

func (s *service) RegisterWarehouse(ctx context.Context, storeID uuid.UUID) (*StoreDTO, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	store, err := s.repo.FindByIDWithOwner(ctx, storeID)
	if err != nil {
		return nil, mapLoadError(err)
	}
	if err := s.register(ctx, store); err != nil {
		return nil, err
	}
	return FromModel(store), nil
}

func (s *service) RegisterPending(ctx context.Context, limit int) (*RegistrationResult, error) {
	if limit <= 0 {
		limit = DefaultWarehouseBatch
	}
	rows, err := s.repo.ListMissingWarehouse(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list stores without warehouse")
	}
	result := &RegistrationResult{}
	var errs error
	for i := range rows {
		result.Checked++
		if err := s.register(ctx, &rows[i]); err != nil {
			result.Failed++
			errs = multierr.Append(errs, fmt.Errorf("store %s: %w", rows[i].ID, err))
			continue
		}
		result.Registered++
	}
	return result, errs
}

// register is a no-op for stores that already have a pickup warehouse. A
// provider failure is kept on the store for the merchant to see.
func (s *service) register(ctx context.Context, store *models.Store) error {
	if store.PickupWarehouseID != nil {
		return nil
	}
	ctx = s.logg.WithField(ctx, "store_id", store.ID.String())

	warehouse, err := s.provider.CreateWarehouse(ctx, s.warehouseRequest(store))
	if err != nil {
		s.logg.Error(ctx, "warehouse registration failed", err)
		message := err.Error()
		if updateErr := s.repo.Update(ctx, store.ID, map[string]any{"warehouse_sync_error": message}); updateErr != nil {
			s.logg.Error(ctx, "record warehouse sync error", updateErr)
		}
		store.WarehouseSyncError = &message
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "register warehouse")
	}

	pickup := warehouse.PickupWarehouseID
	rto := warehouse.RTOWarehouseID
	if rto == 0 {
		rto = pickup
	}
	if err := s.repo.Update(ctx, store.ID, map[string]any{
		"pickup_warehouse_id":  pickup,
		"rto_warehouse_id":     rto,
		"warehouse_sync_error": nil,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save warehouse ids")
	}
	store.PickupWarehouseID = &pickup
	store.RTOWarehouseID = &rto
	store.WarehouseSyncError = nil
	s.logg.Info(ctx, "warehouse registered")
	return nil
}

func (s *service) warehouseRequest(store *models.Store) logistics.WarehouseRequest {
	contact := defaultContactName
	if store.Owner != nil && strings.TrimSpace(store.Owner.Name) != "" {
		contact = store.Owner.Name
	}
	pickup := logistics.Address{
		WarehouseName: store.Name,
		ContactName:   contact,
		AddressLine1:  store.Address,
		Pincode:       pincode.FromAddress(store.Address, s.fallbackPincode),
		Phone:         store.Phone,
	}
	rto := pickup
	rto.WarehouseName = store.Name + " - RTO"
	return logistics.WarehouseRequest{Pickup: pickup, HasDifferentRTO: false, RTO: rto}
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	store, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLoadError(err)
	}
	return store, nil
}

func mapLoadError(err error) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load store")
}
