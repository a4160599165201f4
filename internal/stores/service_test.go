package stores

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logistics"
)

func TestNewServiceRequiresRepo(t *testing.T) {
	_, err := NewService(nil, &stubUsersRepo{}, &stubProvider{}, "", nil)
	if err == nil {
		t.Fatal("expected error creating service without repo")
	}
}

func TestNewServiceRequiresProvider(t *testing.T) {
	_, err := NewService(&stubStoreRepo{}, &stubUsersRepo{}, nil, "", nil)
	if err == nil {
		t.Fatal("expected error creating service without provider")
	}
}

func TestServiceGetByIDSuccess(t *testing.T) {
	store := baseStore()
	svc := newTestService(t, &stubStoreRepo{store: store}, &stubProvider{})

	dto, err := svc.GetByID(context.Background(), store.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dto.ID != store.ID || dto.Name != store.Name {
		t.Fatalf("unexpected dto %+v", dto)
	}
	if dto.WarehouseReady {
		t.Fatal("expected warehouse not ready")
	}
}

func TestServiceGetByIDNotFound(t *testing.T) {
	svc := newTestService(t, &stubStoreRepo{err: gorm.ErrRecordNotFound}, &stubProvider{})

	_, err := svc.GetByID(context.Background(), uuid.New())
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestServiceCreateRequiresMerchant(t *testing.T) {
	repo := &stubStoreRepo{}
	users := &stubUsersRepo{user: &models.User{ID: uuid.New(), Name: "Asha"}}
	svc, err := NewService(repo, users, &stubProvider{}, "", nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	input := CreateStoreInput{OwnerID: users.user.ID, Name: "Asha Textiles", Address: "Lane 4, Jaipur 302001", Phone: "9800000001"}
	if _, err := svc.Create(context.Background(), input); !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	users.user.IsMerchant = true
	input.MinimumOrderValue = decimal.RequireFromString("199.999")
	dto, err := svc.Create(context.Background(), input)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if repo.created == nil || !repo.created.IsActive || !repo.created.IsOpened {
		t.Fatalf("expected an active, opened store, got %+v", repo.created)
	}
	if dto.MinimumOrderValue.String() != "200" {
		t.Fatalf("expected rounded minimum, got %s", dto.MinimumOrderValue)
	}
}

func TestServiceUpdateAddressResetsWarehouse(t *testing.T) {
	store := registeredStore()
	repo := &stubStoreRepo{store: store}
	svc := newTestService(t, repo, &stubProvider{})

	address := "Plot 9, Sector 18, Noida 201301"
	dto, err := svc.Update(context.Background(), store.OwnerID, store.ID, UpdateStoreInput{Address: &address})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if dto.WarehouseReady {
		t.Fatal("expected warehouse reset after moving")
	}
	if _, ok := repo.updates["pickup_warehouse_id"]; !ok {
		t.Fatalf("expected pickup warehouse cleared, got %v", repo.updates)
	}
}

func TestServiceUpdateForbidden(t *testing.T) {
	store := baseStore()
	svc := newTestService(t, &stubStoreRepo{store: store}, &stubProvider{})

	name := "Renamed"
	_, err := svc.Update(context.Background(), uuid.New(), store.ID, UpdateStoreInput{Name: &name})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden code, got %v", err)
	}
}

func TestRegisterWarehouseStoresProviderIDs(t *testing.T) {
	store := baseStore()
	repo := &stubStoreRepo{store: store}
	provider := &stubProvider{warehouse: &logistics.Warehouse{PickupWarehouseID: 41, RTOWarehouseID: 42}}
	svc := newTestService(t, repo, provider)

	dto, err := svc.RegisterWarehouse(context.Background(), store.ID)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !dto.WarehouseReady || *dto.PickupWarehouseID != 41 || *dto.RTOWarehouseID != 42 {
		t.Fatalf("unexpected dto %+v", dto)
	}

	req := provider.requests[0]
	if req.Pickup.Pincode != "560001" || req.Pickup.ContactName != "Ravi Kumar" {
		t.Fatalf("unexpected pickup %+v", req.Pickup)
	}
	if req.RTO.WarehouseName != store.Name+" - RTO" || req.HasDifferentRTO {
		t.Fatalf("unexpected rto %+v", req.RTO)
	}

	if _, err := svc.RegisterWarehouse(context.Background(), store.ID); err != nil {
		t.Fatalf("second register: %v", err)
	}
	if len(provider.requests) != 1 {
		t.Fatalf("expected registered store to be skipped, got %d calls", len(provider.requests))
	}
}

func TestRegisterPendingKeepsGoingAfterFailure(t *testing.T) {
	failing := baseStore()
	failing.Name = "Broken"
	healthy := baseStore()
	repo := &stubStoreRepo{pending: []models.Store{*failing, *healthy}}
	provider := &stubProvider{
		warehouse: &logistics.Warehouse{PickupWarehouseID: 7},
		failFor:   "Broken",
	}
	svc := newTestService(t, repo, provider)

	result, err := svc.RegisterPending(context.Background(), 0)
	if err == nil {
		t.Fatal("expected combined error")
	}
	if result.Checked != 2 || result.Registered != 1 || result.Failed != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if repo.limit != DefaultWarehouseBatch {
		t.Fatalf("expected default batch, got %d", repo.limit)
	}
	if msg, ok := repo.history[0]["warehouse_sync_error"]; !ok || msg != "invalid pickup address" {
		t.Fatalf("expected sync error recorded, got %v", repo.history)
	}
	if repo.updates["rto_warehouse_id"] != int64(7) {
		t.Fatalf("expected rto to fall back to pickup, got %v", repo.updates["rto_warehouse_id"])
	}
}

func newTestService(t *testing.T, repo *stubStoreRepo, provider *stubProvider) Service {
	t.Helper()
	svc, err := NewService(repo, &stubUsersRepo{}, provider, "", nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func baseStore() *models.Store {
	return &models.Store{
		ID:                uuid.New(),
		OwnerID:           uuid.New(),
		Owner:             &models.User{Name: "Ravi Kumar"},
		Name:              "Kumar Handlooms",
		Address:           "14 Residency Road,\nBengaluru, Karnataka 560001",
		Phone:             "9800000002",
		MinimumOrderValue: decimal.RequireFromString("100"),
		IsActive:          true,
		IsOpened:          true,
		CreatedAt:         time.Now(),
		UpdatedAt:         time.Now(),
	}
}

func registeredStore() *models.Store {
	store := baseStore()
	pickup, rto := int64(5), int64(6)
	store.PickupWarehouseID = &pickup
	store.RTOWarehouseID = &rto
	return store
}

type stubStoreRepo struct {
	store   *models.Store
	pending []models.Store
	err     error
	created *models.Store
	updates map[string]any
	history []map[string]any
	limit   int
}

func (s *stubStoreRepo) Create(ctx context.Context, store *models.Store) error {
	s.created = store
	return nil
}

func (s *stubStoreRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	return s.store, s.err
}

func (s *stubStoreRepo) FindByIDWithOwner(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	return s.store, s.err
}

func (s *stubStoreRepo) FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Store, error) {
	return nil, s.err
}

func (s *stubStoreRepo) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if s.updates == nil {
		s.updates = map[string]any{}
	}
	for k, v := range fields {
		s.updates[k] = v
	}
	s.history = append(s.history, fields)
	return nil
}

func (s *stubStoreRepo) ListMissingWarehouse(ctx context.Context, limit int) ([]models.Store, error) {
	s.limit = limit
	return s.pending, s.err
}

type stubUsersRepo struct {
	user *models.User
}

func (s *stubUsersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if s.user == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

type stubProvider struct {
	warehouse *logistics.Warehouse
	failFor   string
	requests  []logistics.WarehouseRequest
}

func (p *stubProvider) CreateWarehouse(ctx context.Context, req logistics.WarehouseRequest) (*logistics.Warehouse, error) {
	p.requests = append(p.requests, req)
	if p.failFor != "" && req.Pickup.WarehouseName == p.failFor {
		return nil, errors.New("invalid pickup address")
	}
	return p.warehouse, nil
}
