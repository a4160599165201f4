package controllers

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/api/middleware"
	"github.com/angelmondragon/bazaar-backend/internal/checkout"
	"github.com/angelmondragon/bazaar-backend/internal/notifications"
	"github.com/angelmondragon/bazaar-backend/internal/payments"
	"github.com/angelmondragon/bazaar-backend/internal/stores"
	"github.com/angelmondragon/bazaar-backend/internal/users"
	"github.com/angelmondragon/bazaar-backend/internal/withdrawals"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func withUser(req *http.Request, userID uuid.UUID) *http.Request {
	return req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
}

func addRouteParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.RouteContext(req.Context())
	if routeCtx == nil {
		routeCtx = chi.NewRouteContext()
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
	}
	routeCtx.URLParams.Add(key, value)
	return req
}

type stubCheckoutService struct {
	splitFn   func(ctx context.Context, payload checkout.Payload) ([]models.Order, error)
	pendingFn func(ctx context.Context, payload checkout.Payload) (*models.Order, error)
}

func (s *stubCheckoutService) SplitCheckout(ctx context.Context, payload checkout.Payload) ([]models.Order, error) {
	if s.splitFn != nil {
		return s.splitFn(ctx, payload)
	}
	return nil, nil
}

func (s *stubCheckoutService) CreatePendingCheckout(ctx context.Context, payload checkout.Payload) (*models.Order, error) {
	if s.pendingFn != nil {
		return s.pendingFn(ctx, payload)
	}
	return nil, nil
}

func (s *stubCheckoutService) SplitPending(ctx context.Context, tx *gorm.DB, temp *models.Order) ([]models.Order, error) {
	panic("not implemented")
}

func (s *stubCheckoutService) NotifyVendors(ctx context.Context, created []models.Order) {}

type stubPaymentsService struct {
	initiateFn func(ctx context.Context, input payments.InitiateInput) (*payments.Initiation, error)
	checkFn    func(ctx context.Context, input payments.CheckInput) (*payments.Result, error)
}

func (s *stubPaymentsService) Initiate(ctx context.Context, input payments.InitiateInput) (*payments.Initiation, error) {
	if s.initiateFn != nil {
		return s.initiateFn(ctx, input)
	}
	return &payments.Initiation{}, nil
}

func (s *stubPaymentsService) Reconcile(ctx context.Context, merchantOrderID string, outcome payments.Outcome) (*payments.Result, error) {
	panic("not implemented")
}

func (s *stubPaymentsService) CheckStatus(ctx context.Context, input payments.CheckInput) (*payments.Result, error) {
	if s.checkFn != nil {
		return s.checkFn(ctx, input)
	}
	return &payments.Result{}, nil
}

func (s *stubPaymentsService) HandleCallback(ctx context.Context, gateway enums.Gateway, cb payments.Callback) (*payments.Result, error) {
	panic("not implemented")
}

type stubOTPService struct {
	sendFn   func(ctx context.Context, phone, countryCode string) error
	verifyFn func(ctx context.Context, phone, countryCode, code string) error
}

func (s *stubOTPService) SendOTP(ctx context.Context, phone, countryCode string) error {
	if s.sendFn != nil {
		return s.sendFn(ctx, phone, countryCode)
	}
	return nil
}

func (s *stubOTPService) Verify(ctx context.Context, phone, countryCode, code string) error {
	if s.verifyFn != nil {
		return s.verifyFn(ctx, phone, countryCode, code)
	}
	return nil
}

type stubUsersService struct {
	user     *users.UserDTO
	err      error
	signedIn *users.CreateUserInput
}

func (s *stubUsersService) Get(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error) {
	return s.user, s.err
}

func (s *stubUsersService) SetRoles(ctx context.Context, userID uuid.UUID, input users.RolesInput) (*users.UserDTO, error) {
	return s.user, s.err
}

func (s *stubUsersService) AssignMerchantCode(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error) {
	return s.user, s.err
}

func (s *stubUsersService) SignIn(ctx context.Context, input users.CreateUserInput) (*users.UserDTO, error) {
	s.signedIn = &input
	return s.user, s.err
}

type stubStoreLister struct {
	stores []stores.StoreDTO
}

func (s stubStoreLister) ListMine(ctx context.Context, ownerID uuid.UUID) ([]stores.StoreDTO, error) {
	return s.stores, nil
}

type stubWithdrawalsService struct {
	createFn  func(ctx context.Context, input withdrawals.CreateInput) (*models.Withdrawal, error)
	rejectFn  func(ctx context.Context, input withdrawals.ReviewInput) (*models.Withdrawal, error)
	approveFn func(ctx context.Context, input withdrawals.ReviewInput) (*models.Withdrawal, error)
	available decimal.Decimal
	listed    enums.WithdrawalStatus
}

func (s *stubWithdrawalsService) Create(ctx context.Context, input withdrawals.CreateInput) (*models.Withdrawal, error) {
	return s.createFn(ctx, input)
}

func (s *stubWithdrawalsService) Approve(ctx context.Context, input withdrawals.ReviewInput) (*models.Withdrawal, error) {
	return s.approveFn(ctx, input)
}

func (s *stubWithdrawalsService) Reject(ctx context.Context, input withdrawals.ReviewInput) (*models.Withdrawal, error) {
	return s.rejectFn(ctx, input)
}

func (s *stubWithdrawalsService) Available(ctx context.Context, merchantID uuid.UUID) (decimal.Decimal, error) {
	return s.available, nil
}

func (s *stubWithdrawalsService) ListForMerchant(ctx context.Context, merchantID uuid.UUID, limit int) ([]models.Withdrawal, error) {
	return nil, nil
}

func (s *stubWithdrawalsService) ListByStatus(ctx context.Context, status enums.WithdrawalStatus, limit int) ([]models.Withdrawal, error) {
	s.listed = status
	return nil, nil
}

type testNotificationsService struct {
	markReadFn    func(ctx context.Context, userID, notificationID uuid.UUID) error
	markAllReadFn func(ctx context.Context, userID uuid.UUID) (int64, error)
	listFn        func(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error)
}

func (s *testNotificationsService) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	if s.listFn != nil {
		return s.listFn(ctx, params)
	}
	return &notifications.ListResult{}, nil
}

func (s *testNotificationsService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	if s.markReadFn != nil {
		return s.markReadFn(ctx, userID, notificationID)
	}
	return nil
}

func (s *testNotificationsService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	if s.markAllReadFn != nil {
		return s.markAllReadFn(ctx, userID)
	}
	return 0, nil
}
