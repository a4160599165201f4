// Package withdrawals lets merchants cash out wallet balance. Creation
// reserves balance, approval is the only debit and rejection releases the
// reservation.
package withdrawals

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/ledger"
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

// PayoutDestinations resolves the payment setting a withdrawal is paid to.
type PayoutDestinations interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentSetting, error)
}

type decisionNotifier interface {
	NotifyWithdrawalDecision(ctx context.Context, withdrawal *models.Withdrawal) bool
}

// Service is the withdrawal manager.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Withdrawal, error)
	Approve(ctx context.Context, input ReviewInput) (*models.Withdrawal, error)
	Reject(ctx context.Context, input ReviewInput) (*models.Withdrawal, error)
	Available(ctx context.Context, merchantID uuid.UUID) (decimal.Decimal, error)
	ListForMerchant(ctx context.Context, merchantID uuid.UUID, limit int) ([]models.Withdrawal, error)
	ListByStatus(ctx context.Context, status enums.WithdrawalStatus, limit int) ([]models.Withdrawal, error)
}

// CreateInput is a merchant's withdrawal request.
type CreateInput struct {
	MerchantID       uuid.UUID
	Amount           decimal.Decimal
	PaymentSettingID *uuid.UUID
}

// ReviewInput is an admin decision. Reason is required for rejections.
type ReviewInput struct {
	WithdrawalID uuid.UUID
	ReviewerID   uuid.UUID
	Reason       string
}

type service struct {
	repo         Repository
	tx           txRunner
	wallets      ledger.Repository
	ledger       ledger.Service
	destinations PayoutDestinations
	notifier     decisionNotifier
	logg         *logger.Logger
}

// NewService wires the withdrawal manager.
func NewService(repo Repository, tx txRunner, wallets ledger.Repository, ledgerSvc ledger.Service, destinations PayoutDestinations, notifier decisionNotifier, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("withdrawals repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if wallets == nil || ledgerSvc == nil {
		return nil, fmt.Errorf("ledger dependencies required")
	}
	if destinations == nil {
		return nil, fmt.Errorf("payout destinations required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:         repo,
		tx:           tx,
		wallets:      wallets,
		ledger:       ledgerSvc,
		destinations: destinations,
		notifier:     notifier,
		logg:         logg,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Withdrawal, error) {
	if input.MerchantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	amount := money.Round(input.Amount)
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if input.PaymentSettingID != nil {
		if err := s.checkDestination(ctx, input.MerchantID, *input.PaymentSettingID); err != nil {
			return nil, err
		}
	}

	var created *models.Withdrawal
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		merchant, err := s.lockMerchant(ctx, tx, input.MerchantID)
		if err != nil {
			return err
		}
		available, err := s.available(ctx, tx, merchant, nil)
		if err != nil {
			return err
		}
		if amount.GreaterThan(available) {
			return insufficient(amount, available)
		}

		withdrawal := &models.Withdrawal{
			MerchantID:       merchant.ID,
			Amount:           amount,
			Status:           enums.WithdrawalStatusPending,
			PaymentSettingID: input.PaymentSettingID,
		}
		if err := s.repo.WithTx(tx).Create(ctx, withdrawal); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create withdrawal")
		}

		withdrawalID := withdrawal.ID
		if err := s.wallets.WithTx(tx).Create(ctx, &models.Transaction{
			UserID:       merchant.ID,
			Type:         enums.TransactionTypeWithdrawal,
			Status:       enums.TransactionStatusPending,
			Amount:       amount,
			Description:  "Withdrawal request",
			WithdrawalID: &withdrawalID,
			WalletBefore: merchant.Balance,
			WalletAfter:  merchant.Balance,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record withdrawal transaction")
		}
		created = withdrawal
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) Approve(ctx context.Context, input ReviewInput) (*models.Withdrawal, error) {
	if input.WithdrawalID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "withdrawal id required")
	}

	var approved *models.Withdrawal
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		withdrawal, err := s.lockWithdrawal(ctx, repo, input.WithdrawalID)
		if err != nil {
			return err
		}
		if withdrawal.Status != enums.WithdrawalStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("withdrawal is already %s", withdrawal.Status))
		}

		merchant, err := s.lockMerchant(ctx, tx, withdrawal.MerchantID)
		if err != nil {
			return err
		}
		available, err := s.available(ctx, tx, merchant, &withdrawal.ID)
		if err != nil {
			return err
		}
		if withdrawal.Amount.GreaterThan(available) {
			return insufficient(withdrawal.Amount, available)
		}

		linked, err := s.wallets.WithTx(tx).FindByWithdrawalIDForUpdate(ctx, withdrawal.ID)
		if err != nil && !db.IsNotFound(err) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load withdrawal transaction")
		}
		if _, err := s.ledger.Debit(ctx, tx, ledger.DebitInput{
			UserID:      merchant.ID,
			Amount:      withdrawal.Amount,
			Type:        enums.TransactionTypeWithdrawalProcessed,
			Existing:    linked,
			Description: "Withdrawal processed",
		}); err != nil {
			return err
		}

		now := time.Now().UTC()
		fields := map[string]any{
			"status":      enums.WithdrawalStatusApproved,
			"reviewed_at": now,
		}
		if input.ReviewerID != uuid.Nil {
			fields["reviewed_by"] = input.ReviewerID
			withdrawal.ReviewedBy = &input.ReviewerID
		}
		if err := repo.Update(ctx, withdrawal.ID, fields); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "approve withdrawal")
		}
		withdrawal.Status = enums.WithdrawalStatusApproved
		withdrawal.ReviewedAt = &now
		approved = withdrawal
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifier.NotifyWithdrawalDecision(ctx, approved)
	return approved, nil
}

func (s *service) Reject(ctx context.Context, input ReviewInput) (*models.Withdrawal, error) {
	if input.WithdrawalID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "withdrawal id required")
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection reason is required")
	}

	var rejected *models.Withdrawal
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		withdrawal, err := s.lockWithdrawal(ctx, repo, input.WithdrawalID)
		if err != nil {
			return err
		}
		switch withdrawal.Status {
		case enums.WithdrawalStatusApproved:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "approved withdrawals cannot be rejected")
		case enums.WithdrawalStatusRejected:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "withdrawal is already rejected")
		}

		now := time.Now().UTC()
		fields := map[string]any{
			"status":           enums.WithdrawalStatusRejected,
			"rejection_reason": reason,
			"reviewed_at":      now,
		}
		if input.ReviewerID != uuid.Nil {
			fields["reviewed_by"] = input.ReviewerID
			withdrawal.ReviewedBy = &input.ReviewerID
		}
		if err := repo.Update(ctx, withdrawal.ID, fields); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reject withdrawal")
		}

		wallets := s.wallets.WithTx(tx)
		linked, err := wallets.FindByWithdrawalIDForUpdate(ctx, withdrawal.ID)
		switch {
		case err == nil:
			if err := wallets.Update(ctx, linked.ID, map[string]any{"status": enums.TransactionStatusCancelled}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel withdrawal transaction")
			}
		case !db.IsNotFound(err):
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load withdrawal transaction")
		}

		withdrawal.Status = enums.WithdrawalStatusRejected
		withdrawal.RejectionReason = &reason
		withdrawal.ReviewedAt = &now
		rejected = withdrawal
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifier.NotifyWithdrawalDecision(ctx, rejected)
	return rejected, nil
}

// Available reports the amount the merchant could request right now.
func (s *service) Available(ctx context.Context, merchantID uuid.UUID) (decimal.Decimal, error) {
	var available decimal.Decimal
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		merchant, err := s.lockMerchant(ctx, tx, merchantID)
		if err != nil {
			return err
		}
		available, err = s.available(ctx, tx, merchant, nil)
		return err
	})
	return available, err
}

func (s *service) ListForMerchant(ctx context.Context, merchantID uuid.UUID, limit int) ([]models.Withdrawal, error) {
	if merchantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	rows, err := s.repo.ListByMerchant(ctx, merchantID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list withdrawals")
	}
	return rows, nil
}

func (s *service) ListByStatus(ctx context.Context, status enums.WithdrawalStatus, limit int) ([]models.Withdrawal, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid withdrawal status %q", status))
	}
	rows, err := s.repo.ListByStatus(ctx, status, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list withdrawals")
	}
	return rows, nil
}

// available is balance minus every other withdrawal still holding funds.
// Callers hold the merchant row lock.
func (s *service) available(ctx context.Context, tx *gorm.DB, merchant *models.User, exclude *uuid.UUID) (decimal.Decimal, error) {
	amounts, err := s.repo.WithTx(tx).ReservedAmounts(ctx, merchant.ID, exclude)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum reserved withdrawals")
	}
	return money.Round(merchant.Balance.Sub(money.Sum(amounts...))), nil
}

func (s *service) lockMerchant(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.User, error) {
	user, err := s.wallets.WithTx(tx).LockUser(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "merchant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock merchant wallet")
	}
	if !user.IsMerchant {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only merchants can withdraw")
	}
	return user, nil
}

func (s *service) lockWithdrawal(ctx context.Context, repo Repository, id uuid.UUID) (*models.Withdrawal, error) {
	withdrawal, err := repo.FindByIDForUpdate(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "withdrawal not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load withdrawal")
	}
	return withdrawal, nil
}

func (s *service) checkDestination(ctx context.Context, merchantID, settingID uuid.UUID) error {
	setting, err := s.destinations.FindByID(ctx, settingID)
	if err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "payment setting not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment setting")
	}
	if setting.UserID != merchantID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "payment setting belongs to another user")
	}
	if setting.Status != enums.ReviewStatusApproved {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment setting is not approved yet")
	}
	return nil
}

func insufficient(amount, available decimal.Decimal) error {
	return pkgerrors.Rule(pkgerrors.ReasonInsufficientBalance,
		fmt.Sprintf("requested %s exceeds available balance %s", amount.StringFixed(money.Places), available.StringFixed(money.Places))).
		WithDetails(map[string]string{
			"requested": amount.StringFixed(money.Places),
			"available": available.StringFixed(money.Places),
		})
}
