package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/money"
)

// Service mutates wallet balances. Every mutation locks the owner's row and
// writes its Transaction in the caller's database transaction.
type Service interface {
	Credit(ctx context.Context, tx *gorm.DB, input CreditInput) (*models.Transaction, error)
	Debit(ctx context.Context, tx *gorm.DB, input DebitInput) (*models.Transaction, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]models.Transaction, error)
}

// CreditInput adds Amount to the user's wallet and records a completed row.
type CreditInput struct {
	UserID      uuid.UUID
	Amount      decimal.Decimal
	Type        enums.TransactionType
	OrderID     *uuid.UUID
	Description string
}

// DebitInput removes Amount from the user's wallet. When Existing is set the
// pending row is completed in place instead of appending a new one.
type DebitInput struct {
	UserID      uuid.UUID
	Amount      decimal.Decimal
	Type        enums.TransactionType
	Existing    *models.Transaction
	Description string
}

type service struct {
	repo Repository
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Credit(ctx context.Context, tx *gorm.DB, input CreditInput) (*models.Transaction, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConsistency, "wallet credit requires a database transaction")
	}
	if err := validateMutation(input.UserID, input.Amount, input.Type); err != nil {
		return nil, err
	}

	repo := s.repo.WithTx(tx)
	user, err := lockUser(ctx, repo, input.UserID)
	if err != nil {
		return nil, err
	}

	before := user.Balance
	after := money.Round(before.Add(input.Amount))
	if err := repo.SetBalance(ctx, user.ID, after); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update wallet balance")
	}

	txn := &models.Transaction{
		UserID:       user.ID,
		Type:         input.Type,
		Status:       enums.TransactionStatusCompleted,
		Amount:       input.Amount,
		Description:  input.Description,
		OrderID:      input.OrderID,
		WalletBefore: before,
		WalletAfter:  after,
	}
	if err := repo.Create(ctx, txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record wallet credit")
	}
	return txn, nil
}

func (s *service) Debit(ctx context.Context, tx *gorm.DB, input DebitInput) (*models.Transaction, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConsistency, "wallet debit requires a database transaction")
	}
	if err := validateMutation(input.UserID, input.Amount, input.Type); err != nil {
		return nil, err
	}

	repo := s.repo.WithTx(tx)
	user, err := lockUser(ctx, repo, input.UserID)
	if err != nil {
		return nil, err
	}

	before := user.Balance
	if before.LessThan(input.Amount) {
		return nil, pkgerrors.Rule(pkgerrors.ReasonInsufficientBalance,
			fmt.Sprintf("wallet balance %s is below %s", before.StringFixed(money.Places), input.Amount.StringFixed(money.Places)))
	}
	after := money.Round(before.Sub(input.Amount))
	if err := repo.SetBalance(ctx, user.ID, after); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update wallet balance")
	}

	if existing := input.Existing; existing != nil {
		fields := map[string]any{
			"type":          input.Type,
			"status":        enums.TransactionStatusCompleted,
			"wallet_before": before,
			"wallet_after":  after,
		}
		if input.Description != "" {
			fields["description"] = input.Description
		}
		if err := repo.Update(ctx, existing.ID, fields); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "complete wallet debit")
		}
		existing.Type = input.Type
		existing.Status = enums.TransactionStatusCompleted
		existing.WalletBefore = before
		existing.WalletAfter = after
		if input.Description != "" {
			existing.Description = input.Description
		}
		return existing, nil
	}

	txn := &models.Transaction{
		UserID:       user.ID,
		Type:         input.Type,
		Status:       enums.TransactionStatusCompleted,
		Amount:       input.Amount,
		Description:  input.Description,
		WalletBefore: before,
		WalletAfter:  after,
	}
	if err := repo.Create(ctx, txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record wallet debit")
	}
	return txn, nil
}

func (s *service) History(ctx context.Context, userID uuid.UUID, limit int) ([]models.Transaction, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	return s.repo.ListByUser(ctx, userID, limit)
}

func validateMutation(userID uuid.UUID, amount decimal.Decimal, txnType enums.TransactionType) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if !amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if !txnType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid transaction type %q", txnType))
	}
	return nil
}

func lockUser(ctx context.Context, repo Repository, userID uuid.UUID) (*models.User, error) {
	user, err := repo.LockUser(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wallet owner not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock wallet owner")
	}
	return user, nil
}
