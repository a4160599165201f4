package ledger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	return svc, conn
}

func TestNewServiceRequiresRepository(t *testing.T) {
	_, err := NewService(nil)
	require.Error(t, err)
}

func TestCreditRecordsSnapshots(t *testing.T) {
	svc, conn := newTestService(t)
	merchant := dbtest.Merchant(t, conn, "250.00")
	orderID := uuid.New()

	var txn *models.Transaction
	err := conn.Transaction(func(tx *gorm.DB) error {
		var err error
		txn, err = svc.Credit(context.Background(), tx, CreditInput{
			UserID:      merchant.ID,
			Amount:      decimal.RequireFromString("94.95"),
			Type:        enums.TransactionTypeCommission,
			OrderID:     &orderID,
			Description: "order payout",
		})
		return err
	})
	require.NoError(t, err)

	require.Equal(t, enums.TransactionStatusCompleted, txn.Status)
	require.Equal(t, "250.00", txn.WalletBefore.StringFixed(2))
	require.Equal(t, "344.95", txn.WalletAfter.StringFixed(2))

	var reloaded models.User
	require.NoError(t, conn.First(&reloaded, "id = ?", merchant.ID).Error)
	require.Equal(t, "344.95", reloaded.Balance.StringFixed(2))
}

func TestCreditRequiresTransaction(t *testing.T) {
	svc, conn := newTestService(t)
	merchant := dbtest.Merchant(t, conn, "0")

	_, err := svc.Credit(context.Background(), nil, CreditInput{
		UserID: merchant.ID,
		Amount: decimal.NewFromInt(10),
		Type:   enums.TransactionTypeCommission,
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConsistency))
}

func TestCreditRejectsNonPositiveAmount(t *testing.T) {
	svc, conn := newTestService(t)
	merchant := dbtest.Merchant(t, conn, "0")

	err := conn.Transaction(func(tx *gorm.DB) error {
		_, err := svc.Credit(context.Background(), tx, CreditInput{
			UserID: merchant.ID,
			Amount: decimal.Zero,
			Type:   enums.TransactionTypeCommission,
		})
		return err
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDebitCompletesExistingRow(t *testing.T) {
	svc, conn := newTestService(t)
	merchant := dbtest.Merchant(t, conn, "1000")
	withdrawalID := uuid.New()

	pending := &models.Transaction{
		UserID:       merchant.ID,
		Type:         enums.TransactionTypeWithdrawal,
		Status:       enums.TransactionStatusPending,
		Amount:       decimal.NewFromInt(400),
		WithdrawalID: &withdrawalID,
	}
	require.NoError(t, conn.Create(pending).Error)

	err := conn.Transaction(func(tx *gorm.DB) error {
		_, err := svc.Debit(context.Background(), tx, DebitInput{
			UserID:   merchant.ID,
			Amount:   pending.Amount,
			Type:     enums.TransactionTypeWithdrawalProcessed,
			Existing: pending,
		})
		return err
	})
	require.NoError(t, err)

	var stored models.Transaction
	require.NoError(t, conn.First(&stored, "id = ?", pending.ID).Error)
	require.Equal(t, enums.TransactionTypeWithdrawalProcessed, stored.Type)
	require.Equal(t, enums.TransactionStatusCompleted, stored.Status)
	require.Equal(t, "1000.00", stored.WalletBefore.StringFixed(2))
	require.Equal(t, "600.00", stored.WalletAfter.StringFixed(2))

	var count int64
	require.NoError(t, conn.Model(&models.Transaction{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestDebitRejectsInsufficientBalance(t *testing.T) {
	svc, conn := newTestService(t)
	merchant := dbtest.Merchant(t, conn, "50")

	err := conn.Transaction(func(tx *gorm.DB) error {
		_, err := svc.Debit(context.Background(), tx, DebitInput{
			UserID: merchant.ID,
			Amount: decimal.NewFromInt(51),
			Type:   enums.TransactionTypePayout,
		})
		return err
	})
	require.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonInsufficientBalance))

	var reloaded models.User
	require.NoError(t, conn.First(&reloaded, "id = ?", merchant.ID).Error)
	require.Equal(t, "50.00", reloaded.Balance.StringFixed(2))
}

func TestDebitUnknownUser(t *testing.T) {
	svc, conn := newTestService(t)

	err := conn.Transaction(func(tx *gorm.DB) error {
		_, err := svc.Debit(context.Background(), tx, DebitInput{
			UserID: uuid.New(),
			Amount: decimal.NewFromInt(1),
			Type:   enums.TransactionTypePayout,
		})
		return err
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestHistoryNewestFirst(t *testing.T) {
	svc, conn := newTestService(t)
	merchant := dbtest.Merchant(t, conn, "0")

	for _, amount := range []int64{10, 20, 30} {
		amount := amount
		require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
			_, err := svc.Credit(context.Background(), tx, CreditInput{
				UserID: merchant.ID,
				Amount: decimal.NewFromInt(amount),
				Type:   enums.TransactionTypeCommission,
			})
			return err
		}))
	}

	rows, err := svc.History(context.Background(), merchant.ID, 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "60.00", rows[0].WalletAfter.StringFixed(2))
}
