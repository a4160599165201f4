package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// Repository manages persistence for ledger transactions and wallet balances.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, txn *models.Transaction) error
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	FindByMerchantOrderID(ctx context.Context, merchantOrderID string) (*models.Transaction, error)
	FindByMerchantOrderIDForUpdate(ctx context.Context, merchantOrderID string) (*models.Transaction, error)
	FindMerchantOrderIDByGatewayRef(ctx context.Context, gateway enums.Gateway, ref string) (string, error)
	FindByWithdrawalIDForUpdate(ctx context.Context, withdrawalID uuid.UUID) (*models.Transaction, error)
	HasCompleted(ctx context.Context, orderID uuid.UUID, txnType enums.TransactionType) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Transaction, error)
	ListPendingGatewayPayments(ctx context.Context, before time.Time, limit int) ([]models.Transaction, error)
	LockUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
	SetBalance(ctx context.Context, userID uuid.UUID, balance decimal.Decimal) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, txn *models.Transaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&txn).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repository) FindByMerchantOrderID(ctx context.Context, merchantOrderID string) (*models.Transaction, error) {
	var txn models.Transaction
	if err := r.db.WithContext(ctx).Where("merchant_order_id = ?", merchantOrderID).First(&txn).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repository) FindByMerchantOrderIDForUpdate(ctx context.Context, merchantOrderID string) (*models.Transaction, error) {
	var txn models.Transaction
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("merchant_order_id = ?", merchantOrderID).
		First(&txn).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repository) FindMerchantOrderIDByGatewayRef(ctx context.Context, gateway enums.Gateway, ref string) (string, error) {
	var txn models.Transaction
	if err := r.db.WithContext(ctx).
		Select("merchant_order_id").
		Where("gateway = ? AND gateway_ref = ?", gateway, ref).
		First(&txn).Error; err != nil {
		return "", err
	}
	if txn.MerchantOrderID == nil {
		return "", gorm.ErrRecordNotFound
	}
	return *txn.MerchantOrderID, nil
}

func (r *repository) FindByWithdrawalIDForUpdate(ctx context.Context, withdrawalID uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("withdrawal_id = ?", withdrawalID).
		Order("created_at ASC").
		First(&txn).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repository) HasCompleted(ctx context.Context, orderID uuid.UUID, txnType enums.TransactionType) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("order_id = ? AND type = ? AND status = ?", orderID, txnType, enums.TransactionStatusCompleted).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Transaction, error) {
	var rows []models.Transaction
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListPendingGatewayPayments returns payment attempts still waiting on the
// gateway that were opened before the cutoff, oldest first. Attempts whose
// temporary order is gone were already closed out as pending and are skipped.
func (r *repository) ListPendingGatewayPayments(ctx context.Context, before time.Time, limit int) ([]models.Transaction, error) {
	var rows []models.Transaction
	temporary := r.db.Model(&models.Order{}).
		Select("1").
		Where("orders.id = transactions.order_id AND orders.store_id IS NULL")
	query := r.db.WithContext(ctx).
		Where("type = ? AND status = ?", enums.TransactionTypeGatewayPayment, enums.TransactionStatusPending).
		Where("merchant_order_id IS NOT NULL AND created_at < ?", before).
		Where("EXISTS (?)", temporary).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// LockUser reads the user row with SELECT ... FOR UPDATE so balance changes
// for the same wallet are serialized.
func (r *repository) LockUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", userID).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) SetBalance(ctx context.Context, userID uuid.UUID, balance decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("balance", balance).Error
}
