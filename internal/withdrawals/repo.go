package withdrawals

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// Repository persists withdrawal requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, withdrawal *models.Withdrawal) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) error
	ListByMerchant(ctx context.Context, merchantID uuid.UUID, limit int) ([]models.Withdrawal, error)
	ListByStatus(ctx context.Context, status enums.WithdrawalStatus, limit int) ([]models.Withdrawal, error)
	ReservedAmounts(ctx context.Context, merchantID uuid.UUID, exclude *uuid.UUID) ([]decimal.Decimal, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a withdrawals repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, withdrawal *models.Withdrawal) error {
	return r.db.WithContext(ctx).Create(withdrawal).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error) {
	var row models.Withdrawal
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error) {
	var row models.Withdrawal
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Withdrawal{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repository) ListByMerchant(ctx context.Context, merchantID uuid.UUID, limit int) ([]models.Withdrawal, error) {
	return r.list(ctx, limit, "merchant_id = ?", merchantID)
}

func (r *repository) ListByStatus(ctx context.Context, status enums.WithdrawalStatus, limit int) ([]models.Withdrawal, error) {
	return r.list(ctx, limit, "status = ?", status)
}

// ReservedAmounts returns the amounts of the merchant's withdrawals that still
// hold wallet balance. Amounts are summed by the caller in decimal.
func (r *repository) ReservedAmounts(ctx context.Context, merchantID uuid.UUID, exclude *uuid.UUID) ([]decimal.Decimal, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Withdrawal{}).
		Where("merchant_id = ? AND status IN ?", merchantID, enums.ReservedWithdrawalStatuses)
	if exclude != nil {
		query = query.Where("id <> ?", *exclude)
	}
	var amounts []decimal.Decimal
	if err := query.Pluck("amount", &amounts).Error; err != nil {
		return nil, err
	}
	return amounts, nil
}

func (r *repository) list(ctx context.Context, limit int, where string, args ...any) ([]models.Withdrawal, error) {
	var rows []models.Withdrawal
	query := r.db.WithContext(ctx).Where(where, args...).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
