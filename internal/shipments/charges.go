package shipments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
)

// ChargeRepository stores the shipping charge frozen at accept time. Rows
// are insert-only.
type ChargeRepository interface {
	WithTx(tx *gorm.DB) ChargeRepository
	Create(ctx context.Context, charge *models.ShippingChargeHistory) error
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.ShippingChargeHistory, error)
	ListByStore(ctx context.Context, storeID uuid.UUID, limit int) ([]models.ShippingChargeHistory, error)
}

type chargeRepository struct {
	db *gorm.DB
}

// NewChargeRepository binds the shipping charge history table.
func NewChargeRepository(db *gorm.DB) ChargeRepository {
	return &chargeRepository{db: db}
}

func (r *chargeRepository) WithTx(tx *gorm.DB) ChargeRepository {
	if tx == nil {
		return r
	}
	return &chargeRepository{db: tx}
}

func (r *chargeRepository) Create(ctx context.Context, charge *models.ShippingChargeHistory) error {
	return r.db.WithContext(ctx).Create(charge).Error
}

func (r *chargeRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.ShippingChargeHistory, error) {
	var charge models.ShippingChargeHistory
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&charge).Error; err != nil {
		return nil, err
	}
	return &charge, nil
}

func (r *chargeRepository) ListByStore(ctx context.Context, storeID uuid.UUID, limit int) ([]models.ShippingChargeHistory, error) {
	var rows []models.ShippingChargeHistory
	query := r.db.WithContext(ctx).Where("store_id = ?", storeID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
