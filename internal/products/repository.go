package product

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
)

// Repository handles product persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new product repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// Save writes every column, including the derived price and stock.
func (r *Repository) Save(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// ListByStore returns a store's products, newest first.
func (r *Repository) ListByStore(ctx context.Context, storeID uuid.UUID, activeOnly bool) ([]models.Product, error) {
	var rows []models.Product
	query := r.db.WithContext(ctx).Where("store_id = ?", storeID)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
