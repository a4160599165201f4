package stores

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
)

// Repository handles store persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to store operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a new store row.
func (r *Repository) Create(ctx context.Context, store *models.Store) error {
	if store == nil {
		return fmt.Errorf("store is required")
	}
	return r.db.WithContext(ctx).Omit("Owner").Create(store).Error
}

// FindByID loads a store by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	var store models.Store
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&store).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

// FindByIDWithOwner loads a store together with its owning user.
func (r *Repository) FindByIDWithOwner(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	var store models.Store
	if err := r.db.WithContext(ctx).Preload("Owner").Where("id = ?", id).First(&store).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

// FindByIDs loads the requested stores keyed by id. Missing ids are absent
// from the result.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Store, error) {
	result := make(map[uuid.UUID]*models.Store, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var rows []models.Store
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		result[rows[i].ID] = &rows[i]
	}
	return result, nil
}

// FindByOwner returns all stores owned by the provided user.
func (r *Repository) FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Store, error) {
	var stores []models.Store
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("created_at ASC").Find(&stores).Error; err != nil {
		return nil, err
	}
	return stores, nil
}

// Update applies a partial update.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.Store{}).Where("id = ?", id).Updates(fields).Error
}

// ListMissingWarehouse returns active stores the logistics provider does not
// know yet, oldest first.
func (r *Repository) ListMissingWarehouse(ctx context.Context, limit int) ([]models.Store, error) {
	var stores []models.Store
	query := r.db.WithContext(ctx).
		Preload("Owner").
		Where("pickup_warehouse_id IS NULL AND is_active = ?", true).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&stores).Error; err != nil {
		return nil, err
	}
	return stores, nil
}

// FindByIDsWithTx is FindByIDs bound to the caller's transaction.
func (r *Repository) FindByIDsWithTx(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]*models.Store, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	return (&Repository{db: tx}).FindByIDs(ctx, ids)
}
