package settings

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
)

// Repository persists the platform singleton and the courier catalogue.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Get(ctx context.Context) (*models.SuperSetting, error)
	Create(ctx context.Context, setting *models.SuperSetting) error
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) error
	ListCouriers(ctx context.Context, activeOnly bool) ([]models.GlobalCourier, error)
	FindCourierByProviderID(ctx context.Context, providerID int64) (*models.GlobalCourier, error)
	SaveCourier(ctx context.Context, courier *models.GlobalCourier) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a settings repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Get(ctx context.Context) (*models.SuperSetting, error) {
	var setting models.SuperSetting
	if err := r.db.WithContext(ctx).Order("created_at ASC").First(&setting).Error; err != nil {
		return nil, err
	}
	return &setting, nil
}

func (r *repository) Create(ctx context.Context, setting *models.SuperSetting) error {
	return r.db.WithContext(ctx).Create(setting).Error
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.SuperSetting{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// ListCouriers orders by ascending priority with the name as tiebreak.
func (r *repository) ListCouriers(ctx context.Context, activeOnly bool) ([]models.GlobalCourier, error) {
	var rows []models.GlobalCourier
	query := r.db.WithContext(ctx).Order("priority ASC").Order("name ASC")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) FindCourierByProviderID(ctx context.Context, providerID int64) (*models.GlobalCourier, error) {
	var courier models.GlobalCourier
	if err := r.db.WithContext(ctx).Where("provider_courier_id = ?", providerID).First(&courier).Error; err != nil {
		return nil, err
	}
	return &courier, nil
}

func (r *repository) SaveCourier(ctx context.Context, courier *models.GlobalCourier) error {
	return r.db.WithContext(ctx).Save(courier).Error
}
