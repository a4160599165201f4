package paymentmethods

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
)

// Repository persists merchant payout destinations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, setting *models.PaymentSetting) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentSetting, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.PaymentSetting, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.PaymentSetting, error)
	FingerprintExists(ctx context.Context, userID uuid.UUID, fingerprint string, exclude uuid.UUID) (bool, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) error
	Save(ctx context.Context, setting *models.PaymentSetting) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, setting *models.PaymentSetting) error {
	return r.db.WithContext(ctx).Create(setting).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentSetting, error) {
	var setting models.PaymentSetting
	if err := r.db.WithContext(ctx).First(&setting, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &setting, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.PaymentSetting, error) {
	var setting models.PaymentSetting
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&setting, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.PaymentSetting, error) {
	var rows []models.PaymentSetting
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

// FingerprintExists reports whether the merchant already registered the same
// destination under another setting.
func (r *repository) FingerprintExists(ctx context.Context, userID uuid.UUID, fingerprint string, exclude uuid.UUID) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).
		Model(&models.PaymentSetting{}).
		Where("user_id = ? AND fingerprint = ?", userID, fingerprint)
	if exclude != uuid.Nil {
		query = query.Where("id <> ?", exclude)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.PaymentSetting{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// Save writes every column, including the serialized details.
func (r *repository) Save(ctx context.Context, setting *models.PaymentSetting) error {
	return r.db.WithContext(ctx).Save(setting).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.PaymentSetting{}, "id = ?", id).Error
}
