package users

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
)

// Repository exposes user-related persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts a new user and returns the persisted model.
func (r *Repository) Create(ctx context.Context, input CreateUserInput) (*models.User, error) {
	user := input.ToModel()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByPhone retrieves the user registered with the phone number.
func (r *Repository) FindByPhone(ctx context.Context, phone string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("phone = ?", phone).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByIDForUpdate locks the user row for the remainder of the transaction.
func (r *Repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&user, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update applies a partial column update.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// HighestMerchantCode returns the largest numeric suffix among issued
// merchant codes, or 0 when none were issued. Codes that do not follow the
// prefix+number shape are ignored.
func (r *Repository) HighestMerchantCode(ctx context.Context) (int, error) {
	var codes []string
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("merchant_code LIKE ?", MerchantCodePrefix+"%").
		Pluck("merchant_code", &codes).Error
	if err != nil {
		return 0, err
	}
	highest := 0
	for _, code := range codes {
		n, err := strconv.Atoi(strings.TrimPrefix(code, MerchantCodePrefix))
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return highest, nil
}
