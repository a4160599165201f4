package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
)

// Repository defines persistence operations for orders and pending checkouts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Order, error)
	ListByStore(ctx context.Context, storeID uuid.UUID, limit int) ([]models.Order, error)
	ListTrackable(ctx context.Context, limit int) ([]models.Order, error)
	ListUnsettled(ctx context.Context, limit int) ([]models.Order, error)

	CreatePendingCheckout(ctx context.Context, pending *models.PendingCheckout) error
	FindPendingCheckout(ctx context.Context, id uuid.UUID) (*models.PendingCheckout, error)
	DeletePendingCheckout(ctx context.Context, id uuid.UUID) error
}

// Settler credits merchant revenue for a delivered order. Implementations
// must be safe to call repeatedly.
type Settler interface {
	SettleOrder(ctx context.Context, orderID uuid.UUID) error
}
