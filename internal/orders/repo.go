package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

type repository struct {
	db      *gorm.DB
	numbers func(time.Time) string
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db, numbers: NewOrderNumber}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx, numbers: r.numbers}
}

// Create inserts the order and its items. A blank OrderNumber is generated and
// regenerated on collision; each attempt runs in its own savepoint so a
// conflict does not abort an enclosing transaction.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	generated := order.OrderNumber == ""
	var lastErr error
	for attempt := 0; attempt < maxOrderNumberAttempts; attempt++ {
		if generated {
			order.OrderNumber = r.numbers(time.Now())
		}
		lastErr = r.db.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
			return inner.Omit("Store").Create(order).Error
		})
		if lastErr == nil {
			return nil
		}
		if !generated || !isOrderNumberConflict(lastErr) {
			return lastErr
		}
		order.ID = uuid.Nil
		for i := range order.Items {
			order.Items[i].ID = uuid.Nil
			order.Items[i].OrderID = uuid.Nil
		}
	}
	return fmt.Errorf("order number unavailable after %d attempts: %w", maxOrderNumberAttempts, lastErr)
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Store").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByIDForUpdate locks the order row for the remainder of the transaction.
func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", order.ID).
		Order("created_at ASC").
		Find(&order.Items).Error; err != nil {
		return nil, err
	}
	if order.StoreID != nil {
		var store models.Store
		if err := r.db.WithContext(ctx).Where("id = ?", *order.StoreID).First(&store).Error; err != nil {
			return nil, err
		}
		order.Store = &store
	}
	return &order, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Where("order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Order{}).Error
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Order, error) {
	return r.list(ctx, limit, "user_id = ? AND store_id IS NOT NULL", userID)
}

func (r *repository) ListByStore(ctx context.Context, storeID uuid.UUID, limit int) ([]models.Order, error) {
	return r.list(ctx, limit, "store_id = ?", storeID)
}

// ListTrackable returns orders with an AWB whose status can still move.
func (r *repository) ListTrackable(ctx context.Context, limit int) ([]models.Order, error) {
	var rows []models.Order
	query := r.db.WithContext(ctx).
		Where("awb_number IS NOT NULL AND awb_number <> ''").
		Where("status NOT IN ?", []enums.OrderStatus{
			enums.OrderStatusDelivered,
			enums.OrderStatusCancelled,
			enums.OrderStatusRefunded,
		}).
		Order("updated_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListUnsettled returns delivered, paid orders whose revenue was never credited.
func (r *repository) ListUnsettled(ctx context.Context, limit int) ([]models.Order, error) {
	var rows []models.Order
	query := r.db.WithContext(ctx).
		Where("status = ? AND payment_status = ?", enums.OrderStatusDelivered, enums.PaymentStatusSuccess).
		Where("commission_settled = ?", false).
		Order("updated_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) list(ctx context.Context, limit int, where string, args ...any) ([]models.Order, error) {
	var rows []models.Order
	query := r.db.WithContext(ctx).
		Preload("Items").
		Where(where, args...).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CreatePendingCheckout(ctx context.Context, pending *models.PendingCheckout) error {
	return r.db.WithContext(ctx).Create(pending).Error
}

func (r *repository) FindPendingCheckout(ctx context.Context, id uuid.UUID) (*models.PendingCheckout, error) {
	var pending models.PendingCheckout
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&pending).Error; err != nil {
		return nil, err
	}
	return &pending, nil
}

func (r *repository) DeletePendingCheckout(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.PendingCheckout{}).Error
}
