package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
)

// Repository persists the in-app inbox of each user.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, filter inboxFilter) ([]models.Notification, *pagination.Cursor, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (bool, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error)
	DeleteReadOlderThan(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

type inboxFilter struct {
	UserID     uuid.UUID
	Type       enums.NotificationType
	UnreadOnly bool
	Cursor     *pagination.Cursor
	Limit      int
}

func (f inboxFilter) scope(db *gorm.DB) *gorm.DB {
	db = db.Where("user_id = ?", f.UserID)
	if f.Type != "" {
		db = db.Where("type = ?", f.Type)
	}
	if f.UnreadOnly {
		db = db.Where("read_at IS NULL")
	}
	return db
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

func (r *repository) inbox(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Notification{})
}

func (r *repository) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *repository) List(ctx context.Context, filter inboxFilter) ([]models.Notification, *pagination.Cursor, error) {
	var rows []models.Notification
	err := r.inbox(ctx).
		Scopes(filter.scope, pagination.Keyset(filter.Cursor, filter.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, nil, err
	}
	page, next := pagination.Split(rows, filter.Limit, func(n models.Notification) pagination.Cursor {
		return pagination.Cursor{CreatedAt: n.CreatedAt, ID: n.ID}
	})
	return page, next, nil
}

func (r *repository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.inbox(ctx).
		Scopes(inboxFilter{UserID: userID, UnreadOnly: true}.scope).
		Count(&count).Error
	return count, err
}

// MarkRead keeps the first read timestamp, so repeated calls are no-ops. The
// bool reports whether the notification exists for userID.
func (r *repository) MarkRead(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (bool, error) {
	result := r.inbox(ctx).
		Where("id = ? AND user_id = ?", notificationID, userID).
		UpdateColumn("read_at", gorm.Expr("COALESCE(read_at, ?)", now))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	result := r.inbox(ctx).
		Scopes(inboxFilter{UserID: userID, UnreadOnly: true}.scope).
		UpdateColumn("read_at", now)
	return result.RowsAffected, result.Error
}

// DeleteReadOlderThan removes at most limit read notifications created before
// cutoff, oldest first. Unread rows are never purged.
func (r *repository) DeleteReadOlderThan(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	batch := r.db.Model(&models.Notification{}).
		Select("id").
		Where("read_at IS NOT NULL AND created_at < ?", cutoff).
		Order("created_at ASC").
		Limit(limit)
	result := r.db.WithContext(ctx).Where("id IN (?)", batch).Delete(&models.Notification{})
	return result.RowsAffected, result.Error
}
