package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// Notification stores in-app notification payloads for store owners.
type Notification struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	StoreID   *uuid.UUID             `gorm:"column:store_id;type:uuid"`
	OrderID   *uuid.UUID             `gorm:"column:order_id;type:uuid"`
	Type      enums.NotificationType `gorm:"column:type;type:text;not null"`
	Title     string                 `gorm:"column:title;not null"`
	Message   string                 `gorm:"column:message;type:text;not null"`
	ReadAt    *time.Time             `gorm:"column:read_at"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime"`
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	assignID(&n.ID)
	return nil
}
