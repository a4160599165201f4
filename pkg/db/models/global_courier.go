package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GlobalCourier is a platform-wide courier option. Lower Priority is tried first.
type GlobalCourier struct {
	ID                uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProviderCourierID int64     `gorm:"column:provider_courier_id;not null;uniqueIndex"`
	Name              string    `gorm:"column:name;not null"`
	IsActive          bool      `gorm:"column:is_active;not null"`
	Priority          int       `gorm:"column:priority;not null"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *GlobalCourier) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}
