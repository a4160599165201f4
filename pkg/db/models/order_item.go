package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderItem snapshots a product line at order time. Total is frozen as
// Price × Quantity when the row is created.
type OrderItem struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	StoreID     uuid.UUID       `gorm:"column:store_id;type:uuid;not null"`
	ProductName string          `gorm:"column:product_name;not null"`
	VariantKey  *string         `gorm:"column:variant_key"`
	Quantity    int             `gorm:"column:quantity;not null"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Total       decimal.Decimal `gorm:"column:total;type:numeric(12,2);not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}
