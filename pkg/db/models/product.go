package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/types"
)

// Product is sold by one store. With variants enabled, Price and
// StockQuantity are derived from Variants on every save.
type Product struct {
	ID            uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	StoreID       uuid.UUID             `gorm:"column:store_id;type:uuid;not null;index"`
	CategoryID    *uuid.UUID            `gorm:"column:category_id;type:uuid"`
	Name          string                `gorm:"column:name;not null"`
	SKU           *string               `gorm:"column:sku"`
	Price         decimal.Decimal       `gorm:"column:price;type:numeric(12,2);not null"`
	StockQuantity int                   `gorm:"column:stock_quantity;not null;default:0"`
	Variants      types.ProductVariants `gorm:"column:variants;type:jsonb;serializer:json"`
	IsActive      bool                  `gorm:"column:is_active;not null"`
	CreatedAt     time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}
