package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ShippingChargeHistory freezes the shipping charge computed when a merchant
// accepts an order. Rows are never updated.
type ShippingChargeHistory struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID          uuid.UUID       `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	StoreID          uuid.UUID       `gorm:"column:store_id;type:uuid;not null;index"`
	CourierID        *int64          `gorm:"column:courier_id"`
	CourierName      *string         `gorm:"column:courier_name"`
	CourierRate      decimal.Decimal `gorm:"column:courier_rate;type:numeric(12,2);not null"`
	CommissionPct    decimal.Decimal `gorm:"column:commission_pct;type:numeric(5,2);not null"`
	CommissionAmount decimal.Decimal `gorm:"column:commission_amount;type:numeric(12,2);not null"`
	ShippingCharge   decimal.Decimal `gorm:"column:shipping_charge;type:numeric(12,2);not null"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (ShippingChargeHistory) TableName() string {
	return "shipping_charge_history"
}

func (h *ShippingChargeHistory) BeforeCreate(*gorm.DB) error {
	assignID(&h.ID)
	return nil
}
