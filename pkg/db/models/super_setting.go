package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SuperSetting is the single platform configuration row. The unique
// Singleton column rejects a second insert at the database level.
type SuperSetting struct {
	ID                       uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Singleton                bool            `gorm:"column:singleton;not null;uniqueIndex"`
	SalesCommission          decimal.Decimal `gorm:"column:sales_commission;type:numeric(5,2);not null"`
	ShippingChargeCommission decimal.Decimal `gorm:"column:shipping_charge_commission;type:numeric(5,2);not null"`
	BasicShippingCharge      decimal.Decimal `gorm:"column:basic_shipping_charge;type:numeric(12,2);not null"`
	CreatedAt                time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *SuperSetting) BeforeCreate(*gorm.DB) error {
	assignID(&s.ID)
	s.Singleton = true
	return nil
}
