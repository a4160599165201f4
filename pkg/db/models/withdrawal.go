package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// Withdrawal is a merchant's request to cash out wallet balance.
type Withdrawal struct {
	ID               uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	MerchantID       uuid.UUID              `gorm:"column:merchant_id;type:uuid;not null;index"`
	Amount           decimal.Decimal        `gorm:"column:amount;type:numeric(12,2);not null"`
	Status           enums.WithdrawalStatus `gorm:"column:status;type:text;not null"`
	PaymentSettingID *uuid.UUID             `gorm:"column:payment_setting_id;type:uuid"`
	RejectionReason  *string                `gorm:"column:rejection_reason"`
	ReviewedBy       *uuid.UUID             `gorm:"column:reviewed_by;type:uuid"`
	ReviewedAt       *time.Time             `gorm:"column:reviewed_at"`
	CreatedAt        time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (w *Withdrawal) BeforeCreate(*gorm.DB) error {
	assignID(&w.ID)
	return nil
}
