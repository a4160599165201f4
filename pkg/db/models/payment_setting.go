package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/types"
)

// PaymentSetting is a merchant payout destination. Details are locked once an
// admin approves the setting.
type PaymentSetting struct {
	ID          uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	UserID      uuid.UUID                `gorm:"column:user_id;type:uuid;not null;uniqueIndex:uq_payment_settings_user_fingerprint"`
	Type        enums.PaymentSettingType `gorm:"column:type;type:text;not null"`
	Details     types.PaymentDetails     `gorm:"column:details;type:jsonb;serializer:json"`
	Fingerprint string                   `gorm:"column:fingerprint;not null;uniqueIndex:uq_payment_settings_user_fingerprint"`
	Status      enums.ReviewStatus       `gorm:"column:status;type:text;not null"`
	CreatedAt   time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *PaymentSetting) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}
