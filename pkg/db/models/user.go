package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// User is a customer, merchant or driver. Balance is the merchant wallet and
// only moves together with a Transaction row.
type User struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name         string          `gorm:"column:name;not null"`
	Email        *string         `gorm:"column:email"`
	Phone        string          `gorm:"column:phone;not null;uniqueIndex"`
	CountryCode  string          `gorm:"column:country_code;not null;default:'+91'"`
	IsMerchant   bool            `gorm:"column:is_merchant;not null"`
	IsDriver     bool            `gorm:"column:is_driver;not null"`
	IsStaff      bool            `gorm:"column:is_staff;not null"`
	MerchantCode *string         `gorm:"column:merchant_code;uniqueIndex"`
	Balance      decimal.Decimal `gorm:"column:balance;type:numeric(12,2);not null;default:0"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	assignID(&u.ID)
	return nil
}
