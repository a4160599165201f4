package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// Transaction is an append-only ledger row. WalletBefore/WalletAfter capture
// the owner's balance at write time.
type Transaction struct {
	ID              uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	UserID          uuid.UUID               `gorm:"column:user_id;type:uuid;not null;index"`
	Type            enums.TransactionType   `gorm:"column:type;type:text;not null"`
	Status          enums.TransactionStatus `gorm:"column:status;type:text;not null"`
	Amount          decimal.Decimal         `gorm:"column:amount;type:numeric(12,2);not null"`
	Description     string                  `gorm:"column:description;type:text"`
	OrderID         *uuid.UUID              `gorm:"column:order_id;type:uuid;index"`
	WithdrawalID    *uuid.UUID              `gorm:"column:withdrawal_id;type:uuid;index"`
	Gateway         *enums.Gateway          `gorm:"column:gateway;type:text"`
	MerchantOrderID *string                 `gorm:"column:merchant_order_id;uniqueIndex"`
	GatewayRef      *string                 `gorm:"column:gateway_ref"`
	UTR             *string                 `gorm:"column:utr"`
	VPA             *string                 `gorm:"column:vpa"`
	BankID          *string                 `gorm:"column:bank_id"`
	WalletBefore    decimal.Decimal         `gorm:"column:wallet_before;type:numeric(12,2);not null;default:0"`
	WalletAfter     decimal.Decimal         `gorm:"column:wallet_after;type:numeric(12,2);not null;default:0"`
	CreatedAt       time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (t *Transaction) BeforeCreate(*gorm.DB) error {
	assignID(&t.ID)
	return nil
}
