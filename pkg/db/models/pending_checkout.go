package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/types"
)

// PendingCheckout keeps the un-split cart of a deferred-payment checkout so
// it can be split per vendor once the gateway confirms payment.
type PendingCheckout struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	UserID          uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index"`
	PaymentMethod   enums.PaymentMethod   `gorm:"column:payment_method;type:text;not null"`
	Items           []PendingCheckoutItem `gorm:"column:items;type:jsonb;serializer:json;not null"`
	ShippingAddress types.Address         `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	BillingAddress  types.Address         `gorm:"column:billing_address;type:jsonb;serializer:json"`
	Phone           string                `gorm:"column:phone;not null"`
	VendorCount     int                   `gorm:"column:vendor_count;not null"`
	ShippingCharge  decimal.Decimal       `gorm:"column:shipping_charge;type:numeric(12,2);not null;default:0"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
}

// PendingCheckoutItem is one cart line of a pending checkout.
type PendingCheckoutItem struct {
	StoreID     uuid.UUID       `json:"store_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	VariantKey  *string         `json:"variant_key,omitempty"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

func (p *PendingCheckout) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}
