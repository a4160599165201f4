package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/types"
)

// Order is one vendor's share of a checkout. A temporary order created for a
// deferred payment has no StoreID and points at its PendingCheckout instead.
type Order struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber       string              `gorm:"column:order_number;not null;uniqueIndex"`
	UserID            uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	StoreID           *uuid.UUID          `gorm:"column:store_id;type:uuid;index"`
	Store             *Store              `gorm:"foreignKey:StoreID"`
	PendingCheckoutID *uuid.UUID          `gorm:"column:pending_checkout_id;type:uuid"`
	Status            enums.OrderStatus   `gorm:"column:status;type:text;not null"`
	PaymentMethod     enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	PaymentStatus     enums.PaymentStatus `gorm:"column:payment_status;type:text;not null"`
	Subtotal          decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null"`
	ShippingCost      decimal.Decimal     `gorm:"column:shipping_cost;type:numeric(12,2);not null;default:0"`
	TotalAmount       decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null"`
	ShippingAddress   types.Address       `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	BillingAddress    types.Address       `gorm:"column:billing_address;type:jsonb;serializer:json"`
	Phone             string              `gorm:"column:phone;not null"`
	Notes             *string             `gorm:"column:notes"`

	// Package dimensions are centimetres, weight is grams.
	PackageLength  *decimal.Decimal `gorm:"column:package_length;type:numeric(8,2)"`
	PackageBreadth *decimal.Decimal `gorm:"column:package_breadth;type:numeric(8,2)"`
	PackageHeight  *decimal.Decimal `gorm:"column:package_height;type:numeric(8,2)"`
	PackageWeight  *decimal.Decimal `gorm:"column:package_weight;type:numeric(8,2)"`

	AWBNumber           *string    `gorm:"column:awb_number;index"`
	ShipmentID          *string    `gorm:"column:shipment_id"`
	ShipmentLabel       *string    `gorm:"column:shipment_label"`
	ShipmentManifest    *string    `gorm:"column:shipment_manifest"`
	ShipmentStatus      *string    `gorm:"column:shipment_status"`
	ShipmentError       *string    `gorm:"column:shipment_error"`
	CourierID           *int64     `gorm:"column:courier_id"`
	CourierName         *string    `gorm:"column:courier_name"`
	PickupDate          *time.Time `gorm:"column:pickup_date"`
	DeliveredDate       *time.Time `gorm:"column:delivered_date"`
	RejectionReason     *string    `gorm:"column:rejection_reason"`
	CancellationReason  *string    `gorm:"column:cancellation_reason"`
	CommissionSettled   bool       `gorm:"column:commission_settled;not null"`
	CommissionSettledAt *time.Time `gorm:"column:commission_settled_at"`

	Items     []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time   `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	assignID(&o.ID)
	return nil
}

// IsTemporary reports whether the order is the pre-payment placeholder of a
// deferred checkout.
func (o *Order) IsTemporary() bool {
	return o.PendingCheckoutID != nil && o.StoreID == nil
}

// HasPackage reports whether all four package measurements are present and positive.
func (o *Order) HasPackage() bool {
	for _, dim := range []*decimal.Decimal{o.PackageLength, o.PackageBreadth, o.PackageHeight, o.PackageWeight} {
		if dim == nil || !dim.IsPositive() {
			return false
		}
	}
	return true
}
