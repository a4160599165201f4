package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/types"
)

// OrderDTO is the transport shape of an order and its items.
type OrderDTO struct {
	ID                 uuid.UUID           `json:"id"`
	OrderNumber        string              `json:"order_number"`
	UserID             uuid.UUID           `json:"user_id"`
	StoreID            *uuid.UUID          `json:"store_id,omitempty"`
	Status             enums.OrderStatus   `json:"status"`
	PaymentMethod      enums.PaymentMethod `json:"payment_method"`
	PaymentStatus      enums.PaymentStatus `json:"payment_status"`
	Subtotal           decimal.Decimal     `json:"subtotal"`
	ShippingCost       decimal.Decimal     `json:"shipping_cost"`
	TotalAmount        decimal.Decimal     `json:"total_amount"`
	ShippingAddress    types.Address       `json:"shipping_address"`
	BillingAddress     types.Address       `json:"billing_address"`
	Phone              string              `json:"phone"`
	Notes              *string             `json:"notes,omitempty"`
	Package            *PackageDTO         `json:"package,omitempty"`
	AWBNumber          *string             `json:"awb_number,omitempty"`
	ShipmentStatus     *string             `json:"shipment_status,omitempty"`
	ShipmentLabel      *string             `json:"shipment_label,omitempty"`
	CourierName        *string             `json:"courier_name,omitempty"`
	PickupDate         *time.Time          `json:"pickup_date,omitempty"`
	DeliveredDate      *time.Time          `json:"delivered_date,omitempty"`
	RejectionReason    *string             `json:"rejection_reason,omitempty"`
	CancellationReason *string             `json:"cancellation_reason,omitempty"`
	Items              []OrderItemDTO      `json:"items"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// PackageDTO carries dimensions in centimetres and weight in grams.
type PackageDTO struct {
	Length  decimal.Decimal `json:"length"`
	Breadth decimal.Decimal `json:"breadth"`
	Height  decimal.Decimal `json:"height"`
	Weight  decimal.Decimal `json:"weight"`
}

type OrderItemDTO struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	StoreID     uuid.UUID       `json:"store_id"`
	ProductName string          `json:"product_name"`
	VariantKey  *string         `json:"variant_key,omitempty"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Total       decimal.Decimal `json:"total"`
}

func FromModel(o *models.Order) *OrderDTO {
	if o == nil {
		return nil
	}
	dto := &OrderDTO{
		ID:                 o.ID,
		OrderNumber:        o.OrderNumber,
		UserID:             o.UserID,
		StoreID:            o.StoreID,
		Status:             o.Status,
		PaymentMethod:      o.PaymentMethod,
		PaymentStatus:      o.PaymentStatus,
		Subtotal:           o.Subtotal,
		ShippingCost:       o.ShippingCost,
		TotalAmount:        o.TotalAmount,
		ShippingAddress:    o.ShippingAddress,
		BillingAddress:     o.BillingAddress,
		Phone:              o.Phone,
		Notes:              o.Notes,
		AWBNumber:          o.AWBNumber,
		ShipmentStatus:     o.ShipmentStatus,
		ShipmentLabel:      o.ShipmentLabel,
		CourierName:        o.CourierName,
		PickupDate:         o.PickupDate,
		DeliveredDate:      o.DeliveredDate,
		RejectionReason:    o.RejectionReason,
		CancellationReason: o.CancellationReason,
		Items:              make([]OrderItemDTO, 0, len(o.Items)),
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
	if o.HasPackage() {
		dto.Package = &PackageDTO{
			Length:  *o.PackageLength,
			Breadth: *o.PackageBreadth,
			Height:  *o.PackageHeight,
			Weight:  *o.PackageWeight,
		}
	}
	for _, item := range o.Items {
		dto.Items = append(dto.Items, OrderItemDTO{
			ID:          item.ID,
			ProductID:   item.ProductID,
			StoreID:     item.StoreID,
			ProductName: item.ProductName,
			VariantKey:  item.VariantKey,
			Quantity:    item.Quantity,
			Price:       item.Price,
			Total:       item.Total,
		})
	}
	return dto
}

func FromModels(list []models.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(list))
	for i := range list {
		out = append(out, *FromModel(&list[i]))
	}
	return out
}
