package shipments

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
)

// ChargeDTO is the frozen shipping charge reported back on accept.
type ChargeDTO struct {
	CourierID        *int64          `json:"courier_id,omitempty"`
	CourierName      *string         `json:"courier_name,omitempty"`
	CourierRate      decimal.Decimal `json:"courier_rate"`
	CommissionPct    decimal.Decimal `json:"commission_pct"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	ShippingCharge   decimal.Decimal `json:"shipping_charge"`
}

func ChargeFromModel(c *models.ShippingChargeHistory) *ChargeDTO {
	if c == nil {
		return nil
	}
	return &ChargeDTO{
		CourierID:        c.CourierID,
		CourierName:      c.CourierName,
		CourierRate:      c.CourierRate,
		CommissionPct:    c.CommissionPct,
		CommissionAmount: c.CommissionAmount,
		ShippingCharge:   c.ShippingCharge,
	}
}
