// Package commission computes platform commission, vendor revenue and the
// merchant shipping charge. Every function is pure.
package commission

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/money"
)

// Rates are the platform percentages read from the super setting.
type Rates struct {
	SalesCommissionPct    decimal.Decimal
	ShippingCommissionPct decimal.Decimal
}

// RatesFrom extracts the commission percentages from the platform settings.
func RatesFrom(setting *models.SuperSetting) Rates {
	if setting == nil {
		return Rates{}
	}
	return Rates{
		SalesCommissionPct:    setting.SalesCommission,
		ShippingCommissionPct: setting.ShippingChargeCommission,
	}
}

// OrderRevenue is the split of one order between platform and vendor.
type OrderRevenue struct {
	Commission   decimal.Decimal
	Revenue      decimal.Decimal
	ShippingCost decimal.Decimal
	OrderTotal   decimal.Decimal
	// Payout is what settlement credits to the merchant wallet.
	Payout decimal.Decimal
}

// ComputeOrderRevenue applies the sales commission to the order subtotal.
func ComputeOrderRevenue(order *models.Order, rates Rates) OrderRevenue {
	commission := money.Percent(order.Subtotal, rates.SalesCommissionPct)
	return OrderRevenue{
		Commission:   commission,
		Revenue:      money.Round(order.TotalAmount.Sub(commission)),
		ShippingCost: order.ShippingCost,
		OrderTotal:   order.TotalAmount,
		Payout:       money.Round(order.Subtotal.Sub(commission)),
	}
}

// ShippingCharge is the merchant-borne shipping charge frozen at accept time.
type ShippingCharge struct {
	CourierRate      decimal.Decimal
	CommissionAmount decimal.Decimal
	ShippingCharge   decimal.Decimal
}

// ComputeShippingCharge adds the platform's shipping commission on top of the courier rate.
func ComputeShippingCharge(courierRate, shippingCommissionPct decimal.Decimal) ShippingCharge {
	commissionAmount := money.Percent(courierRate, shippingCommissionPct)
	return ShippingCharge{
		CourierRate:      courierRate,
		CommissionAmount: commissionAmount,
		ShippingCharge:   money.Round(courierRate.Add(commissionAmount)),
	}
}
