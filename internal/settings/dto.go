package settings

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
)

type SettingDTO struct {
	SalesCommission          decimal.Decimal `json:"sales_commission"`
	ShippingChargeCommission decimal.Decimal `json:"shipping_charge_commission"`
	BasicShippingCharge      decimal.Decimal `json:"basic_shipping_charge"`
	UpdatedAt                time.Time       `json:"updated_at"`
}

type CourierDTO struct {
	ProviderCourierID int64  `json:"provider_courier_id"`
	Name              string `json:"name"`
	IsActive          bool   `json:"is_active"`
	Priority          int    `json:"priority"`
}

func FromModel(s *models.SuperSetting) *SettingDTO {
	if s == nil {
		return nil
	}
	return &SettingDTO{
		SalesCommission:          s.SalesCommission,
		ShippingChargeCommission: s.ShippingChargeCommission,
		BasicShippingCharge:      s.BasicShippingCharge,
		UpdatedAt:                s.UpdatedAt,
	}
}

func CourierFromModel(c *models.GlobalCourier) *CourierDTO {
	if c == nil {
		return nil
	}
	return &CourierDTO{
		ProviderCourierID: c.ProviderCourierID,
		Name:              c.Name,
		IsActive:          c.IsActive,
		Priority:          c.Priority,
	}
}

func CouriersFromModels(list []models.GlobalCourier) []CourierDTO {
	out := make([]CourierDTO, 0, len(list))
	for i := range list {
		out = append(out, *CourierFromModel(&list[i]))
	}
	return out
}
