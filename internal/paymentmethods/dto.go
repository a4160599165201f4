package paymentmethods

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/types"
)

type PaymentSettingDTO struct {
	ID        uuid.UUID                `json:"id"`
	UserID    uuid.UUID                `json:"user_id"`
	Type      enums.PaymentSettingType `json:"type"`
	Details   types.PaymentDetails     `json:"details"`
	Status    enums.ReviewStatus       `json:"status"`
	CreatedAt time.Time                `json:"created_at"`
	UpdatedAt time.Time                `json:"updated_at"`
}

func FromModel(p *models.PaymentSetting) *PaymentSettingDTO {
	if p == nil {
		return nil
	}
	return &PaymentSettingDTO{
		ID:        p.ID,
		UserID:    p.UserID,
		Type:      p.Type,
		Details:   p.Details,
		Status:    p.Status,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func FromModels(list []models.PaymentSetting) []PaymentSettingDTO {
	out := make([]PaymentSettingDTO, 0, len(list))
	for i := range list {
		out = append(out, *FromModel(&list[i]))
	}
	return out
}
