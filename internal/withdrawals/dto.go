package withdrawals

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

type WithdrawalDTO struct {
	ID               uuid.UUID              `json:"id"`
	MerchantID       uuid.UUID              `json:"merchant_id"`
	Amount           decimal.Decimal        `json:"amount"`
	Status           enums.WithdrawalStatus `json:"status"`
	PaymentSettingID *uuid.UUID             `json:"payment_setting_id,omitempty"`
	RejectionReason  *string                `json:"rejection_reason,omitempty"`
	ReviewedBy       *uuid.UUID             `json:"reviewed_by,omitempty"`
	ReviewedAt       *time.Time             `json:"reviewed_at,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
}

// WalletDTO summarizes what a merchant can still withdraw.
type WalletDTO struct {
	Balance   decimal.Decimal `json:"balance"`
	Available decimal.Decimal `json:"available"`
}

func FromModel(w *models.Withdrawal) *WithdrawalDTO {
	if w == nil {
		return nil
	}
	return &WithdrawalDTO{
		ID:               w.ID,
		MerchantID:       w.MerchantID,
		Amount:           w.Amount,
		Status:           w.Status,
		PaymentSettingID: w.PaymentSettingID,
		RejectionReason:  w.RejectionReason,
		ReviewedBy:       w.ReviewedBy,
		ReviewedAt:       w.ReviewedAt,
		CreatedAt:        w.CreatedAt,
	}
}

func FromModels(list []models.Withdrawal) []WithdrawalDTO {
	out := make([]WithdrawalDTO, 0, len(list))
	for i := range list {
		out = append(out, *FromModel(&list[i]))
	}
	return out
}
