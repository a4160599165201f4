package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// TransactionDTO is a wallet history row as shown to its owner.
type TransactionDTO struct {
	ID              uuid.UUID               `json:"id"`
	Type            enums.TransactionType   `json:"type"`
	Status          enums.TransactionStatus `json:"status"`
	Amount          decimal.Decimal         `json:"amount"`
	Description     string                  `json:"description"`
	OrderID         *uuid.UUID              `json:"order_id,omitempty"`
	WithdrawalID    *uuid.UUID              `json:"withdrawal_id,omitempty"`
	Gateway         *enums.Gateway          `json:"gateway,omitempty"`
	MerchantOrderID *string                 `json:"merchant_order_id,omitempty"`
	UTR             *string                 `json:"utr,omitempty"`
	WalletBefore    decimal.Decimal         `json:"wallet_before"`
	WalletAfter     decimal.Decimal         `json:"wallet_after"`
	CreatedAt       time.Time               `json:"created_at"`
}

func FromModel(t *models.Transaction) *TransactionDTO {
	if t == nil {
		return nil
	}
	return &TransactionDTO{
		ID:              t.ID,
		Type:            t.Type,
		Status:          t.Status,
		Amount:          t.Amount,
		Description:     t.Description,
		OrderID:         t.OrderID,
		WithdrawalID:    t.WithdrawalID,
		Gateway:         t.Gateway,
		MerchantOrderID: t.MerchantOrderID,
		UTR:             t.UTR,
		WalletBefore:    t.WalletBefore,
		WalletAfter:     t.WalletAfter,
		CreatedAt:       t.CreatedAt,
	}
}

func FromModels(list []models.Transaction) []TransactionDTO {
	out := make([]TransactionDTO, 0, len(list))
	for i := range list {
		out = append(out, *FromModel(&list[i]))
	}
	return out
}
