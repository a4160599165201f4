package notifications

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

type NotificationDTO struct {
	ID        uuid.UUID              `json:"id"`
	StoreID   *uuid.UUID             `json:"store_id,omitempty"`
	OrderID   *uuid.UUID             `json:"order_id,omitempty"`
	Type      enums.NotificationType `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	ReadAt    *time.Time             `json:"read_at,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

func fromModels(rows []models.Notification) []NotificationDTO {
	out := make([]NotificationDTO, 0, len(rows))
	for _, n := range rows {
		out = append(out, NotificationDTO{
			ID:        n.ID,
			StoreID:   n.StoreID,
			OrderID:   n.OrderID,
			Type:      n.Type,
			Title:     n.Title,
			Message:   n.Message,
			ReadAt:    n.ReadAt,
			CreatedAt: n.CreatedAt,
		})
	}
	return out
}
