package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/money"
	"github.com/angelmondragon/bazaar-backend/pkg/pubsub"
)

// Publisher fans a stored notification out to push delivery.
type Publisher interface {
	Publish(ctx context.Context, data []byte, attributes map[string]string) (string, error)
}

// Notifier records in-app notifications and forwards them to the publisher
// when one is configured. Every method is best-effort: it reports success and
// never returns an error to the caller.
type Notifier struct {
	repo      Repository
	publisher Publisher
	logg      *logger.Logger
}

// Message is the payload published for push delivery.
type Message struct {
	NotificationID uuid.UUID              `json:"notification_id"`
	UserID         uuid.UUID              `json:"user_id"`
	Type           enums.NotificationType `json:"type"`
	Title          string                 `json:"title"`
	Body           string                 `json:"body"`
	OrderID        *uuid.UUID             `json:"order_id,omitempty"`
}

// NewNotifier builds a notifier. publisher may be nil when push fan-out is disabled.
func NewNotifier(repo Repository, publisher Publisher, logg *logger.Logger) (*Notifier, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Notifier{repo: repo, publisher: publisher, logg: logg}, nil
}

// NotifyNewOrder tells a store owner a new order arrived.
func (n *Notifier) NotifyNewOrder(ctx context.Context, ownerID uuid.UUID, order *models.Order) bool {
	if order == nil {
		return false
	}
	orderID := order.ID
	return n.deliver(ctx, &models.Notification{
		UserID:  ownerID,
		StoreID: order.StoreID,
		OrderID: &orderID,
		Type:    enums.NotificationTypeNewOrder,
		Title:   "New order received",
		Message: fmt.Sprintf("Order %s for ₹%s is waiting for your confirmation.", order.OrderNumber, order.TotalAmount.StringFixed(money.Places)),
	})
}

// NotifyOrderSettled tells a store owner their wallet was credited for an order.
func (n *Notifier) NotifyOrderSettled(ctx context.Context, ownerID uuid.UUID, order *models.Order, payout decimal.Decimal) bool {
	if order == nil {
		return false
	}
	orderID := order.ID
	return n.deliver(ctx, &models.Notification{
		UserID:  ownerID,
		StoreID: order.StoreID,
		OrderID: &orderID,
		Type:    enums.NotificationTypeOrderSettled,
		Title:   "Payout credited",
		Message: fmt.Sprintf("₹%s from order %s was added to your wallet.", payout.StringFixed(money.Places), order.OrderNumber),
	})
}

// NotifyWithdrawalDecision tells a merchant their withdrawal was approved or rejected.
func (n *Notifier) NotifyWithdrawalDecision(ctx context.Context, withdrawal *models.Withdrawal) bool {
	if withdrawal == nil {
		return false
	}
	amount := withdrawal.Amount.StringFixed(money.Places)
	note := &models.Notification{UserID: withdrawal.MerchantID}
	switch withdrawal.Status {
	case enums.WithdrawalStatusApproved:
		note.Type = enums.NotificationTypeWithdrawalApproved
		note.Title = "Withdrawal approved"
		note.Message = fmt.Sprintf("Your withdrawal of ₹%s was approved.", amount)
	case enums.WithdrawalStatusRejected:
		note.Type = enums.NotificationTypeWithdrawalRejected
		note.Title = "Withdrawal rejected"
		reason := ""
		if withdrawal.RejectionReason != nil {
			reason = *withdrawal.RejectionReason
		}
		note.Message = fmt.Sprintf("Your withdrawal of ₹%s was rejected: %s", amount, reason)
	default:
		return false
	}
	return n.deliver(ctx, note)
}

func (n *Notifier) deliver(ctx context.Context, note *models.Notification) (ok bool) {
	logCtx := n.logg.WithFields(ctx, map[string]any{
		"user_id":           note.UserID.String(),
		"notification_type": string(note.Type),
	})
	defer func() {
		if r := recover(); r != nil {
			n.logg.Error(logCtx, "notification delivery panicked", fmt.Errorf("%v", r))
			ok = false
		}
	}()

	if err := n.repo.Create(ctx, note); err != nil {
		n.logg.Error(logCtx, "failed to store notification", err)
		return false
	}
	if n.publisher == nil {
		return true
	}

	payload, err := json.Marshal(Message{
		NotificationID: note.ID,
		UserID:         note.UserID,
		Type:           note.Type,
		Title:          note.Title,
		Body:           note.Message,
		OrderID:        note.OrderID,
	})
	if err != nil {
		n.logg.Error(logCtx, "failed to encode notification", err)
		return false
	}
	attrs := map[string]string{
		"type":                   string(note.Type),
		pubsub.OrderingAttribute: note.UserID.String(),
	}
	if _, err := n.publisher.Publish(ctx, payload, attrs); err != nil {
		n.logg.Warn(n.logg.WithField(logCtx, "error", err.Error()), "notification publish failed")
		return false
	}
	return true
}
