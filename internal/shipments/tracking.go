package shipments

import (
	"strings"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

type statusRule struct {
	fragment string
	status   enums.OrderStatus
}

// providerStatusRules is checked in order. Return-to-origin comes before
// delivered so "RTO Delivered" is not read as a completed delivery, and
// "undelivered" is a failed attempt still in the courier's hands.
var providerStatusRules = []statusRule{
	{fragment: "rto", status: enums.OrderStatusCancelled},
	{fragment: "undelivered", status: enums.OrderStatusShipped},
	{fragment: "pending pickup", status: enums.OrderStatusAccepted},
	{fragment: "picked up", status: enums.OrderStatusShipped},
	{fragment: "in transit", status: enums.OrderStatusShipped},
	{fragment: "out for delivery", status: enums.OrderStatusShipped},
	{fragment: "delivered", status: enums.OrderStatusDelivered},
	{fragment: "cancelled", status: enums.OrderStatusCancelled},
}

// MapProviderStatus translates a free-text courier status into an order
// status by substring match. Unknown text maps to nothing.
func MapProviderStatus(raw string) (enums.OrderStatus, bool) {
	text := strings.ToLower(strings.TrimSpace(raw))
	if text == "" {
		return "", false
	}
	for _, rule := range providerStatusRules {
		if strings.Contains(text, rule.fragment) {
			return rule.status, true
		}
	}
	return "", false
}
