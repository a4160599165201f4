package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bazaar-backend/api/responses"
	"github.com/angelmondragon/bazaar-backend/api/validators"
	checkoutsvc "github.com/angelmondragon/bazaar-backend/internal/checkout"
	"github.com/angelmondragon/bazaar-backend/internal/orders"
	"github.com/angelmondragon/bazaar-backend/internal/payments"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/types"
)

type checkoutRequest struct {
	Items           []checkoutItemRequest `json:"items" validate:"required,min=1,dive"`
	ShippingAddress types.Address         `json:"shipping_address"`
	BillingAddress  *types.Address        `json:"billing_address,omitempty"`
	Phone           string                `json:"phone" validate:"required,min=10,max=15"`
	PaymentMethod   enums.PaymentMethod   `json:"payment_method" validate:"required"`
	Notes           *string               `json:"notes,omitempty" validate:"omitempty,max=500"`
}

type checkoutItemRequest struct {
	StoreID     uuid.UUID       `json:"store_id" validate:"required"`
	ProductID   uuid.UUID       `json:"product_id" validate:"required"`
	ProductName string          `json:"product_name" validate:"required"`
	VariantKey  *string         `json:"variant_key,omitempty"`
	Quantity    int             `json:"quantity" validate:"required,min=1"`
	Price       decimal.Decimal `json:"price" validate:"gte=0"`
}

type checkoutResponse struct {
	Orders  []orders.OrderDTO    `json:"orders,omitempty"`
	Order   *orders.OrderDTO     `json:"order,omitempty"`
	Payment *payments.Initiation `json:"payment,omitempty"`
}

// Checkout places a cart. Cash on delivery is split per store right away;
// gateway payments create one temporary order and start the payment.
func Checkout(svc checkoutsvc.Service, paySvc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || paySvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body checkoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !body.PaymentMethod.IsValid() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method"))
			return
		}

		payload := body.toPayload(userID)

		if !body.PaymentMethod.IsOnline() {
			created, err := svc.SplitCheckout(r.Context(), payload)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{Orders: orders.FromModels(created)})
			return
		}

		gateway, _ := body.PaymentMethod.Gateway()
		temp, err := svc.CreatePendingCheckout(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		initiation, err := paySvc.Initiate(r.Context(), payments.InitiateInput{
			UserID:  userID,
			OrderID: temp.ID,
			Gateway: gateway,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{
			Order:   orders.FromModel(temp),
			Payment: initiation,
		})
	}
}

func (c checkoutRequest) toPayload(userID uuid.UUID) checkoutsvc.Payload {
	billing := c.ShippingAddress
	if c.BillingAddress != nil {
		billing = *c.BillingAddress
	}
	items := make([]checkoutsvc.LineItem, 0, len(c.Items))
	for _, item := range c.Items {
		items = append(items, checkoutsvc.LineItem{
			StoreID:     item.StoreID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			VariantKey:  item.VariantKey,
			Quantity:    item.Quantity,
			Price:       item.Price,
		})
	}
	return checkoutsvc.Payload{
		UserID:          userID,
		Items:           items,
		ShippingAddress: c.ShippingAddress,
		BillingAddress:  billing,
		Phone:           c.Phone,
		PaymentMethod:   c.PaymentMethod,
		Notes:           c.Notes,
	}
}
