package checkout

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bazaar-backend/internal/checkout/helpers"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/types"
)

var validate = validator.New()

// Payload is a validated cart ready to become orders.
type Payload struct {
	UserID          uuid.UUID           `validate:"required"`
	Items           []LineItem          `validate:"required,min=1,dive"`
	ShippingAddress types.Address
	BillingAddress  types.Address
	Phone           string              `validate:"required,min=10,max=15"`
	PaymentMethod   enums.PaymentMethod `validate:"required"`
	Notes           *string
}

// LineItem is one product line of the cart.
type LineItem struct {
	StoreID     uuid.UUID `validate:"required"`
	ProductID   uuid.UUID `validate:"required"`
	ProductName string    `validate:"required"`
	VariantKey  *string
	Quantity    int `validate:"required,min=1"`
	Price       decimal.Decimal
}

func (p Payload) validate() error {
	if err := validate.Struct(p); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) {
			details := map[string]string{}
			for _, fieldErr := range errs {
				details[fieldErr.Namespace()] = fieldErr.Tag()
			}
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid checkout payload").WithDetails(details)
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid checkout payload")
	}
	if !p.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported payment method %q", p.PaymentMethod))
	}
	if strings.TrimSpace(p.ShippingAddress.Pincode) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping pincode is required")
	}
	for i, item := range p.Items {
		if !item.Price.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d price must be positive", i))
		}
	}
	return nil
}

func (p Payload) lines() []helpers.Line {
	lines := make([]helpers.Line, len(p.Items))
	for i, item := range p.Items {
		lines[i] = helpers.Line{
			StoreID:     item.StoreID,
			ProductID:   item.ProductID,
			ProductName: strings.TrimSpace(item.ProductName),
			VariantKey:  item.VariantKey,
			Quantity:    item.Quantity,
			Price:       item.Price,
		}
	}
	return lines
}
