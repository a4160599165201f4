package orders

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bazaar-backend/api/middleware"
	"github.com/angelmondragon/bazaar-backend/api/responses"
	"github.com/angelmondragon/bazaar-backend/api/validators"
	internalorders "github.com/angelmondragon/bazaar-backend/internal/orders"
	"github.com/angelmondragon/bazaar-backend/internal/shipments"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

type packageRequest struct {
	Length  decimal.Decimal `json:"length"`
	Breadth decimal.Decimal `json:"breadth"`
	Height  decimal.Decimal `json:"height"`
	Weight  decimal.Decimal `json:"weight"`
}

func (p packageRequest) toPackage() shipments.Package {
	return shipments.Package{
		Length:  p.Length,
		Breadth: p.Breadth,
		Height:  p.Height,
		Weight:  p.Weight,
	}
}

type acceptRequest struct {
	packageRequest
	CourierID   *int64          `json:"courier_id,omitempty"`
	CourierRate decimal.Decimal `json:"courier_rate"`
}

type acceptResponse struct {
	Order         *internalorders.OrderDTO `json:"order"`
	Charge        *shipments.ChargeDTO     `json:"charge"`
	ShipmentError string                   `json:"shipment_error,omitempty"`
}

type shipRequest struct {
	CourierID *int64 `json:"courier_id,omitempty"`
}

type reasonRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

type rateRequest struct {
	packageRequest
	DestinationPincode string          `json:"destination_pincode" validate:"required,len=6,numeric"`
	OrderAmount        decimal.Decimal `json:"order_amount"`
	PaymentType        string          `json:"payment_type" validate:"omitempty,oneof=cod prepaid"`
}

// CustomerList returns the caller's orders newest first.
func CustomerList(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		userID, err := parseUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", defaultLimit, 1, maxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListForCustomer(r.Context(), userID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.FromModels(list))
	}
}

// CustomerDetail returns one of the caller's orders.
func CustomerDetail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		userID, err := parseUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.URLParamUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if order.UserID != userID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
			return
		}
		responses.WriteSuccess(w, internalorders.FromModel(order))
	}
}

// CustomerCancel cancels the caller's order before it ships.
func CustomerCancel(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return cancelOrder(svc, logg, false)
}

// AdminCancel lets staff cancel any order that has not shipped.
func AdminCancel(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return cancelOrder(svc, logg, true)
}

// VendorCancel cancels an order of the vendor store, voiding its shipment first.
func VendorCancel(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return cancelOrder(svc, logg, false)
}

func cancelOrder(svc shipments.Service, logg *logger.Logger, staff bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipment service unavailable"))
			return
		}
		actorID, err := parseUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.URLParamUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body reasonRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		order, err := svc.CancelOrder(r.Context(), shipments.CancelInput{
			OrderID: orderID,
			ActorID: actorID,
			Staff:   staff,
			Reason:  body.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.FromModel(order))
	}
}

// VendorList returns the vendor store's orders newest first.
func VendorList(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		storeID, err := parseStoreID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", defaultLimit, 1, maxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListForStore(r.Context(), storeID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.FromModels(list))
	}
}

// VendorDetail returns an order after ensuring it belongs to the vendor store.
func VendorDetail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		storeID, err := parseStoreID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.URLParamUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if order.StoreID == nil || *order.StoreID != storeID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to store"))
			return
		}
		responses.WriteSuccess(w, internalorders.FromModel(order))
	}
}

// VendorAccept freezes the shipping charge and accepts the order. A failed
// shipment booking is reported alongside the accepted order.
func VendorAccept(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipment service unavailable"))
			return
		}
		merchantID, err := parseUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.URLParamUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body acceptRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.AcceptOrder(r.Context(), shipments.AcceptInput{
			OrderID:     orderID,
			MerchantID:  merchantID,
			Package:     body.toPackage(),
			CourierID:   body.CourierID,
			CourierRate: body.CourierRate,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := acceptResponse{
			Order:  internalorders.FromModel(result.Order),
			Charge: shipments.ChargeFromModel(result.Charge),
		}
		if result.ShipmentErr != nil {
			if typed := pkgerrors.As(result.ShipmentErr); typed != nil {
				resp.ShipmentError = typed.Message()
			} else {
				resp.ShipmentError = "shipment could not be booked"
			}
		}
		responses.WriteSuccess(w, resp)
	}
}

// VendorReject rejects a pending order with a reason.
func VendorReject(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		merchantID, err := parseUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.URLParamUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body reasonRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Reject(r.Context(), internalorders.RejectInput{
			OrderID:    orderID,
			MerchantID: merchantID,
			Reason:     body.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.FromModel(order))
	}
}

// VendorShip retries shipment booking for an accepted order.
func VendorShip(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipment service unavailable"))
			return
		}
		merchantID, err := parseUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.URLParamUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body shipRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		order, err := svc.CreateShipment(r.Context(), shipments.ShipInput{
			OrderID:    orderID,
			MerchantID: merchantID,
			CourierID:  body.CourierID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.FromModel(order))
	}
}

// VendorRates relays the provider's serviceability and rate quote.
func VendorRates(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipment service unavailable"))
			return
		}
		storeID, err := parseStoreID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body rateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		raw, err := svc.RateLookup(r.Context(), shipments.RateInput{
			StoreID:            storeID,
			DestinationPincode: body.DestinationPincode,
			Package:            body.toPackage(),
			OrderAmount:        body.OrderAmount,
			PaymentType:        body.PaymentType,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, raw)
	}
}

func parseUserID(r *http.Request) (uuid.UUID, error) {
	id, ok := middleware.UserUUID(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return id, nil
}

func parseStoreID(r *http.Request) (uuid.UUID, error) {
	id, ok := middleware.StoreUUID(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "store context missing")
	}
	return id, nil
}
