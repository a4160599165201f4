package webhooks

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/bazaar-backend/api/responses"
	"github.com/angelmondragon/bazaar-backend/api/validators"
	"github.com/angelmondragon/bazaar-backend/internal/payments"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

const (
	razorpaySignatureHeader = "X-Razorpay-Signature"
	maxCallbackBytes        = 1 << 20
)

// PaymentCallbackService is the slice of the payments engine callbacks need.
type PaymentCallbackService interface {
	HandleCallback(ctx context.Context, gateway enums.Gateway, cb payments.Callback) (*payments.Result, error)
	CheckStatus(ctx context.Context, input payments.CheckInput) (*payments.Result, error)
}

type callbackGuard interface {
	CheckAndMark(ctx context.Context, gateway, eventID string) (bool, error)
	Release(ctx context.Context, gateway, eventID string) error
}

type callbackResponse struct {
	Duplicate bool `json:"duplicate"`
	payments.ResultDTO
}

// PaymentCallback verifies and reconciles an asynchronous gateway delivery.
// Redeliveries of an identical body are acknowledged without reprocessing.
func PaymentCallback(svc PaymentCallbackService, guard callbackGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}

		gateway, err := enums.ParseGateway(strings.ToLower(strings.TrimSpace(chi.URLParam(r, "gateway"))))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "unknown gateway"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}
		if len(payload) == 0 {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "empty callback body"))
			return
		}

		eventID := bodyDigest(payload)
		if logg != nil {
			ctx = logg.WithFields(ctx, map[string]any{"gateway": gateway.String(), "callback_digest": eventID})
		}

		seen, err := guard.CheckAndMark(ctx, gateway.String(), eventID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check idempotency"))
			return
		}
		if seen {
			if logg != nil {
				logg.Info(ctx, "payment callback redelivered")
			}
			responses.WriteSuccess(w, callbackResponse{Duplicate: true})
			return
		}

		result, err := svc.HandleCallback(ctx, gateway, payments.Callback{
			Authorization: r.Header.Get("Authorization"),
			Signature:     r.Header.Get(razorpaySignatureHeader),
			Body:          payload,
		})
		if err != nil {
			if releaseErr := guard.Release(ctx, gateway.String(), eventID); releaseErr != nil && logg != nil {
				logg.Error(ctx, "release callback mark", releaseErr)
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			msg := "payment callback reconciled"
			if result.Ignored {
				msg = "payment callback acknowledged"
			}
			logg.Info(logg.WithMerchantOrderID(ctx, result.MerchantOrderID), msg)
		}
		responses.WriteSuccess(w, callbackResponse{ResultDTO: payments.ResultFromModel(result)})
	}
}

// PaymentReturn is where gateways send the shopper back. It polls the gateway
// so the outcome is settled even if the callback has not arrived.
func PaymentReturn(svc PaymentCallbackService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}
		merchantOrderID, err := validators.RequireQuery(r, "merchant_order_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.CheckStatus(r.Context(), payments.CheckInput{MerchantOrderID: merchantOrderID})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payments.ResultFromModel(result))
	}
}

func bodyDigest(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
