package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/types"
)

// RequestIDHeader is set on the response by the request id middleware before
// any handler writes.
const RequestIDHeader = "X-Request-Id"

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Data: data})
}

// WriteError renders err as the public error envelope. Untyped errors become
// CodeInternal and their text never reaches the client.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	apiErr := types.APIError{
		Code:      string(typed.Code()),
		Message:   meta.PublicMessage,
		Reason:    string(typed.Reason()),
		Retryable: meta.Retryable,
		RequestID: w.Header().Get(RequestIDHeader),
	}
	if meta.ExposeMessage && typed.Message() != "" {
		apiErr.Message = typed.Message()
	}
	if meta.DetailsAllowed {
		apiErr.Details = typed.Details()
	}

	if logg != nil {
		ctx = logg.WithField(ctx, "status", meta.HTTPStatus)
		if meta.HTTPStatus >= http.StatusInternalServerError {
			logg.Error(ctx, "request.error", err)
		} else {
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "request.rejected")
		}
	}

	writeJSON(w, meta.HTTPStatus, types.ErrorEnvelope{Error: apiErr})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status line is already out; an encode failure can only truncate the body.
	_ = json.NewEncoder(w).Encode(payload)
}
