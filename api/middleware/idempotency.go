package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/bazaar-backend/api/responses"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/bazaar-backend/pkg/redis"
)

const (
	idempotencyKeyHeader    = "Idempotency-Key"
	idempotencyReplayHeader = "Idempotent-Replayed"

	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
	// inFlightTTL caps how long a crashed request can hold its key.
	inFlightTTL = 2 * time.Minute
)

type idempotentRoute struct {
	method string
	glob   string
	ttl    time.Duration
}

// Globs are matched with path.Match against the chi pattern or, inside route
// groups, the raw path; "*" spans a single segment.
var idempotentRoutes = []idempotentRoute{
	{http.MethodPost, "/api/v1/stores", defaultIdempotencyTTL},
	{http.MethodPost, "/api/v1/vendor/products", defaultIdempotencyTTL},
	{http.MethodPost, "/api/v1/vendor/payment-methods", defaultIdempotencyTTL},
	{http.MethodPost, "/api/v1/payments/initiate", defaultIdempotencyTTL},

	// money moves or a provider is called
	{http.MethodPost, "/api/v1/checkout", criticalIdempotencyTTL},
	{http.MethodPost, "/api/v1/orders/*/cancel", criticalIdempotencyTTL},
	{http.MethodPost, "/api/v1/vendor/orders/*/*", criticalIdempotencyTTL},
	{http.MethodPost, "/api/v1/vendor/withdrawals", criticalIdempotencyTTL},
	{http.MethodPost, "/api/admin/v1/withdrawals/*/*", criticalIdempotencyTTL},
	{http.MethodPost, "/api/admin/v1/orders/*/cancel", criticalIdempotencyTTL},
}

type idempotencyRecord struct {
	Pending     bool              `json:"pending,omitempty"`
	Status      int               `json:"status,omitempty"`
	Body        string            `json:"body,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	RequestHash string            `json:"request_hash"`
}

// Idempotency guards the listed routes with the Idempotency-Key header.
//
// The key is reserved before the handler runs, so a concurrent retry gets a
// 409 instead of placing a second order or withdrawal. Completed responses
// below 500 are replayed for the route's TTL; a 5xx releases the key.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, ok := routeTTL(r.Method, routePattern(r))
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			clientKey := strings.TrimSpace(r.Header.Get(idempotencyKeyHeader))
			if clientKey == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			requestHash := hashBody(body)
			key := store.IdempotencyKey(buildScope(r), clientKey)

			reserved, err := reserve(ctx, store, key, requestHash)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve idempotency key"))
				return
			}
			if !reserved {
				replayOrReject(ctx, store, logg, w, key, requestHash)
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			completed := false
			defer func() {
				if !completed {
					release(ctx, store, logg, key)
				}
			}()
			next.ServeHTTP(capture, r)

			status := defaultStatus(capture.status)
			if status >= http.StatusInternalServerError {
				return
			}
			completed = true

			record := idempotencyRecord{
				Status:      status,
				Body:        base64.StdEncoding.EncodeToString(capture.body.Bytes()),
				RequestHash: requestHash,
			}
			if ct := capture.Header().Get("Content-Type"); ct != "" {
				record.Headers = map[string]string{"Content-Type": ct}
			}
			payload, err := json.Marshal(record)
			if err != nil {
				logError(ctx, logg, "marshal idempotency record", err)
				release(ctx, store, logg, key)
				return
			}
			if err := store.Set(ctx, key, string(payload), ttl); err != nil {
				logError(ctx, logg, "persist idempotency record", err)
			}
		})
	}
}

func reserve(ctx context.Context, store pkgredis.IdempotencyStore, key, requestHash string) (bool, error) {
	marker, err := json.Marshal(idempotencyRecord{Pending: true, RequestHash: requestHash})
	if err != nil {
		return false, err
	}
	return store.SetNX(ctx, key, string(marker), inFlightTTL)
}

func release(ctx context.Context, store pkgredis.IdempotencyStore, logg *logger.Logger, key string) {
	// The request context may already be cancelled by a disconnecting client.
	if err := store.Del(context.WithoutCancel(ctx), key); err != nil {
		logError(ctx, logg, "release idempotency key", err)
	}
}

func replayOrReject(ctx context.Context, store pkgredis.IdempotencyStore, logg *logger.Logger, w http.ResponseWriter, key, requestHash string) {
	stored, err := store.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		// released or expired between SetNX and Get; the client should retry
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request with this Idempotency-Key is still in progress"))
		return
	}
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotency record"))
		return
	}

	var record idempotencyRecord
	if err := json.Unmarshal([]byte(stored), &record); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	switch {
	case record.RequestHash != requestHash:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "idempotency key reused with different request body"))
	case record.Pending:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request with this Idempotency-Key is still in progress"))
	default:
		writeStoredResponse(w, record)
	}
}

func buildScope(r *http.Request) string {
	return strings.Join([]string{
		UserIDFromContext(r.Context()),
		StoreIDFromContext(r.Context()),
		r.Method,
		r.URL.Path,
	}, "|")
}

func writeStoredResponse(w http.ResponseWriter, record idempotencyRecord) {
	if ct := record.Headers["Content-Type"]; ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set(idempotencyReplayHeader, "true")
	w.WriteHeader(defaultStatus(record.Status))
	if decoded, err := base64.StdEncoding.DecodeString(record.Body); err == nil {
		_, _ = w.Write(decoded)
	}
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.StdEncoding.EncodeToString(sum[:])
}

func defaultStatus(value int) int {
	if value == 0 {
		return http.StatusOK
	}
	return value
}

func routePattern(r *http.Request) string {
	if ctx := chi.RouteContext(r.Context()); ctx != nil {
		// Group middleware only sees the pattern matched so far, e.g. "/api/v1/*".
		if pattern := ctx.RoutePattern(); pattern != "" && !strings.HasSuffix(pattern, "*") {
			return pattern
		}
	}
	return strings.TrimSuffix(r.URL.Path, "/")
}

func routeTTL(method, pattern string) (time.Duration, bool) {
	if pattern == "" {
		return 0, false
	}
	for _, route := range idempotentRoutes {
		if route.method != method {
			continue
		}
		if ok, _ := path.Match(route.glob, pattern); ok {
			return route.ttl, true
		}
	}
	return 0, false
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *responseCapture) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func logError(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg == nil || err == nil {
		return
	}
	logg.Error(ctx, msg, err)
}
