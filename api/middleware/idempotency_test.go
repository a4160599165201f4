package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	pkgredis "github.com/angelmondragon/bazaar-backend/pkg/redis"
)

func newRedisStore(t *testing.T) *pkgredis.Client {
	t.Helper()
	server := miniredis.RunT(t)
	client := pkgredis.NewFromClient(redis.NewClient(&redis.Options{Addr: server.Addr()}))
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func requestWithPattern(method, url, pattern string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, url, body)
	rc := chi.NewRouteContext()
	rc.RoutePatterns = []string{pattern}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func TestRouteTTLSelection(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		pattern string
		want    time.Duration
		ok      bool
	}{
		{"checkout", http.MethodPost, "/api/v1/checkout", criticalIdempotencyTTL, true},
		{"vendor accept", http.MethodPost, "/api/v1/vendor/orders/{orderId}/accept", criticalIdempotencyTTL, true},
		{"order cancel", http.MethodPost, "/api/v1/orders/{orderId}/cancel", criticalIdempotencyTTL, true},
		{"withdrawal approve", http.MethodPost, "/api/admin/v1/withdrawals/{withdrawalId}/approve", criticalIdempotencyTTL, true},
		{"payment initiate", http.MethodPost, "/api/v1/payments/initiate", defaultIdempotencyTTL, true},
		{"reads pass through", http.MethodGet, "/api/v1/checkout", 0, false},
		{"vendor ship raw path", http.MethodPost, "/api/v1/vendor/orders/7f3c/ship", criticalIdempotencyTTL, true},
		{"store create", http.MethodPost, "/api/v1/stores", defaultIdempotencyTTL, true},
		{"notification read", http.MethodPost, "/api/v1/notifications/{notificationId}/read", 0, false},
		{"otp is not idempotent", http.MethodPost, "/api/v1/auth/otp/send", 0, false},
	}

	for _, tt := range tests {
		ttl, ok := routeTTL(tt.method, tt.pattern)
		if ok != tt.ok {
			t.Fatalf("%s: expected ok=%v got %v", tt.name, tt.ok, ok)
		}
		if ok && ttl != tt.want {
			t.Fatalf("%s: expected ttl=%v got %v", tt.name, tt.want, ttl)
		}
	}
}

func TestRoutePatternFallsBackToPathInsideGroups(t *testing.T) {
	req := requestWithPattern(http.MethodPost, "/api/v1/vendor/withdrawals", "/api/v1/*", nil)
	if got := routePattern(req); got != "/api/v1/vendor/withdrawals" {
		t.Fatalf("expected request path, got %q", got)
	}
	req = requestWithPattern(http.MethodPost, "/api/v1/stores/", "/api/v1/*", nil)
	if got := routePattern(req); got != "/api/v1/stores" {
		t.Fatalf("expected trailing slash trimmed, got %q", got)
	}
	req = requestWithPattern(http.MethodPost, "/api/v1/orders/abc/cancel", "/api/v1/orders/{orderId}/cancel", nil)
	if got := routePattern(req); got != "/api/v1/orders/{orderId}/cancel" {
		t.Fatalf("expected full pattern, got %q", got)
	}
}

func TestIdempotencyMiddlewareRequiresHeader(t *testing.T) {
	mw := Idempotency(newRedisStore(t), nil)
	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusCreated)
	})

	req := requestWithPattern(http.MethodPost, "/api/v1/checkout", "/api/v1/checkout", strings.NewReader(`{"items":[]}`))
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if handlerCalled {
		t.Fatalf("handler should not run without idempotency key")
	}
}

func TestIdempotencyMiddlewareReplaysStoredResponse(t *testing.T) {
	mw := Idempotency(newRedisStore(t), nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	req := requestWithPattern(http.MethodPost, "/api/v1/checkout", "/api/v1/checkout", strings.NewReader(`{"items":[1]}`))
	req.Header.Set("Idempotency-Key", "abc")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected first response 201 got %d", resp.Code)
	}

	replay := requestWithPattern(http.MethodPost, "/api/v1/checkout", "/api/v1/checkout", strings.NewReader(`{"items":[1]}`))
	replay.Header.Set("Idempotency-Key", "abc")
	rec := httptest.NewRecorder()
	mw(handler).ServeHTTP(rec, replay)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected replay status 201 got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("expected content-type header preserved")
	}
	if rec.Header().Get(idempotencyReplayHeader) != "true" {
		t.Fatalf("expected replay header on stored response")
	}
	if strings.TrimSpace(rec.Body.String()) != `{"ok":true}` {
		t.Fatalf("expected stored body got %s", rec.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}
}

func TestIdempotencyMiddlewareDoesNotStoreServerErrors(t *testing.T) {
	mw := Idempotency(newRedisStore(t), nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	})

	for i := 0; i < 2; i++ {
		req := requestWithPattern(http.MethodPost, "/api/v1/vendor/orders/1/ship", "/api/v1/vendor/orders/{orderId}/ship", strings.NewReader(`{}`))
		req.Header.Set("Idempotency-Key", "retry-me")
		mw(handler).ServeHTTP(httptest.NewRecorder(), req)
	}
	if calls != 2 {
		t.Fatalf("expected provider failure to be retried, handler ran %d times", calls)
	}
}

func TestIdempotencyMiddlewareDetectsBodyChange(t *testing.T) {
	mw := Idempotency(newRedisStore(t), nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := requestWithPattern(http.MethodPost, "/api/v1/vendor/withdrawals", "/api/v1/vendor/withdrawals", strings.NewReader(`{"amount":"100"}`))
	req.Header.Set("Idempotency-Key", "xyz")
	mw(handler).ServeHTTP(httptest.NewRecorder(), req)

	replay := requestWithPattern(http.MethodPost, "/api/v1/vendor/withdrawals", "/api/v1/vendor/withdrawals", strings.NewReader(`{"amount":"900"}`))
	replay.Header.Set("Idempotency-Key", "xyz")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, replay)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeConflict) {
		t.Fatalf("expected error code %s got %s", pkgerrors.CodeConflict, payload.Error.Code)
	}
}

func TestIdempotencyMiddlewareRejectsConcurrentRetry(t *testing.T) {
	mw := Idempotency(newRedisStore(t), nil)
	newRequest := func() *http.Request {
		req := requestWithPattern(http.MethodPost, "/api/v1/checkout", "/api/v1/checkout", strings.NewReader(`{"items":[1]}`))
		req.Header.Set("Idempotency-Key", "double-tap")
		return req
	}

	var calls int
	var retryCode int
	var handler http.Handler
	handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			retry := httptest.NewRecorder()
			mw(handler).ServeHTTP(retry, newRequest())
			retryCode = retry.Code
		}
		w.WriteHeader(http.StatusCreated)
	})

	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, newRequest())
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected first request 201 got %d", resp.Code)
	}
	if retryCode != http.StatusConflict {
		t.Fatalf("expected in-flight retry 409 got %d", retryCode)
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}
}

func TestIdempotencyMiddlewareReleasesKeyOnPanic(t *testing.T) {
	store := newRedisStore(t)
	mw := Idempotency(store, nil)
	newRequest := func() *http.Request {
		req := requestWithPattern(http.MethodPost, "/api/v1/vendor/withdrawals", "/api/v1/vendor/withdrawals", strings.NewReader(`{"amount":"50"}`))
		req.Header.Set("Idempotency-Key", "panicky")
		return req
	}

	func() {
		defer func() { _ = recover() }()
		mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		})).ServeHTTP(httptest.NewRecorder(), newRequest())
	}()

	resp := httptest.NewRecorder()
	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})).ServeHTTP(resp, newRequest())
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected retry after panic to run, got %d", resp.Code)
	}
}
