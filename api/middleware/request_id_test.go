package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

func TestRequestIDKeepsWellFormedInboundID(t *testing.T) {
	handler := RequestID(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "gw-retry_0001")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if got := resp.Header().Get(requestIDHeader); got != "gw-retry_0001" {
		t.Fatalf("expected inbound id echoed, got %q", got)
	}
}

func TestRequestIDReplacesMalformedInboundID(t *testing.T) {
	handler := RequestID(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for _, inbound := range []string{"", "short", "bad id\nwith newline", strings.Repeat("a", 65)} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(requestIDHeader, inbound)
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		got := resp.Header().Get(requestIDHeader)
		if got == inbound || len(got) != 36 {
			t.Fatalf("expected generated uuid for %q, got %q", inbound, got)
		}
	}
}

func TestRecovererWritesInternalError(t *testing.T) {
	handler := Recoverer(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"error"`) {
		t.Fatalf("expected error envelope, got %s", resp.Body.String())
	}
}

func TestRecovererRepanicsOnAbort(t *testing.T) {
	handler := Recoverer(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Fatalf("expected ErrAbortHandler to propagate, got %v", rec)
		}
	}()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}
