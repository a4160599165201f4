package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/auth"
	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func mintTestToken(t *testing.T, cfg config.JWTConfig, userID uuid.UUID, role enums.UserRole, storeID *uuid.UUID) string {
	t.Helper()
	token, err := auth.MintAccessToken(cfg, time.Now(), auth.AccessTokenPayload{
		UserID:  userID,
		Role:    role,
		StoreID: storeID,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestAuthRejectsMissingToken(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 10}
	handler := Auth(cfg, nil)(okHandler())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 10}
	handler := Auth(cfg, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthAllowsValidToken(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60}
	userID := uuid.New()
	storeID := uuid.New()
	token := mintTestToken(t, cfg, userID, enums.UserRoleMerchant, &storeID)

	var captured struct {
		user  string
		role  string
		store string
	}
	handler := Auth(cfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.user = UserIDFromContext(r.Context())
		captured.role = RoleFromContext(r.Context())
		captured.store = StoreIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured.user != userID.String() || captured.role != "merchant" || captured.store != storeID.String() {
		t.Fatalf("unexpected context %+v", captured)
	}
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(nil, enums.UserRoleMerchant, enums.UserRoleStaff)(okHandler())

	for role, want := range map[string]int{
		"merchant": http.StatusOK,
		"staff":    http.StatusOK,
		"customer": http.StatusForbidden,
		"":         http.StatusUnauthorized,
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithRole(req.Context(), role))
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != want {
			t.Fatalf("role %q: expected %d got %d", role, want, resp.Code)
		}
	}
}

type stubStoreLookup struct {
	stores map[uuid.UUID]*models.Store
	err    error
}

func (s stubStoreLookup) FindByID(_ context.Context, id uuid.UUID) (*models.Store, error) {
	if s.err != nil {
		return nil, s.err
	}
	store, ok := s.stores[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return store, nil
}

func TestStoreContextChecksOwnership(t *testing.T) {
	owner := uuid.New()
	own := &models.Store{ID: uuid.New(), OwnerID: owner}
	foreign := &models.Store{ID: uuid.New(), OwnerID: uuid.New()}
	lookup := stubStoreLookup{stores: map[uuid.UUID]*models.Store{own.ID: own, foreign.ID: foreign}}

	var resolved string
	handler := StoreContext(lookup, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resolved = StoreIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	cases := []struct {
		name   string
		header string
		claim  string
		want   int
	}{
		{name: "token store", claim: own.ID.String(), want: http.StatusOK},
		{name: "header overrides token", header: own.ID.String(), claim: foreign.ID.String(), want: http.StatusOK},
		{name: "foreign store", header: foreign.ID.String(), want: http.StatusForbidden},
		{name: "unknown store", header: uuid.NewString(), want: http.StatusForbidden},
		{name: "no store", want: http.StatusForbidden},
		{name: "malformed", header: "nope", want: http.StatusBadRequest},
	}
	for _, tc := range cases {
		resolved = ""
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		ctx := WithUserID(req.Context(), owner.String())
		if tc.claim != "" {
			ctx = WithStoreID(ctx, tc.claim)
		}
		req = req.WithContext(ctx)
		if tc.header != "" {
			req.Header.Set(StoreHeader, tc.header)
		}
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != tc.want {
			t.Fatalf("%s: expected %d got %d", tc.name, tc.want, resp.Code)
		}
		if tc.want == http.StatusOK && resolved != own.ID.String() {
			t.Fatalf("%s: resolved store %q", tc.name, resolved)
		}
	}
}

func TestStoreContextReportsLookupFailure(t *testing.T) {
	handler := StoreContext(stubStoreLookup{err: errors.New("db down")}, nil)(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithUserID(req.Context(), uuid.NewString()))
	req.Header.Set(StoreHeader, uuid.NewString())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "INTERNAL_ERROR") {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]struct {
		token string
		ok    bool
	}{
		"Bearer abc":   {"abc", true},
		"bearer  abc ": {"abc", true},
		"BEARER abc":   {"abc", true},
		"Basic abc":    {"", false},
		"abc":          {"", false},
		"Bearer ":      {"", false},
		"":             {"", false},
	}
	for header, want := range cases {
		token, ok := bearerToken(header)
		if ok != want.ok || token != want.token {
			t.Fatalf("bearerToken(%q) = %q,%v want %q,%v", header, token, ok, want.token, want.ok)
		}
	}
}

func TestAuthChallengesNonBearerScheme(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 10}
	token := mintTestToken(t, cfg, uuid.New(), enums.UserRoleCustomer, nil)
	handler := Auth(cfg, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
	if resp.Header().Get("WWW-Authenticate") == "" {
		t.Fatalf("expected bearer challenge header")
	}
}
