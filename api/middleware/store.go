package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/api/responses"
	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

// StoreHeader lets a merchant with several stores pick the one a vendor
// request acts on. Without it the store from the token is used.
const StoreHeader = "X-Store-Id"

type StoreLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error)
}

// StoreContext resolves the vendor store and checks the caller owns it.
func StoreContext(lookup StoreLookup, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			raw := strings.TrimSpace(r.Header.Get(StoreHeader))
			if raw == "" {
				raw = StoreIDFromContext(ctx)
			}
			if raw == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "store context missing"))
				return
			}
			storeID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid store id"))
				return
			}
			userID, ok := UserUUID(ctx)
			if !ok {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
				return
			}

			store, err := lookup.FindByID(ctx, storeID)
			if err != nil {
				if db.IsNotFound(err) {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "store not accessible"))
					return
				}
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load store"))
				return
			}
			if store.OwnerID != userID {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "store not accessible"))
				return
			}

			ctx = WithStoreID(ctx, storeID.String())
			if logg != nil {
				ctx = logg.WithField(ctx, "store_id", storeID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
