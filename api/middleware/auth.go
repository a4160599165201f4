package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/bazaar-backend/api/responses"
	pkgAuth "github.com/angelmondragon/bazaar-backend/pkg/auth"
	"github.com/angelmondragon/bazaar-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

const bearerScheme = "bearer"

// Auth requires an access token minted by the OTP sign-in flow and seeds
// the context with the user, role and, for merchants, the owned store.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w, r, logg, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				unauthorized(w, r, logg, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			fields := map[string]any{
				"user_id":    claims.UserID.String(),
				"actor_role": string(claims.Role),
			}
			ctx := WithRole(WithUserID(r.Context(), claims.UserID.String()), string(claims.Role))
			if claims.StoreID != nil {
				ctx = WithStoreID(ctx, claims.StoreID.String())
				fields["store_id"] = claims.StoreID.String()
			}
			if logg != nil {
				ctx = logg.WithFields(ctx, fields)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken accepts "Bearer <token>" with any casing of the scheme.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, bearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter, r *http.Request, logg *logger.Logger, err error) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="bazaar"`)
	responses.WriteError(r.Context(), logg, w, err)
}
