package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/angelmondragon/bazaar-backend/api/responses"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

// RequireRole admits tokens carrying one of roles. It runs after Auth; a
// request without any role never authenticated and gets a 401.
func RequireRole(logg *logger.Logger, roles ...enums.UserRole) func(http.Handler) http.Handler {
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = role.String()
	}
	denied := "requires role " + strings.Join(names, " or ")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actual := enums.UserRole(RoleFromContext(r.Context()))
			switch {
			case actual == "":
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			case slices.Contains(roles, actual):
				next.ServeHTTP(w, r)
			default:
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, denied))
			}
		})
	}
}
