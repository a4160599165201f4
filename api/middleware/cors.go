package middleware

import (
	"net/http"
	"slices"

	"github.com/go-chi/cors"
)

var defaultCORSOrigins = []string{"http://localhost:3000"}

// CORS applies the origin allow list. A "*" entry opens the API to any origin
// but then drops credentials, which browsers refuse to combine with a wildcard.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = defaultCORSOrigins
	}
	return cors.New(corsOptions(origins)).Handler
}

func corsOptions(origins []string) cors.Options {
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", idempotencyKeyHeader, StoreHeader, requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader, idempotencyReplayHeader, "Retry-After"},
		AllowCredentials: !slices.Contains(origins, "*"),
		MaxAge:           300,
	}
}
