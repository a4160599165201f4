package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

// Logging tags the request logger with method and path and writes one
// "request.complete" line per request. Probe and scrape traffic is not logged.
func Logging(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if logg == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := logg.WithFields(r.Context(), map[string]any{
				"method": r.Method,
				"path":   r.URL.Path,
			})
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r.WithContext(ctx))

			if quietPath(r.URL.Path) {
				return
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := map[string]any{
				"status":      status,
				"bytes":       ww.BytesWritten(),
				"duration_ms": time.Since(start).Milliseconds(),
			}
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				fields["route"] = rc.RoutePattern()
			}
			logg.Info(logg.WithFields(ctx, fields), "request.complete")
		})
	}
}

func quietPath(path string) bool {
	return strings.HasPrefix(path, "/health/") || path == "/metrics"
}
