package middleware

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/savannahq/pettycash/internal/user"
)

// ActorMiddleware extracts the authenticated identity forwarded by the API
// gateway. Requests without a valid X-User-ID are rejected; the service
// itself never sees an unauthenticated caller.
func ActorMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawID := r.Header.Get("X-User-ID")
			if rawID == "" {
				logger.Warn("request missing identity headers", "path", r.URL.Path)
				http.Error(w, `{"code":401,"message":"unauthorized"}`, http.StatusUnauthorized)
				return
			}

			id, err := uuid.Parse(rawID)
			if err != nil {
				logger.Warn("malformed X-User-ID header", "value", rawID, "error", err)
				http.Error(w, `{"code":401,"message":"unauthorized"}`, http.StatusUnauthorized)
				return
			}

			actor := &user.Actor{
				ID:    id,
				Email: r.Header.Get("X-User-Email"),
				Name:  r.Header.Get("X-User-Name"),
				Role:  r.Header.Get("X-User-Role"),
			}

			ctx := user.ContextWithActor(r.Context(), actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
