// Package identity reads the caller resolved by the API gateway.
package identity

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"session-scheduler/internal/models"
	"session-scheduler/pkg/response"
)

const (
	HeaderUserID = "X-User-ID"
	HeaderRole   = "X-User-Role"
)

type ctxKey struct{}

func WithActor(ctx context.Context, a models.Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

func FromContext(ctx context.Context) (models.Actor, bool) {
	a, ok := ctx.Value(ctxKey{}).(models.Actor)
	return a, ok
}

// New rejects requests that carry no valid identity headers.
func New(log *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		log := log.With(slog.String("component", "middleware/identity"))

		fn := func(w http.ResponseWriter, r *http.Request) {
			actor := models.Actor{
				UserID: r.Header.Get(HeaderUserID),
				Role:   models.Role(r.Header.Get(HeaderRole)),
			}
			if actor.UserID == "" || !actor.Role.Valid() {
				log.Warn("missing or invalid identity headers", slog.String("path", r.URL.Path))
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error(string(response.UNAUTHENTICATED), "X-User-ID and X-User-Role headers are required"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		}

		return http.HandlerFunc(fn)
	}
}
