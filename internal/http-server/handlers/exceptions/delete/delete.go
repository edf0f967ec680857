package delete

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"session-scheduler/internal/http-server/handlers/fail"
	"session-scheduler/internal/http-server/middleware/identity"
	"session-scheduler/internal/models"
)

type ExceptionDeleter interface {
	DeleteException(ctx context.Context, actor models.Actor, mentorID, id string) error
}

func New(log *slog.Logger, deleter ExceptionDeleter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.exceptions.delete.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		actor, ok := identity.FromContext(r.Context())
		if !ok {
			fail.Unauthenticated(log, w, r)
			return
		}

		id := chi.URLParam(r, "id")

		if err := deleter.DeleteException(r.Context(), actor, chi.URLParam(r, "mentorID"), id); err != nil {
			fail.Write(log, w, r, err, "failed to delete exception")
			return
		}

		log.Info("Exception deleted", slog.String("id", id))

		w.WriteHeader(http.StatusNoContent)
	}
}
