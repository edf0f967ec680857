package start

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"session-scheduler/internal/http-server/handlers/fail"
	"session-scheduler/internal/http-server/middleware/identity"
	"session-scheduler/internal/models"
	"session-scheduler/pkg/response"
)

type SessionStarter interface {
	StartSession(ctx context.Context, actor models.Actor, id string) (*models.Session, error)
}

type Response struct {
	response.Response
	Session *models.Session `json:"session,omitempty"`
}

func New(log *slog.Logger, starter SessionStarter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.sessions.start.New"

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

		session, err := starter.StartSession(r.Context(), actor, id)
		if err != nil {
			fail.Write(log, w, r, err, "failed to start session")
			return
		}

		log.Info("Session started", slog.String("session_id", id))

		responseOK(w, r, session)
	}
}

func responseOK(w http.ResponseWriter, r *http.Request, session *models.Session) {
	render.JSON(w, r, Response{
		Session: session,
	})
}
