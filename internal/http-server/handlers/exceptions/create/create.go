package create

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"session-scheduler/api"
	"session-scheduler/internal/http-server/handlers/fail"
	"session-scheduler/internal/http-server/middleware/identity"
	"session-scheduler/internal/models"
	"session-scheduler/pkg/response"
)

type ExceptionCreator interface {
	AddException(ctx context.Context, actor models.Actor, e models.AvailabilityException) (*models.AvailabilityException, error)
}

type Request struct {
	api.ExceptionRequest
}

type Response struct {
	response.Response
	Exception *models.AvailabilityException `json:"exception,omitempty"`
}

func New(log *slog.Logger, creator ExceptionCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.exceptions.create.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		actor, ok := identity.FromContext(r.Context())
		if !ok {
			fail.Unauthenticated(log, w, r)
			return
		}

		var req Request
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			fail.BadRequest(log, w, r, err)
			return
		}

		exception, err := creator.AddException(r.Context(), actor, req.Exception(chi.URLParam(r, "mentorID")))
		if err != nil {
			fail.Write(log, w, r, err, "failed to add exception")
			return
		}

		log.Info("Exception added", slog.String("id", exception.ID))

		w.WriteHeader(http.StatusCreated)
		responseOK(w, r, exception)
	}
}

func responseOK(w http.ResponseWriter, r *http.Request, exception *models.AvailabilityException) {
	render.JSON(w, r, Response{
		Exception: exception,
	})
}
