package get

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

type RequestGetter interface {
	GetRescheduleRequest(ctx context.Context, actor models.Actor, id string) (*models.RescheduleRequest, error)
}

type Response struct {
	response.Response
	Request *models.RescheduleRequest `json:"reschedule_request,omitempty"`
}

func New(log *slog.Logger, getter RequestGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.reschedule.get.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		actor, ok := identity.FromContext(r.Context())
		if !ok {
			fail.Unauthenticated(log, w, r)
			return
		}

		rr, err := getter.GetRescheduleRequest(r.Context(), actor, chi.URLParam(r, "id"))
		if err != nil {
			fail.Write(log, w, r, err, "failed to get reschedule request")
			return
		}

		responseOK(w, r, rr)
	}
}

func responseOK(w http.ResponseWriter, r *http.Request, rr *models.RescheduleRequest) {
	render.JSON(w, r, Response{
		Request: rr,
	})
}
