package withdraw

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

type RescheduleWithdrawer interface {
	WithdrawReschedule(ctx context.Context, actor models.Actor, id string) (*models.RescheduleRequest, error)
}

type Response struct {
	response.Response
	Request *models.RescheduleRequest `json:"reschedule_request,omitempty"`
}

func New(log *slog.Logger, withdrawer RescheduleWithdrawer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.reschedule.withdraw.New"

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

		rr, err := withdrawer.WithdrawReschedule(r.Context(), actor, id)
		if err != nil {
			fail.Write(log, w, r, err, "failed to withdraw reschedule request")
			return
		}

		log.Info("Reschedule request withdrawn", slog.String("reschedule_request_id", id))

		responseOK(w, r, rr)
	}
}

func responseOK(w http.ResponseWriter, r *http.Request, rr *models.RescheduleRequest) {
	render.JSON(w, r, Response{
		Request: rr,
	})
}
