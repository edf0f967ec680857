package initiate

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"session-scheduler/api"
	"session-scheduler/internal/http-server/handlers/fail"
	"session-scheduler/internal/http-server/middleware/identity"
	"session-scheduler/internal/models"
	"session-scheduler/pkg/response"
)

type RescheduleInitiator interface {
	InitiateReschedule(ctx context.Context, actor models.Actor, sessionID string, proposed time.Time, reason string) (*models.RescheduleRequest, error)
}

type Request struct {
	api.RescheduleRequest
}

type Response struct {
	response.Response
	Request *models.RescheduleRequest `json:"reschedule_request,omitempty"`
}

func New(log *slog.Logger, initiator RescheduleInitiator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.reschedule.initiate.New"

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

		if req.ProposedTime.IsZero() {
			fail.Invalid(log, w, r, "proposed_time is required")
			return
		}

		sessionID := chi.URLParam(r, "id")

		rr, err := initiator.InitiateReschedule(r.Context(), actor, sessionID, req.ProposedTime, req.Reason)
		if err != nil {
			fail.Write(log, w, r, err, "failed to request reschedule")
			return
		}

		log.Info("Reschedule requested", slog.String("session_id", sessionID), slog.String("reschedule_request_id", rr.ID))

		w.WriteHeader(http.StatusCreated)
		responseOK(w, r, rr)
	}
}

func responseOK(w http.ResponseWriter, r *http.Request, rr *models.RescheduleRequest) {
	render.JSON(w, r, Response{
		Request: rr,
	})
}
