package respond

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
	"session-scheduler/internal/negotiation"
	"session-scheduler/internal/service"
	"session-scheduler/pkg/response"
)

type RescheduleResponder interface {
	RespondReschedule(ctx context.Context, actor models.Actor, id string, in service.RespondRequest) (*service.RescheduleResult, error)
}

type Request struct {
	api.RespondRequest
}

type Response struct {
	response.Response
	Request *models.RescheduleRequest `json:"reschedule_request,omitempty"`
	Session *models.Session           `json:"session,omitempty"`
}

func New(log *slog.Logger, responder RescheduleResponder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.reschedule.respond.New"

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

		action := negotiation.Action(req.Action)
		if !action.Valid() {
			fail.Invalid(log, w, r, "action must be one of accept, reject, counter_propose, cancel_session")
			return
		}
		if action == negotiation.ActionCounterPropose && req.CounterProposedTime == nil {
			fail.Invalid(log, w, r, "counter_proposed_time is required for counter_propose")
			return
		}

		id := chi.URLParam(r, "id")

		result, err := responder.RespondReschedule(r.Context(), actor, id, service.RespondRequest{
			Action:      action,
			CounterTime: req.CounterProposedTime,
			Note:        req.Note,
		})
		if err != nil {
			fail.Write(log, w, r, err, "failed to respond to reschedule request")
			return
		}

		log.Info("Reschedule response applied",
			slog.String("reschedule_request_id", id),
			slog.String("action", req.Action),
			slog.String("status", string(result.Request.Status)),
		)

		responseOK(w, r, result)
	}
}

func responseOK(w http.ResponseWriter, r *http.Request, result *service.RescheduleResult) {
	render.JSON(w, r, Response{
		Request: &result.Request,
		Session: &result.Session,
	})
}
