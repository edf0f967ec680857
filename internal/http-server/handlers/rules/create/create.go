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

type RuleCreator interface {
	AddRule(ctx context.Context, actor models.Actor, rule models.AvailabilityRule, priority *int) (*models.AvailabilityRule, error)
}

type Request struct {
	api.RuleRequest
}

type Response struct {
	response.Response
	Rule *models.AvailabilityRule `json:"rule,omitempty"`
}

func New(log *slog.Logger, creator RuleCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.rules.create.New"

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

		rule, err := creator.AddRule(r.Context(), actor, req.Rule(chi.URLParam(r, "mentorID")), req.Priority)
		if err != nil {
			fail.Write(log, w, r, err, "failed to add rule")
			return
		}

		log.Info("Rule added", slog.String("id", rule.ID), slog.Int("priority", rule.Priority))

		w.WriteHeader(http.StatusCreated)
		responseOK(w, r, rule)
	}
}

func responseOK(w http.ResponseWriter, r *http.Request, rule *models.AvailabilityRule) {
	render.JSON(w, r, Response{
		Rule: rule,
	})
}
