package cancel

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
	"session-scheduler/internal/service"
	"session-scheduler/pkg/response"
)

type SessionCanceller interface {
	CancelSession(ctx context.Context, actor models.Actor, id, reasonCategory, reasonDetails string) (*service.CancelResult, error)
}

type Request struct {
	api.CancelRequest
}

type Response struct {
	response.Response
	*service.CancelResult
}

func New(log *slog.Logger, canceller SessionCanceller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.sessions.cancel.New"

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

		if req.ReasonCategory == "" {
			fail.Invalid(log, w, r, "reason_category is required")
			return
		}

		id := chi.URLParam(r, "id")

		result, err := canceller.CancelSession(r.Context(), actor, id, req.ReasonCategory, req.ReasonDetails)
		if err != nil {
			fail.Write(log, w, r, err, "failed to cancel session")
			return
		}

		log.Info("Session cancelled", slog.String("session_id", id), slog.Int("refund_percentage", result.RefundPercentage))

		responseOK(w, r, result)
	}
}

func responseOK(w http.ResponseWriter, r *http.Request, result *service.CancelResult) {
	render.JSON(w, r, Response{
		CancelResult: result,
	})
}
