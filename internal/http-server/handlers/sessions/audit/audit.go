package audit

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

type AuditLister interface {
	ListAudit(ctx context.Context, actor models.Actor, sessionID string) ([]models.SessionAuditLogEntry, error)
}

type Response struct {
	response.Response
	Entries []models.SessionAuditLogEntry `json:"entries"`
}

func New(log *slog.Logger, lister AuditLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.sessions.audit.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		actor, ok := identity.FromContext(r.Context())
		if !ok {
			fail.Unauthenticated(log, w, r)
			return
		}

		entries, err := lister.ListAudit(r.Context(), actor, chi.URLParam(r, "id"))
		if err != nil {
			fail.Write(log, w, r, err, "failed to list audit entries")
			return
		}

		responseOK(w, r, entries)
	}
}

func responseOK(w http.ResponseWriter, r *http.Request, entries []models.SessionAuditLogEntry) {
	render.JSON(w, r, Response{
		Entries: entries,
	})
}
