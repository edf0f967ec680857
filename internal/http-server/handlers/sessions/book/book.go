package book

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"session-scheduler/api"
	"session-scheduler/internal/http-server/handlers/fail"
	"session-scheduler/internal/http-server/middleware/identity"
	"session-scheduler/internal/models"
	"session-scheduler/internal/service"
	"session-scheduler/pkg/response"
)

type SessionBooker interface {
	Book(ctx context.Context, actor models.Actor, req service.BookRequest) (*models.Session, error)
}

type Request struct {
	api.BookingRequest
}

type Response struct {
	response.Response
	Session *models.Session `json:"session,omitempty"`
}

func New(log *slog.Logger, booker SessionBooker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.sessions.book.New"

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

		log.Info("Request body decoded", slog.Any("request", req))

		if req.MentorID == "" {
			fail.Invalid(log, w, r, "mentor_id is required")
			return
		}
		if req.SlotStart.IsZero() {
			fail.Invalid(log, w, r, "slot_start is required")
			return
		}

		session, err := booker.Book(r.Context(), actor, service.BookRequest{
			MentorID:        req.MentorID,
			SlotStart:       req.SlotStart,
			DurationMinutes: req.DurationMinutes,
			MeetingDetails:  req.MeetingDetails,
			IdempotencyKey:  r.Header.Get("Idempotency-Key"),
		})
		if err != nil {
			fail.Write(log, w, r, err, "failed to book session")
			return
		}

		log.Info("Session booked", slog.String("session_id", session.ID))

		w.WriteHeader(http.StatusCreated)
		responseOK(w, r, session)
	}
}

func responseOK(w http.ResponseWriter, r *http.Request, session *models.Session) {
	render.JSON(w, r, Response{
		Session: session,
	})
}
