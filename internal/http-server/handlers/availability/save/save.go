package save

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

type ScheduleSaver interface {
	SaveSchedule(ctx context.Context, actor models.Actor, in models.AvailabilitySchedule) (*models.AvailabilitySchedule, error)
}

type Request struct {
	api.ScheduleRequest
}

type Response struct {
	response.Response
	Schedule *models.AvailabilitySchedule `json:"schedule,omitempty"`
}

func New(log *slog.Logger, saver ScheduleSaver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.availability.save.New"

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

		mentorID := chi.URLParam(r, "mentorID")

		schedule, err := saver.SaveSchedule(r.Context(), actor, req.Schedule(mentorID))
		if err != nil {
			fail.Write(log, w, r, err, "failed to save availability")
			return
		}

		log.Info("Availability saved", slog.String("mentor_id", mentorID))

		responseOK(w, r, schedule)
	}
}

func responseOK(w http.ResponseWriter, r *http.Request, schedule *models.AvailabilitySchedule) {
	render.JSON(w, r, Response{
		Schedule: schedule,
	})
}
