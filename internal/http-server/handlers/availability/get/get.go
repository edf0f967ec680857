package get

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"session-scheduler/internal/http-server/handlers/fail"
	"session-scheduler/internal/models"
	"session-scheduler/pkg/response"
)

type ScheduleGetter interface {
	GetSchedule(ctx context.Context, mentorID string) (*models.AvailabilitySchedule, error)
}

type Response struct {
	response.Response
	Schedule *models.AvailabilitySchedule `json:"schedule,omitempty"`
}

func New(log *slog.Logger, getter ScheduleGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.availability.get.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		mentorID := chi.URLParam(r, "mentorID")

		schedule, err := getter.GetSchedule(r.Context(), mentorID)
		if err != nil {
			fail.Write(log, w, r, err, "failed to get availability")
			return
		}

		responseOK(w, r, schedule)
	}
}

func responseOK(w http.ResponseWriter, r *http.Request, schedule *models.AvailabilitySchedule) {
	render.JSON(w, r, Response{
		Schedule: schedule,
	})
}
