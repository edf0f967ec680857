package list

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"session-scheduler/internal/http-server/handlers/fail"
	"session-scheduler/internal/slots"
	"session-scheduler/pkg/response"
)

// DefaultRange is used when the query has no 'to'.
const DefaultRange = 7 * 24 * time.Hour

type SlotLister interface {
	ListSlots(ctx context.Context, mentorID string, from, to time.Time, viewerTZ string) ([]slots.Slot, error)
}

type Response struct {
	response.Response
	Slots []slots.Slot `json:"slots"`
}

func New(log *slog.Logger, lister SlotLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.slots.list.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		q := r.URL.Query()

		from := time.Now().UTC()
		if v := q.Get("from"); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				fail.Invalid(log, w, r, "'from' must be an RFC 3339 timestamp")
				return
			}
			from = t
		}

		to := from.Add(DefaultRange)
		if v := q.Get("to"); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				fail.Invalid(log, w, r, "'to' must be an RFC 3339 timestamp")
				return
			}
			to = t
		}

		result, err := lister.ListSlots(r.Context(), chi.URLParam(r, "mentorID"), from, to, q.Get("tz"))
		if err != nil {
			fail.Write(log, w, r, err, "failed to list slots")
			return
		}

		log.Debug("Slots resolved", slog.Int("count", len(result)))

		responseOK(w, r, result)
	}
}

func responseOK(w http.ResponseWriter, r *http.Request, result []slots.Slot) {
	render.JSON(w, r, Response{
		Slots: result,
	})
}
