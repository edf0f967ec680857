// Package router mounts the scheduling API on a chi router.
package router

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"session-scheduler/internal/config"
	availGet "session-scheduler/internal/http-server/handlers/availability/get"
	availSave "session-scheduler/internal/http-server/handlers/availability/save"
	exceptionCreate "session-scheduler/internal/http-server/handlers/exceptions/create"
	exceptionDelete "session-scheduler/internal/http-server/handlers/exceptions/delete"
	rescheduleGet "session-scheduler/internal/http-server/handlers/reschedule/get"
	rescheduleInitiate "session-scheduler/internal/http-server/handlers/reschedule/initiate"
	rescheduleRespond "session-scheduler/internal/http-server/handlers/reschedule/respond"
	rescheduleWithdraw "session-scheduler/internal/http-server/handlers/reschedule/withdraw"
	ruleCreate "session-scheduler/internal/http-server/handlers/rules/create"
	ruleDelete "session-scheduler/internal/http-server/handlers/rules/delete"
	sessionAudit "session-scheduler/internal/http-server/handlers/sessions/audit"
	sessionBook "session-scheduler/internal/http-server/handlers/sessions/book"
	sessionCancel "session-scheduler/internal/http-server/handlers/sessions/cancel"
	sessionComplete "session-scheduler/internal/http-server/handlers/sessions/complete"
	sessionGet "session-scheduler/internal/http-server/handlers/sessions/get"
	sessionNoShow "session-scheduler/internal/http-server/handlers/sessions/noshow"
	sessionStart "session-scheduler/internal/http-server/handlers/sessions/start"
	slotList "session-scheduler/internal/http-server/handlers/slots/list"
	"session-scheduler/internal/http-server/middleware/identity"
	"session-scheduler/internal/http-server/middleware/ratelimit"
	"session-scheduler/internal/service"
	"session-scheduler/pkg/middleware/mwLogger"
)

func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Idempotency-Key, X-User-ID, X-User-Role")
		w.Header().Set("Content-Type", "application/json; charset=utf-8")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func New(log *slog.Logger, svc *service.Service, rl config.RateLimit) *chi.Mux {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(mwLogger.New(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)
	router.Use(CORS)
	router.Use(ratelimit.New(log, rl.RPS, rl.Burst))

	// Public reads
	router.Get("/mentors/{mentorID}/availability", availGet.New(log, svc))
	router.Get("/mentors/{mentorID}/slots", slotList.New(log, svc))

	router.Group(func(r chi.Router) {
		r.Use(identity.New(log))

		// Availability
		r.Put("/mentors/{mentorID}/availability", availSave.New(log, svc))
		r.Post("/mentors/{mentorID}/availability/exceptions", exceptionCreate.New(log, svc))
		r.Delete("/mentors/{mentorID}/availability/exceptions/{id}", exceptionDelete.New(log, svc))
		r.Post("/mentors/{mentorID}/availability/rules", ruleCreate.New(log, svc))
		r.Delete("/mentors/{mentorID}/availability/rules/{id}", ruleDelete.New(log, svc))

		// Sessions
		r.Post("/sessions", sessionBook.New(log, svc))
		r.Get("/sessions/{id}", sessionGet.New(log, svc))
		r.Post("/sessions/{id}/start", sessionStart.New(log, svc))
		r.Post("/sessions/{id}/complete", sessionComplete.New(log, svc))
		r.Post("/sessions/{id}/cancel", sessionCancel.New(log, svc))
		r.Post("/sessions/{id}/no-show", sessionNoShow.New(log, svc))
		r.Get("/sessions/{id}/audit", sessionAudit.New(log, svc))

		// Reschedule negotiation
		r.Post("/sessions/{id}/reschedule", rescheduleInitiate.New(log, svc))
		r.Get("/reschedule-requests/{id}", rescheduleGet.New(log, svc))
		r.Post("/reschedule-requests/{id}/respond", rescheduleRespond.New(log, svc))
		r.Post("/reschedule-requests/{id}/withdraw", rescheduleWithdraw.New(log, svc))
	})

	return router
}
