package router

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"session-scheduler/internal/config"
	"session-scheduler/internal/effects"
	"session-scheduler/internal/idempotency"
	"session-scheduler/internal/models"
	"session-scheduler/internal/policy"
	"session-scheduler/internal/service"
	"session-scheduler/internal/slots"
	"session-scheduler/internal/storage/memory"
)

type nopEffects struct{}

func (nopEffects) Notify(string, string, effects.Event, any) {}
func (nopEffects) Charge(string, int64, string)              {}
func (nopEffects) Refund(string, int64, int)                 {}
func (nopEffects) ProvisionRoom(string)                      {}

type client struct {
	t      *testing.T
	router http.Handler
}

func (c client) do(method, target, userID, role string, body any) *httptest.ResponseRecorder {
	c.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
		req.Header.Set("X-User-Role", role)
	}
	rr := httptest.NewRecorder()
	c.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func newClient(t *testing.T) client {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.New(log, memory.New(), nopEffects{}, idempotency.NewCacheKeeper(time.Hour), service.Options{
		RequestTTL:     48 * time.Hour,
		IdempotencyTTL: time.Hour,
		Guards:         policy.DefaultGuards(),
		Policies:       config.DefaultPolicies(),
	})
	return client{t: t, router: New(log, svc, config.RateLimit{RPS: 100, Burst: 100})}
}

func TestRouter_BookAndReschedule(t *testing.T) {
	c := newClient(t)

	allDay := make([]models.WeeklyPattern, 0, 7)
	for d := 0; d < 7; d++ {
		allDay = append(allDay, models.WeeklyPattern{
			DayOfWeek: d,
			Enabled:   true,
			Blocks:    []models.TimeBlock{{Start: 0, End: models.EndOfDay, Kind: models.BlockAvailable}},
		})
	}

	rr := c.do(http.MethodPut, "/mentors/mentor-1/availability", "mentor-1", "mentor", map[string]any{
		"timezone":                  "UTC",
		"default_session_minutes":   60,
		"buffer_minutes":            15,
		"min_advance_booking_hours": 0,
		"max_advance_booking_days":  30,
		"rate_cents":                5000,
		"currency":                  "USD",
		"patterns":                  allDay,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = c.do(http.MethodGet, "/mentors/mentor-1/availability", "", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	now := time.Now().UTC()
	q := url.Values{}
	q.Set("from", now.Add(6*time.Hour).Format(time.RFC3339))
	q.Set("to", now.Add(30*time.Hour).Format(time.RFC3339))
	rr = c.do(http.MethodGet, "/mentors/mentor-1/slots?"+q.Encode(), "", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	free := decode[struct {
		Slots []slots.Slot `json:"slots"`
	}](t, rr).Slots
	require.GreaterOrEqual(t, len(free), 2)

	rr = c.do(http.MethodPost, "/sessions", "", "", map[string]any{"mentor_id": "mentor-1", "slot_start": free[0].Start})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = c.do(http.MethodPost, "/sessions", "mentee-1", "mentee", map[string]any{"mentor_id": "mentor-1", "slot_start": free[0].Start})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	session := decode[struct {
		Session models.Session `json:"session"`
	}](t, rr).Session
	assert.Equal(t, int64(5000), session.RateCents)

	rr = c.do(http.MethodPost, "/sessions", "mentee-2", "mentee", map[string]any{"mentor_id": "mentor-1", "slot_start": free[0].Start})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = c.do(http.MethodGet, "/sessions/"+session.ID, "stranger", "mentee", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = c.do(http.MethodPost, "/sessions/"+session.ID+"/reschedule", "mentee-1", "mentee", map[string]any{
		"proposed_time": free[1].Start,
		"reason":        "conflict at work",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	request := decode[struct {
		Request models.RescheduleRequest `json:"reschedule_request"`
	}](t, rr).Request

	rr = c.do(http.MethodPost, "/reschedule-requests/"+request.ID+"/respond", "mentor-1", "mentor", map[string]any{"action": "accept"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	result := decode[struct {
		Request models.RescheduleRequest `json:"reschedule_request"`
		Session models.Session           `json:"session"`
	}](t, rr)
	assert.Equal(t, models.RescheduleAccepted, result.Request.Status)
	assert.True(t, result.Session.ScheduledAt.Equal(free[1].Start))

	rr = c.do(http.MethodGet, "/sessions/"+session.ID+"/audit", "mentee-1", "mentee", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	entries := decode[struct {
		Entries []models.SessionAuditLogEntry `json:"entries"`
	}](t, rr).Entries
	assert.NotEmpty(t, entries)

	rr = c.do(http.MethodPost, "/sessions/"+session.ID+"/cancel", "mentee-1", "mentee", map[string]any{"reason_category": "schedule_conflict"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = c.do(http.MethodPost, "/sessions/"+session.ID+"/cancel", "mentee-1", "mentee", map[string]any{"reason_category": "schedule_conflict"})
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestRouter_UnknownMentor(t *testing.T) {
	c := newClient(t)

	rr := c.do(http.MethodGet, "/mentors/nobody/availability", "", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCORS_Preflight(t *testing.T) {
	c := newClient(t)

	rr := c.do(http.MethodOptions, "/sessions", "", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Headers"), "X-User-Role")
}
