// Package memory is an in-process store used for local runs and tests.
// Transactions are serialized and work on a copy that replaces the committed
// state only when the transaction succeeds.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"session-scheduler/internal/models"
	"session-scheduler/internal/storage"
	"session-scheduler/pkg/response"
)

type Storage struct {
	mu    sync.Mutex
	state *state
}

type state struct {
	schedules map[string]models.AvailabilitySchedule
	sessions  map[string]models.Session
	requests  map[string]models.RescheduleRequest
	audit     []models.SessionAuditLogEntry
}

func New() *Storage {
	return &Storage{state: &state{
		schedules: make(map[string]models.AvailabilitySchedule),
		sessions:  make(map[string]models.Session),
		requests:  make(map[string]models.RescheduleRequest),
	}}
}

func (s *Storage) Close() error {
	return nil
}

func (s *Storage) WithTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	const op = "storage.memory.WithTx"

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	working := s.state.clone()
	if err := fn(&tx{st: working}); err != nil {
		return err
	}

	s.state = working
	return nil
}

func (st *state) clone() *state {
	out := &state{
		schedules: make(map[string]models.AvailabilitySchedule, len(st.schedules)),
		sessions:  make(map[string]models.Session, len(st.sessions)),
		requests:  make(map[string]models.RescheduleRequest, len(st.requests)),
		audit:     make([]models.SessionAuditLogEntry, len(st.audit)),
	}
	for k, v := range st.schedules {
		out.schedules[k] = copySchedule(v)
	}
	for k, v := range st.sessions {
		out.sessions[k] = v
	}
	for k, v := range st.requests {
		out.requests[k] = v
	}
	copy(out.audit, st.audit)
	return out
}

func copySchedule(s models.AvailabilitySchedule) models.AvailabilitySchedule {
	s.Patterns = append([]models.WeeklyPattern(nil), s.Patterns...)
	s.Exceptions = append([]models.AvailabilityException(nil), s.Exceptions...)
	s.Rules = append([]models.AvailabilityRule(nil), s.Rules...)
	return s
}

type tx struct {
	st *state
}

func (t *tx) GetSchedule(_ context.Context, mentorID string) (*models.AvailabilitySchedule, error) {
	const op = "storage.memory.GetSchedule"

	s, ok := t.st.schedules[mentorID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}
	out := copySchedule(s)
	return &out, nil
}

// SaveSchedule replaces the schedule settings and weekly patterns. Existing
// exceptions and rules are kept.
func (t *tx) SaveSchedule(_ context.Context, s *models.AvailabilitySchedule) error {
	next := copySchedule(*s)
	if prev, ok := t.st.schedules[s.MentorID]; ok {
		next.CreatedAt = prev.CreatedAt
		next.Exceptions = prev.Exceptions
		next.Rules = prev.Rules
	}
	t.st.schedules[s.MentorID] = next
	return nil
}

func (t *tx) CreateException(_ context.Context, e *models.AvailabilityException) error {
	const op = "storage.memory.CreateException"

	s, ok := t.st.schedules[e.MentorID]
	if !ok {
		return fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}
	s.Exceptions = append(s.Exceptions, *e)
	t.st.schedules[e.MentorID] = s
	return nil
}

func (t *tx) DeleteException(_ context.Context, mentorID, id string) error {
	const op = "storage.memory.DeleteException"

	s, ok := t.st.schedules[mentorID]
	if !ok {
		return fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}
	for i, e := range s.Exceptions {
		if e.ID == id {
			s.Exceptions = append(s.Exceptions[:i:i], s.Exceptions[i+1:]...)
			t.st.schedules[mentorID] = s
			return nil
		}
	}
	return fmt.Errorf("%s: %w", op, response.ErrNotFound)
}

func (t *tx) CreateRule(_ context.Context, r *models.AvailabilityRule) error {
	const op = "storage.memory.CreateRule"

	s, ok := t.st.schedules[r.MentorID]
	if !ok {
		return fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}
	s.Rules = append(s.Rules, *r)
	t.st.schedules[r.MentorID] = s
	return nil
}

func (t *tx) DeleteRule(_ context.Context, mentorID, id string) error {
	const op = "storage.memory.DeleteRule"

	s, ok := t.st.schedules[mentorID]
	if !ok {
		return fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}
	for i, r := range s.Rules {
		if r.ID == id {
			s.Rules = append(s.Rules[:i:i], s.Rules[i+1:]...)
			t.st.schedules[mentorID] = s
			return nil
		}
	}
	return fmt.Errorf("%s: %w", op, response.ErrNotFound)
}

// ListActiveSessions returns the mentor's non-cancelled sessions that
// start before to and end after from.
func (t *tx) ListActiveSessions(_ context.Context, mentorID string, from, to time.Time) ([]models.Session, error) {
	var out []models.Session
	for _, s := range t.st.sessions {
		if s.MentorID != mentorID || s.Status == models.SessionCancelled {
			continue
		}
		if s.ScheduledAt.Before(to) && s.EndsAt().After(from) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			return out[i].ScheduledAt.Before(out[j].ScheduledAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (t *tx) CreateSession(_ context.Context, s *models.Session) error {
	const op = "storage.memory.CreateSession"

	if _, ok := t.st.sessions[s.ID]; ok {
		return fmt.Errorf("%s: session %s already exists", op, s.ID)
	}
	t.st.sessions[s.ID] = *s
	return nil
}

func (t *tx) GetSession(_ context.Context, id string) (*models.Session, error) {
	const op = "storage.memory.GetSession"

	s, ok := t.st.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}
	return &s, nil
}

func (t *tx) UpdateSession(_ context.Context, s *models.Session) error {
	const op = "storage.memory.UpdateSession"

	if _, ok := t.st.sessions[s.ID]; !ok {
		return fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}
	t.st.sessions[s.ID] = *s
	return nil
}

func (t *tx) GetRescheduleRequest(_ context.Context, id string) (*models.RescheduleRequest, error) {
	const op = "storage.memory.GetRescheduleRequest"

	r, ok := t.st.requests[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}
	return &r, nil
}

func (t *tx) GetActiveRescheduleRequest(_ context.Context, sessionID string) (*models.RescheduleRequest, error) {
	const op = "storage.memory.GetActiveRescheduleRequest"

	for _, r := range t.st.requests {
		if r.SessionID == sessionID && r.Status.Active() {
			return &r, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
}

// CreateRescheduleRequest enforces one active request per session, like the
// partial unique index of the postgres schema.
func (t *tx) CreateRescheduleRequest(ctx context.Context, r *models.RescheduleRequest) error {
	const op = "storage.memory.CreateRescheduleRequest"

	if _, ok := t.st.sessions[r.SessionID]; !ok {
		return fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}
	if r.Status.Active() {
		if _, err := t.GetActiveRescheduleRequest(ctx, r.SessionID); err == nil {
			return fmt.Errorf("%s: %w", op, response.ErrRequestAlreadyActive)
		}
	}
	t.st.requests[r.ID] = *r
	return nil
}

func (t *tx) UpdateRescheduleRequest(_ context.Context, r *models.RescheduleRequest) error {
	const op = "storage.memory.UpdateRescheduleRequest"

	if _, ok := t.st.requests[r.ID]; !ok {
		return fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}
	t.st.requests[r.ID] = *r
	return nil
}

func (t *tx) AppendAudit(_ context.Context, e *models.SessionAuditLogEntry) error {
	t.st.audit = append(t.st.audit, *e)
	return nil
}

func (t *tx) ListAudit(_ context.Context, sessionID string) ([]models.SessionAuditLogEntry, error) {
	var out []models.SessionAuditLogEntry
	for _, e := range t.st.audit {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out, nil
}
