package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"session-scheduler/internal/models"
	"session-scheduler/internal/policy"
	"session-scheduler/pkg/response"
)

var (
	start = time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)

	policies = policy.Policies{
		Mentor: models.CancellationPolicy{FreeCancellationHours: 0, CancellationCutoffHours: 0, PartialRefundPercentage: 100, LateCancellationRefundPercentage: 100},
		Mentee: models.CancellationPolicy{FreeCancellationHours: 24, CancellationCutoffHours: 2, PartialRefundPercentage: 50, LateCancellationRefundPercentage: 0},
	}
)

func newSession() *models.Session {
	return &models.Session{
		ID:              "s1",
		MentorID:        "mentor",
		MenteeID:        "mentee",
		ScheduledAt:     start,
		DurationMinutes: 60,
		Status:          models.SessionScheduled,
		RateCents:       8000,
	}
}

func TestTransitionTable(t *testing.T) {
	assert.True(t, CanTransition(models.SessionScheduled, models.SessionInProgress))
	assert.True(t, CanTransition(models.SessionScheduled, models.SessionCancelled))
	assert.True(t, CanTransition(models.SessionScheduled, models.SessionNoShow))
	assert.True(t, CanTransition(models.SessionInProgress, models.SessionCompleted))

	assert.False(t, CanTransition(models.SessionScheduled, models.SessionCompleted))
	assert.False(t, CanTransition(models.SessionInProgress, models.SessionCancelled))
	assert.False(t, CanTransition(models.SessionCancelled, models.SessionScheduled))
	assert.False(t, CanTransition(models.SessionNoShow, models.SessionInProgress))

	for _, s := range []models.SessionStatus{models.SessionCompleted, models.SessionCancelled, models.SessionNoShow} {
		assert.True(t, IsTerminal(s), s)
	}
	assert.False(t, IsTerminal(models.SessionScheduled))
}

func TestStart(t *testing.T) {
	c := New(policy.DefaultGuards(), policies)
	s := newSession()

	_, err := c.Start(s, start.Add(-time.Minute))
	assert.ErrorIs(t, err, response.ErrPolicyViolation)

	changed, err := c.Start(s, start)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, models.SessionInProgress, s.Status)
	require.NotNil(t, s.StartedAt)

	changed, err = c.Start(s, start.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, changed)

	require.NoError(t, c.Complete(s, start.Add(time.Hour)))
	assert.Equal(t, models.SessionCompleted, s.Status)

	_, err = c.Start(s, start.Add(2*time.Hour))
	assert.ErrorIs(t, err, response.ErrInvalidTransition)
}

func TestComplete_RequiresInProgress(t *testing.T) {
	c := New(policy.DefaultGuards(), policies)
	assert.ErrorIs(t, c.Complete(newSession(), start), response.ErrInvalidTransition)
}

func TestCancel(t *testing.T) {
	c := New(policy.DefaultGuards(), policies)

	t.Run("mentee partial refund", func(t *testing.T) {
		s := newSession()
		snap, err := c.Cancel(s, models.RoleMentee, "conflict", start.Add(-3*time.Hour), false)
		require.NoError(t, err)
		assert.Equal(t, models.SessionCancelled, s.Status)
		assert.Equal(t, models.RoleMentee, *s.CancelledBy)
		assert.Equal(t, 50, snap.RefundPercentage)
		assert.Equal(t, int64(4000), snap.RefundCents)
		assert.Equal(t, 2.0, snap.CutoffHours)
		assert.False(t, snap.CutoffExempt)
	})

	t.Run("mentee inside cutoff", func(t *testing.T) {
		s := newSession()
		_, err := c.Cancel(s, models.RoleMentee, "", start.Add(-time.Hour), false)
		assert.ErrorIs(t, err, response.ErrPolicyViolation)
		assert.Equal(t, models.SessionScheduled, s.Status)
	})

	t.Run("mentor inside own cutoff", func(t *testing.T) {
		s := newSession()
		_, err := c.Cancel(s, models.RoleMentor, "", start.Add(-30*time.Minute), false)
		assert.ErrorIs(t, err, response.ErrPolicyViolation)

		snap, err := c.Cancel(s, models.RoleMentor, "", start.Add(-90*time.Minute), false)
		require.NoError(t, err)
		assert.Equal(t, 100, snap.RefundPercentage)
	})

	t.Run("exempt ignores cutoff and refunds fully", func(t *testing.T) {
		s := newSession()
		snap, err := c.Cancel(s, models.RoleMentee, "", start.Add(-10*time.Minute), true)
		require.NoError(t, err)
		assert.Equal(t, 100, snap.RefundPercentage)
		assert.Equal(t, int64(8000), snap.RefundCents)
		assert.True(t, snap.CutoffExempt)
	})

	t.Run("already cancelled", func(t *testing.T) {
		s := newSession()
		s.Status = models.SessionCancelled
		_, err := c.Cancel(s, models.RoleMentor, "", start.Add(-48*time.Hour), false)
		assert.ErrorIs(t, err, response.ErrInvalidTransition)
	})
}

func TestMarkNoShow(t *testing.T) {
	c := New(policy.DefaultGuards(), policies)

	s := newSession()
	_, err := c.MarkNoShow(s, models.RoleMentee, start.Add(time.Hour))
	assert.ErrorIs(t, err, response.ErrForbidden)

	_, err = c.MarkNoShow(s, models.RoleMentor, start)
	assert.ErrorIs(t, err, response.ErrPolicyViolation)

	_, err = c.MarkNoShow(s, models.RoleMentor, start.Add(25*time.Hour))
	assert.ErrorIs(t, err, response.ErrPolicyViolation)

	_, err = c.MarkNoShow(s, models.RoleMentor, start.Add(15*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, models.SessionNoShow, s.Status)
	assert.Equal(t, models.RoleMentee, *s.NoShowParty)

	_, err = c.MarkNoShow(s, models.RoleMentor, start.Add(20*time.Minute))
	assert.ErrorIs(t, err, response.ErrInvalidTransition)
}

func TestReschedule(t *testing.T) {
	c := New(policy.DefaultGuards(), policies)
	s := newSession()

	assert.NoError(t, c.CheckReschedule(s, models.RoleMentor, start.Add(-3*time.Hour)))
	assert.ErrorIs(t, c.CheckReschedule(s, models.RoleMentee, start.Add(-3*time.Hour)), response.ErrPolicyViolation)

	next := start.Add(48 * time.Hour)
	assert.ErrorIs(t, c.Reschedule(s, models.RoleMentee, next, start.Add(-30*time.Minute)), response.ErrPolicyViolation)
	assert.Equal(t, start, s.ScheduledAt)
	assert.Equal(t, 0, s.MenteeRescheduleCount)

	require.NoError(t, c.Reschedule(s, models.RoleMentee, next, start.Add(-10*time.Hour)))
	assert.Equal(t, next, s.ScheduledAt)
	assert.Equal(t, 1, s.MenteeRescheduleCount)
	assert.Equal(t, 0, s.MentorRescheduleCount)

	s.Status = models.SessionInProgress
	assert.ErrorIs(t, c.CheckReschedule(s, models.RoleMentor, start), response.ErrInvalidTransition)
	assert.ErrorIs(t, c.Reschedule(s, models.RoleMentor, next, start), response.ErrInvalidTransition)
}
