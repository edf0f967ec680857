package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"session-scheduler/internal/models"
	"session-scheduler/internal/storage"
	"session-scheduler/pkg/response"
)

var at = time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC)

func seed(t *testing.T, s *Storage) {
	t.Helper()
	err := s.WithTx(context.Background(), func(tx storage.Tx) error {
		if err := tx.SaveSchedule(context.Background(), &models.AvailabilitySchedule{MentorID: "m1", Timezone: "UTC"}); err != nil {
			return err
		}
		return tx.CreateSession(context.Background(), &models.Session{
			ID: "s1", MentorID: "m1", MenteeID: "e1", ScheduledAt: at, DurationMinutes: 60, Status: models.SessionScheduled,
		})
	})
	require.NoError(t, err)
}

func TestWithTx_RollbackDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	s := New()
	seed(t, s)

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx storage.Tx) error {
		sess, err := tx.GetSession(ctx, "s1")
		require.NoError(t, err)
		sess.Status = models.SessionCancelled
		require.NoError(t, tx.UpdateSession(ctx, sess))
		require.NoError(t, tx.AppendAudit(ctx, &models.SessionAuditLogEntry{ID: "a1", SessionID: "s1"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	err = s.WithTx(ctx, func(tx storage.Tx) error {
		sess, err := tx.GetSession(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, models.SessionScheduled, sess.Status)

		entries, err := tx.ListAudit(ctx, "s1")
		require.NoError(t, err)
		assert.Empty(t, entries)
		return nil
	})
	require.NoError(t, err)
}

func TestWithTx_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New().WithTx(ctx, func(tx storage.Tx) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScheduleChildren(t *testing.T) {
	ctx := context.Background()
	s := New()
	seed(t, s)

	err := s.WithTx(ctx, func(tx storage.Tx) error {
		require.NoError(t, tx.CreateException(ctx, &models.AvailabilityException{ID: "ex1", MentorID: "m1"}))
		require.NoError(t, tx.CreateRule(ctx, &models.AvailabilityRule{ID: "r1", MentorID: "m1"}))

		// Replacing settings keeps children.
		require.NoError(t, tx.SaveSchedule(ctx, &models.AvailabilitySchedule{MentorID: "m1", Timezone: "Europe/Paris"}))

		sched, err := tx.GetSchedule(ctx, "m1")
		require.NoError(t, err)
		assert.Equal(t, "Europe/Paris", sched.Timezone)
		assert.Len(t, sched.Exceptions, 1)
		assert.Len(t, sched.Rules, 1)

		require.NoError(t, tx.DeleteException(ctx, "m1", "ex1"))
		assert.ErrorIs(t, tx.DeleteException(ctx, "m1", "ex1"), response.ErrNotFound)
		assert.ErrorIs(t, tx.DeleteRule(ctx, "m1", "nope"), response.ErrNotFound)
		return nil
	})
	require.NoError(t, err)

	err = s.WithTx(ctx, func(tx storage.Tx) error {
		_, err := tx.GetSchedule(ctx, "missing")
		assert.ErrorIs(t, err, response.ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestListActiveSessions(t *testing.T) {
	ctx := context.Background()
	s := New()
	seed(t, s)

	err := s.WithTx(ctx, func(tx storage.Tx) error {
		require.NoError(t, tx.CreateSession(ctx, &models.Session{ID: "s2", MentorID: "m1", ScheduledAt: at.Add(2 * time.Hour), DurationMinutes: 60, Status: models.SessionCancelled}))
		require.NoError(t, tx.CreateSession(ctx, &models.Session{ID: "s3", MentorID: "m2", ScheduledAt: at, DurationMinutes: 60, Status: models.SessionScheduled}))

		got, err := tx.ListActiveSessions(ctx, "m1", at.Add(-time.Hour), at.Add(24*time.Hour))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "s1", got[0].ID)

		got, err = tx.ListActiveSessions(ctx, "m1", at.Add(time.Hour), at.Add(2*time.Hour))
		require.NoError(t, err)
		assert.Empty(t, got)
		return nil
	})
	require.NoError(t, err)
}

func TestCreateRescheduleRequest_OneActive(t *testing.T) {
	ctx := context.Background()
	s := New()
	seed(t, s)

	err := s.WithTx(ctx, func(tx storage.Tx) error {
		require.NoError(t, tx.CreateRescheduleRequest(ctx, &models.RescheduleRequest{ID: "r1", SessionID: "s1", Status: models.ReschedulePending}))

		err := tx.CreateRescheduleRequest(ctx, &models.RescheduleRequest{ID: "r2", SessionID: "s1", Status: models.ReschedulePending})
		assert.ErrorIs(t, err, response.ErrRequestAlreadyActive)

		active, err := tx.GetActiveRescheduleRequest(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, "r1", active.ID)

		active.Status = models.RescheduleRejected
		require.NoError(t, tx.UpdateRescheduleRequest(ctx, active))

		_, err = tx.GetActiveRescheduleRequest(ctx, "s1")
		assert.ErrorIs(t, err, response.ErrNotFound)

		return tx.CreateRescheduleRequest(ctx, &models.RescheduleRequest{ID: "r3", SessionID: "s1", Status: models.ReschedulePending})
	})
	require.NoError(t, err)
}
