package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"session-scheduler/internal/models"
)

func TestForReschedule(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	original := now.Add(72 * time.Hour)
	proposed := original.Add(24 * time.Hour)
	counter := original.Add(48 * time.Hour)
	mentee := models.RoleMentee

	s := models.Session{ID: "s1", ScheduledAt: original}
	r := models.RescheduleRequest{
		ID:                  "r1",
		OriginalTime:        original,
		ProposedTime:        proposed,
		CounterProposedTime: &counter,
		CounterProposedBy:   &mentee,
		Reason:              "conference",
	}

	accepted := ForReschedule(s, r, "mentor", models.RoleMentor, models.OutcomeAccepted, models.PolicySnapshot{}, now)
	assert.NotEmpty(t, accepted.ID)
	assert.Equal(t, models.AuditReschedule, accepted.Action)
	assert.Equal(t, original, accepted.BeforeTime)
	require.NotNil(t, accepted.AfterTime)
	assert.Equal(t, counter, *accepted.AfterTime)
	assert.Equal(t, "r1", accepted.PolicySnapshot.RequestID)

	rejected := ForReschedule(s, r, "mentor", models.RoleMentor, models.OutcomeRejected, models.PolicySnapshot{}, now)
	assert.Nil(t, rejected.AfterTime)

	inLieu := ForReschedule(s, r, "mentee", models.RoleMentee, models.OutcomeCancelledInLieu, models.PolicySnapshot{RefundPercentage: 100}, now)
	assert.Equal(t, models.AuditCancel, inLieu.Action)
	assert.Equal(t, 100, inLieu.PolicySnapshot.RefundPercentage)
}

func TestSnapshotRoundTrip(t *testing.T) {
	in := models.PolicySnapshot{
		Role:             models.RoleMentee,
		Policy:           models.CancellationPolicy{FreeCancellationHours: 24, CancellationCutoffHours: 2, PartialRefundPercentage: 70},
		CutoffHours:      2,
		HoursUntil:       3.5,
		RefundPercentage: 70,
		RefundCents:      3500,
	}

	b, err := MarshalSnapshot(in)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"refund_percentage":70`)

	out, err := UnmarshalSnapshot(b)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	empty, err := UnmarshalSnapshot(nil)
	require.NoError(t, err)
	assert.Equal(t, models.PolicySnapshot{}, empty)
}
