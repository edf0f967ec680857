package policy

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"session-scheduler/internal/models"
	"session-scheduler/pkg/response"
)

var menteePolicy = models.CancellationPolicy{
	FreeCancellationHours:            24,
	CancellationCutoffHours:          2,
	PartialRefundPercentage:          70,
	LateCancellationRefundPercentage: 10,
}

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func TestComputeRefund_Scenarios(t *testing.T) {
	tests := []struct {
		name    string
		role    models.Role
		hours   float64
		wantPct int
		wantAmt int64
	}{
		{"mentee early", models.RoleMentee, 30, 100, 10000},
		{"mentee exactly at free window", models.RoleMentee, 24, 100, 10000},
		{"mentee partial", models.RoleMentee, 3, 70, 7000},
		{"mentee exactly at cutoff", models.RoleMentee, 2, 70, 7000},
		{"mentee late", models.RoleMentee, 1, 10, 1000},
		{"mentee after start", models.RoleMentee, -1, 0, 0},
		{"mentee at start", models.RoleMentee, 0, 0, 0},
		{"mentor late", models.RoleMentor, 0.5, 100, 10000},
		{"mentor after start", models.RoleMentor, -3, 100, 10000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			at := now.Add(time.Duration(tt.hours * float64(time.Hour)))
			got := ComputeRefund(tt.role, 10000, at, now, menteePolicy)
			assert.Equal(t, tt.wantPct, got.Percentage)
			assert.Equal(t, tt.wantAmt, got.AmountCents)
		})
	}
}

func TestComputeRefund_Monotonic(t *testing.T) {
	prev := 101
	for minutes := 60 * 48; minutes >= -60; minutes -= 7 {
		at := now.Add(time.Duration(minutes) * time.Minute)
		got := ComputeRefund(models.RoleMentee, 12345, at, now, menteePolicy)
		assert.LessOrEqual(t, got.Percentage, prev, "refund increased at %d minutes", minutes)
		prev = got.Percentage

		mentor := ComputeRefund(models.RoleMentor, 12345, at, now, menteePolicy)
		assert.Equal(t, 100, mentor.Percentage)
	}
}

func TestAmount_HalfUp(t *testing.T) {
	assert.Equal(t, int64(2), Amount(3, 50)) // 1.5 -> 2
	assert.Equal(t, int64(1), Amount(3, 33)) // 0.99 -> 1
	assert.Equal(t, int64(6913), Amount(9875, 70))
	assert.Equal(t, int64(6913), Amount(9876, 70)) // 6913.2
	assert.Equal(t, int64(0), Amount(0, 100))
	assert.Equal(t, int64(0), Amount(500, 0))
	assert.Equal(t, FullRefund(4321).AmountCents, Amount(4321, 100))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(menteePolicy))

	bad := menteePolicy
	bad.CancellationCutoffHours = 48
	assert.ErrorIs(t, Validate(bad), response.ErrInvalidInput)

	bad = menteePolicy
	bad.PartialRefundPercentage = 120
	assert.ErrorIs(t, Validate(bad), response.ErrInvalidInput)
}

func TestGuards(t *testing.T) {
	g := DefaultGuards()

	assert.NoError(t, g.CheckCancel(models.RoleMentor, now.Add(90*time.Minute), now))
	assert.NoError(t, g.CheckCancel(models.RoleMentee, now.Add(2*time.Hour), now))

	err := g.CheckCancel(models.RoleMentee, now.Add(90*time.Minute), now)
	require.ErrorIs(t, err, response.ErrPolicyViolation)

	var v *ViolationError
	require.True(t, errors.As(err, &v))
	assert.Equal(t, ActionCancel, v.Action)
	assert.Equal(t, 2*time.Hour, v.Cutoff)
	assert.Equal(t, models.RoleMentee, v.Role)

	assert.NoError(t, g.CheckReschedule(models.RoleMentor, now.Add(3*time.Hour), now))
	assert.ErrorIs(t, g.CheckReschedule(models.RoleMentee, now.Add(3*time.Hour), now), response.ErrPolicyViolation)
}

func TestGuards_NoShowWindow(t *testing.T) {
	g := DefaultGuards()
	start := now

	assert.ErrorIs(t, g.CheckNoShow(start, start), response.ErrPolicyViolation, "must be strictly after start")
	assert.ErrorIs(t, g.CheckNoShow(start, start.Add(-time.Minute)), response.ErrPolicyViolation)
	assert.NoError(t, g.CheckNoShow(start, start.Add(time.Minute)))
	assert.NoError(t, g.CheckNoShow(start, start.Add(24*time.Hour)))
	assert.ErrorIs(t, g.CheckNoShow(start, start.Add(24*time.Hour+time.Second)), response.ErrPolicyViolation)
}

func TestCheckStart(t *testing.T) {
	assert.NoError(t, CheckStart(now, now))
	assert.NoError(t, CheckStart(now, now.Add(time.Hour)))
	assert.ErrorIs(t, CheckStart(now, now.Add(-time.Second)), response.ErrPolicyViolation)
}
