package negotiation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"session-scheduler/internal/models"
	"session-scheduler/pkg/response"
)

var (
	now       = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	sessionAt = now.Add(7 * 24 * time.Hour)
	ttl       = 48 * time.Hour
)

func session() models.Session {
	return models.Session{ID: "s1", MentorID: "mentor", MenteeID: "mentee", ScheduledAt: sessionAt, Status: models.SessionScheduled}
}

func open(initiator models.Role) *models.RescheduleRequest {
	return Open(session(), initiator, sessionAt.Add(24*time.Hour), "travel", now, ttl)
}

func step(actor models.Role, action Action) Step {
	return Step{Actor: actor, Action: action, Now: now.Add(time.Hour), TTL: ttl, SessionAt: sessionAt}
}

func counter(actor models.Role, at time.Time) Step {
	st := step(actor, ActionCounterPropose)
	st.CounterTime = &at
	return st
}

func TestOpen(t *testing.T) {
	r := open(models.RoleMentor)

	assert.NotEmpty(t, r.ID)
	assert.Equal(t, models.ReschedulePending, r.Status)
	assert.Equal(t, "mentor", r.InitiatorID)
	assert.Equal(t, sessionAt, r.OriginalTime)
	assert.Equal(t, now.Add(ttl), r.ExpiresAt)
	assert.Equal(t, models.RoleMentee, r.Responder())
}

func TestExpiresAt_CappedBySession(t *testing.T) {
	soon := now.Add(5 * time.Hour)
	assert.Equal(t, soon, ExpiresAt(now, ttl, soon))
	assert.Equal(t, now.Add(ttl), ExpiresAt(now, ttl, sessionAt))
}

func TestRespond_AcceptAndReject(t *testing.T) {
	r := open(models.RoleMentee)
	outcome, err := Respond(r, step(models.RoleMentor, ActionAccept))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAccepted, outcome)
	assert.Equal(t, models.RescheduleAccepted, r.Status)
	assert.Equal(t, models.RoleMentor, *r.ResolvedBy)

	_, err = Respond(r, step(models.RoleMentor, ActionReject))
	assert.ErrorIs(t, err, response.ErrInvalidTransition)

	r = open(models.RoleMentee)
	outcome, err = Respond(r, step(models.RoleMentor, ActionReject))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeRejected, outcome)
}

func TestRespond_OnlyResponder(t *testing.T) {
	r := open(models.RoleMentor)
	_, err := Respond(r, step(models.RoleMentor, ActionAccept))
	assert.ErrorIs(t, err, response.ErrForbidden)
}

func TestRespond_CounterProposalsSwapRoles(t *testing.T) {
	r := open(models.RoleMentor)
	t1 := sessionAt.Add(48 * time.Hour)

	outcome, err := Respond(r, counter(models.RoleMentee, t1))
	require.NoError(t, err)
	assert.Empty(t, outcome)
	assert.Equal(t, models.RescheduleCounterProposed, r.Status)
	assert.Equal(t, 1, r.CounterProposalCount)
	assert.Equal(t, models.RoleMentee, r.Proposer())
	assert.Equal(t, models.RoleMentor, r.Responder())
	assert.Equal(t, t1, r.CurrentProposal())
	assert.Equal(t, now.Add(time.Hour).Add(ttl), r.ExpiresAt)

	// The mentee cannot answer their own counter-proposal.
	_, err = Respond(r, step(models.RoleMentee, ActionAccept))
	assert.ErrorIs(t, err, response.ErrForbidden)

	_, err = Respond(r, step(models.RoleMentor, ActionAccept))
	require.NoError(t, err)
	assert.Equal(t, models.RescheduleAccepted, r.Status)
}

func TestRespond_RoundCap(t *testing.T) {
	r := open(models.RoleMentor)
	responder := models.RoleMentee
	for i := 0; i < MaxCounterProposals; i++ {
		_, err := Respond(r, counter(responder, sessionAt.Add(time.Duration(i+2)*time.Hour)))
		require.NoError(t, err, "round %d", i+1)
		responder = responder.Other()
	}
	assert.Equal(t, MaxCounterProposals, r.CounterProposalCount)

	_, err := Respond(r, counter(responder, sessionAt.Add(10*time.Hour)))
	assert.ErrorIs(t, err, response.ErrRoundLimitExceeded)
	assert.Equal(t, models.RescheduleCounterProposed, r.Status)

	_, err = Respond(r, step(responder, ActionReject))
	assert.ErrorIs(t, err, response.ErrRoundLimitExceeded)
	assert.Equal(t, models.RescheduleCounterProposed, r.Status)

	outcome, err := Respond(r, step(responder, ActionAccept))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAccepted, outcome)
}

func TestRespond_CounterRequiresTime(t *testing.T) {
	r := open(models.RoleMentor)
	_, err := Respond(r, step(models.RoleMentee, ActionCounterPropose))
	assert.ErrorIs(t, err, response.ErrInvalidInput)
}

func TestRespond_CancelSession(t *testing.T) {
	r := open(models.RoleMentor)
	outcome, err := Respond(r, step(models.RoleMentee, ActionCancelSession))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeCancelledInLieu, outcome)
	assert.Equal(t, models.RescheduleCancelled, r.Status)

	// Not offered on mentee-initiated requests.
	r = open(models.RoleMentee)
	_, err = Respond(r, step(models.RoleMentee, ActionCancelSession))
	assert.ErrorIs(t, err, response.ErrInvalidTransition)

	// Never available to the mentor.
	r = open(models.RoleMentor)
	_, err = Respond(r, step(models.RoleMentor, ActionCancelSession))
	assert.ErrorIs(t, err, response.ErrForbidden)

	// Only on the mentee's turn.
	r = open(models.RoleMentor)
	_, err = Respond(r, counter(models.RoleMentee, sessionAt.Add(2*time.Hour)))
	require.NoError(t, err)
	require.Equal(t, models.RoleMentor, r.Responder())
	_, err = Respond(r, step(models.RoleMentee, ActionCancelSession))
	assert.ErrorIs(t, err, response.ErrForbidden)
	assert.Equal(t, models.RescheduleCounterProposed, r.Status)

	_, err = Respond(r, counter(models.RoleMentor, sessionAt.Add(3*time.Hour)))
	require.NoError(t, err)
	outcome, err = Respond(r, step(models.RoleMentee, ActionCancelSession))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeCancelledInLieu, outcome)
}

func TestExpiry(t *testing.T) {
	r := open(models.RoleMentor)
	late := r.ExpiresAt.Add(time.Second)

	assert.False(t, IsExpired(r, r.ExpiresAt))
	assert.True(t, IsExpired(r, late))

	st := step(models.RoleMentee, ActionAccept)
	st.Now = late
	_, err := Respond(r, st)
	assert.ErrorIs(t, err, response.ErrRequestExpired)
	assert.Equal(t, models.ReschedulePending, r.Status, "expiry is persisted by the caller")

	Expire(r, late)
	assert.Equal(t, models.RescheduleExpired, r.Status)
	assert.False(t, IsExpired(r, late))

	_, err = Respond(r, step(models.RoleMentee, ActionAccept))
	assert.ErrorIs(t, err, response.ErrRequestExpired)
	assert.ErrorIs(t, Withdraw(r, models.RoleMentor, late), response.ErrRequestExpired)
}

func TestWithdraw(t *testing.T) {
	r := open(models.RoleMentee)
	assert.ErrorIs(t, Withdraw(r, models.RoleMentor, now), response.ErrForbidden)

	_, err := Respond(r, counter(models.RoleMentor, sessionAt.Add(3*time.Hour)))
	require.NoError(t, err)

	// The original initiator may withdraw even while answering a counter.
	require.NoError(t, Withdraw(r, models.RoleMentee, now.Add(2*time.Hour)))
	assert.Equal(t, models.RescheduleCancelled, r.Status)

	assert.ErrorIs(t, Withdraw(r, models.RoleMentee, now.Add(3*time.Hour)), response.ErrInvalidTransition)
}

func TestRespond_UnknownAction(t *testing.T) {
	r := open(models.RoleMentor)
	_, err := Respond(r, step(models.RoleMentee, "shrug"))
	assert.ErrorIs(t, err, response.ErrInvalidInput)
}
