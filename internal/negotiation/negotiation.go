// Package negotiation implements the reschedule request state machine.
//
// A request is opened by one participant and answered by the other. Each
// counter-proposal swaps who is expected to answer, up to MaxCounterProposals
// rounds. Expiry is evaluated lazily by the caller through IsExpired.
package negotiation

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"session-scheduler/internal/models"
	"session-scheduler/pkg/response"
)

const MaxCounterProposals = 3

type Action string

const (
	ActionAccept         Action = "accept"
	ActionReject         Action = "reject"
	ActionCounterPropose Action = "counter_propose"
	ActionCancelSession  Action = "cancel_session"
)

func (a Action) Valid() bool {
	switch a {
	case ActionAccept, ActionReject, ActionCounterPropose, ActionCancelSession:
		return true
	}
	return false
}

// ExpiresAt never lets a request outlive the session it would move.
func ExpiresAt(now time.Time, ttl time.Duration, sessionAt time.Time) time.Time {
	exp := now.Add(ttl)
	if sessionAt.Before(exp) {
		return sessionAt
	}
	return exp
}

// Open creates a pending request proposing a new time for s.
func Open(s models.Session, initiator models.Role, proposed time.Time, reason string, now time.Time, ttl time.Duration) *models.RescheduleRequest {
	return &models.RescheduleRequest{
		ID:            uuid.NewString(),
		SessionID:     s.ID,
		InitiatorRole: initiator,
		InitiatorID:   s.ParticipantID(initiator),
		Status:        models.ReschedulePending,
		OriginalTime:  s.ScheduledAt,
		ProposedTime:  proposed.UTC(),
		ExpiresAt:     ExpiresAt(now, ttl, s.ScheduledAt),
		Reason:        reason,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func IsExpired(r *models.RescheduleRequest, now time.Time) bool {
	return r.Status.Active() && now.After(r.ExpiresAt)
}

// Expire closes an active request whose deadline has passed.
func Expire(r *models.RescheduleRequest, now time.Time) {
	r.Status = models.RescheduleExpired
	r.ResolvedAt = &now
	r.ResolutionNote = "expired without response"
	r.UpdatedAt = now
}

// Step describes a response to apply to a request.
type Step struct {
	Actor       models.Role
	Action      Action
	CounterTime *time.Time
	Note        string
	Now         time.Time
	TTL         time.Duration
	SessionAt   time.Time
}

// Respond applies a response from the responder. On success the request is
// mutated in place and the audit outcome is returned for terminal steps.
func Respond(r *models.RescheduleRequest, st Step) (models.AuditOutcome, error) {
	if !st.Action.Valid() {
		return "", fmt.Errorf("%w: unknown action %q", response.ErrInvalidInput, st.Action)
	}
	if err := checkActionable(r, st.Now); err != nil {
		return "", err
	}

	if st.Action == ActionCancelSession {
		if st.Actor != models.RoleMentee {
			return "", fmt.Errorf("%w: only the mentee can cancel the session in response", response.ErrForbidden)
		}
		if r.InitiatorRole != models.RoleMentor {
			return "", fmt.Errorf("%w: cancel_session is only available on mentor-initiated requests", response.ErrInvalidTransition)
		}
	}

	if st.Actor != r.Responder() {
		return "", fmt.Errorf("%w: waiting for the %s to respond", response.ErrForbidden, r.Responder())
	}

	switch st.Action {
	case ActionCancelSession:
		resolve(r, models.RescheduleCancelled, st)
		return models.OutcomeCancelledInLieu, nil

	case ActionAccept:
		resolve(r, models.RescheduleAccepted, st)
		return models.OutcomeAccepted, nil

	case ActionReject:
		// Once the rounds are used up the responder must accept or cancel.
		if r.CounterProposalCount >= MaxCounterProposals {
			return "", fmt.Errorf("%w: %d counter-proposals made, accept or cancel the session", response.ErrRoundLimitExceeded, r.CounterProposalCount)
		}
		resolve(r, models.RescheduleRejected, st)
		return models.OutcomeRejected, nil

	case ActionCounterPropose:
		if r.CounterProposalCount >= MaxCounterProposals {
			return "", fmt.Errorf("%w: %d counter-proposals already made", response.ErrRoundLimitExceeded, r.CounterProposalCount)
		}
		if st.CounterTime == nil {
			return "", fmt.Errorf("%w: counter_propose requires a proposed time", response.ErrInvalidInput)
		}
		at := st.CounterTime.UTC()
		by := st.Actor
		r.CounterProposedTime = &at
		r.CounterProposedBy = &by
		r.CounterProposalCount++
		r.Status = models.RescheduleCounterProposed
		r.ExpiresAt = ExpiresAt(st.Now, st.TTL, st.SessionAt)
		r.UpdatedAt = st.Now
		return "", nil
	}

	return "", fmt.Errorf("%w: unknown action %q", response.ErrInvalidInput, st.Action)
}

// Withdraw closes the request on behalf of its initiator.
func Withdraw(r *models.RescheduleRequest, actor models.Role, now time.Time) error {
	if actor != r.InitiatorRole {
		return fmt.Errorf("%w: only the initiator can withdraw a request", response.ErrForbidden)
	}
	if err := checkActionable(r, now); err != nil {
		return err
	}

	resolve(r, models.RescheduleCancelled, Step{Actor: actor, Now: now, Note: "withdrawn by initiator"})
	return nil
}

func checkActionable(r *models.RescheduleRequest, now time.Time) error {
	if r.Status == models.RescheduleExpired || IsExpired(r, now) {
		return fmt.Errorf("%w: expired at %s", response.ErrRequestExpired, r.ExpiresAt.Format(time.RFC3339))
	}
	if !r.Status.Active() {
		return fmt.Errorf("%w: request is already %s", response.ErrInvalidTransition, r.Status)
	}
	return nil
}

func resolve(r *models.RescheduleRequest, status models.RescheduleStatus, st Step) {
	by := st.Actor
	now := st.Now
	r.Status = status
	r.ResolvedBy = &by
	r.ResolvedAt = &now
	r.ResolutionNote = st.Note
	r.UpdatedAt = now
}
