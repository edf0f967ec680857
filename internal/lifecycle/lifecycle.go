// Package lifecycle owns the session state machine and the guards on each transition.
package lifecycle

import (
	"fmt"
	"time"

	"session-scheduler/internal/models"
	"session-scheduler/internal/policy"
	"session-scheduler/pkg/response"
)

var validTransitions = map[models.SessionStatus][]models.SessionStatus{
	models.SessionScheduled:  {models.SessionInProgress, models.SessionCancelled, models.SessionNoShow},
	models.SessionInProgress: {models.SessionCompleted},
	models.SessionCompleted:  {},
	models.SessionCancelled:  {},
	models.SessionNoShow:     {},
}

func CanTransition(from, to models.SessionStatus) bool {
	for _, t := range validTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

func IsTerminal(s models.SessionStatus) bool {
	next, ok := validTransitions[s]
	return ok && len(next) == 0
}

func transitionError(from, to models.SessionStatus) error {
	return fmt.Errorf("%w: session %s -> %s", response.ErrInvalidTransition, from, to)
}

type Controller struct {
	guards   policy.Guards
	policies policy.Policies
}

func New(guards policy.Guards, policies policy.Policies) *Controller {
	return &Controller{guards: guards, policies: policies}
}

func (c *Controller) Guards() policy.Guards {
	return c.guards
}

func (c *Controller) Policies() policy.Policies {
	return c.policies
}

// Start moves a scheduled session to in_progress. Starting a session that is
// already in progress is a no-op and reports changed == false.
func (c *Controller) Start(s *models.Session, now time.Time) (bool, error) {
	if s.Status == models.SessionInProgress {
		return false, nil
	}
	if !CanTransition(s.Status, models.SessionInProgress) {
		return false, transitionError(s.Status, models.SessionInProgress)
	}
	if err := policy.CheckStart(s.ScheduledAt, now); err != nil {
		return false, err
	}

	s.Status = models.SessionInProgress
	s.StartedAt = &now
	s.UpdatedAt = now
	return true, nil
}

func (c *Controller) Complete(s *models.Session, now time.Time) error {
	if !CanTransition(s.Status, models.SessionCompleted) {
		return transitionError(s.Status, models.SessionCompleted)
	}

	s.Status = models.SessionCompleted
	s.CompletedAt = &now
	s.UpdatedAt = now
	return nil
}

// Cancel cancels a scheduled session and returns the refund decision.
// An exempt cancellation skips the cutoff and refunds in full; it is used when
// the mentee cancels in response to a mentor-initiated reschedule.
func (c *Controller) Cancel(s *models.Session, role models.Role, reason string, now time.Time, exempt bool) (models.PolicySnapshot, error) {
	if !CanTransition(s.Status, models.SessionCancelled) {
		return models.PolicySnapshot{}, transitionError(s.Status, models.SessionCancelled)
	}

	cutoff := c.guards.CancelCutoff(role)
	if !exempt {
		if err := c.guards.CheckCancel(role, s.ScheduledAt, now); err != nil {
			return models.PolicySnapshot{}, err
		}
	}

	p := c.policies.For(role)
	refund := policy.ComputeRefund(role, s.RateCents, s.ScheduledAt, now, p)
	if exempt {
		refund = policy.FullRefund(s.RateCents)
	}

	s.Status = models.SessionCancelled
	s.CancelledBy = &role
	s.CancelledAt = &now
	s.CancellationReason = reason
	s.UpdatedAt = now

	return models.PolicySnapshot{
		Role:             role,
		Policy:           p,
		CutoffHours:      cutoff.Hours(),
		HoursUntil:       policy.HoursUntil(s.ScheduledAt, now),
		RefundPercentage: refund.Percentage,
		RefundCents:      refund.AmountCents,
		CutoffExempt:     exempt,
	}, nil
}

// MarkNoShow records that the mentee did not attend. Only the mentor may report it.
func (c *Controller) MarkNoShow(s *models.Session, role models.Role, now time.Time) (models.PolicySnapshot, error) {
	if role != models.RoleMentor {
		return models.PolicySnapshot{}, fmt.Errorf("%w: only the mentor can report a no-show", response.ErrForbidden)
	}
	if !CanTransition(s.Status, models.SessionNoShow) {
		return models.PolicySnapshot{}, transitionError(s.Status, models.SessionNoShow)
	}
	if err := c.guards.CheckNoShow(s.ScheduledAt, now); err != nil {
		return models.PolicySnapshot{}, err
	}

	party := models.RoleMentee
	s.Status = models.SessionNoShow
	s.NoShowParty = &party
	s.NoShowAt = &now
	s.UpdatedAt = now

	return models.PolicySnapshot{
		Role:        role,
		Policy:      c.policies.For(models.RoleMentee),
		CutoffHours: c.guards.NoShowWindow.Hours(),
		HoursUntil:  policy.HoursUntil(s.ScheduledAt, now),
	}, nil
}

// CheckReschedule reports whether role may still move the session.
func (c *Controller) CheckReschedule(s *models.Session, role models.Role, now time.Time) error {
	if s.Status != models.SessionScheduled {
		return fmt.Errorf("%w: cannot reschedule a %s session", response.ErrInvalidTransition, s.Status)
	}
	return c.guards.CheckReschedule(role, s.ScheduledAt, now)
}

// Reschedule moves the session to at and counts the change against initiator.
// Callers reach it only through an accepted reschedule request. The
// initiator's cutoff applies at the moment the time changes, not only when
// the request was opened.
func (c *Controller) Reschedule(s *models.Session, initiator models.Role, at, now time.Time) error {
	if err := c.CheckReschedule(s, initiator, now); err != nil {
		return err
	}

	s.ScheduledAt = at.UTC()
	if initiator == models.RoleMentor {
		s.MentorRescheduleCount++
	} else {
		s.MenteeRescheduleCount++
	}
	s.UpdatedAt = now
	return nil
}

// Snapshot captures the reschedule policy in force for role.
func (c *Controller) Snapshot(s models.Session, role models.Role, now time.Time) models.PolicySnapshot {
	return models.PolicySnapshot{
		Role:        role,
		Policy:      c.policies.For(role),
		CutoffHours: c.guards.RescheduleCutoff(role).Hours(),
		HoursUntil:  policy.HoursUntil(s.ScheduledAt, now),
	}
}
