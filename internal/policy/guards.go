package policy

import (
	"fmt"
	"time"

	"session-scheduler/internal/models"
	"session-scheduler/pkg/response"
)

type Action string

const (
	ActionCancel     Action = "cancel"
	ActionReschedule Action = "reschedule"
	ActionNoShow     Action = "no_show"
	ActionStart      Action = "start"
)

// ViolationError reports which lead-time guard was missed.
type ViolationError struct {
	Action Action
	Role   models.Role
	// Cutoff is the required lead time before the session, or for no-show
	// the window after it.
	Cutoff   time.Duration
	LeadTime time.Duration
}

func (e *ViolationError) Error() string {
	switch e.Action {
	case ActionNoShow:
		return fmt.Sprintf("no-show can only be reported within %s after the session start (elapsed %s)",
			e.Cutoff, (-e.LeadTime).Round(time.Minute))
	case ActionStart:
		return fmt.Sprintf("session starts in %s", e.LeadTime.Round(time.Minute))
	}
	return fmt.Sprintf("%s by %s requires at least %s notice (have %s)",
		e.Action, e.Role, e.Cutoff, e.LeadTime.Round(time.Minute))
}

func (e *ViolationError) Unwrap() error {
	return response.ErrPolicyViolation
}

type Guards struct {
	MentorCancelCutoff     time.Duration `yaml:"mentor_cancel" env-default:"1h"`
	MenteeCancelCutoff     time.Duration `yaml:"mentee_cancel" env-default:"2h"`
	MentorRescheduleCutoff time.Duration `yaml:"mentor_reschedule" env-default:"2h"`
	MenteeRescheduleCutoff time.Duration `yaml:"mentee_reschedule" env-default:"4h"`
	NoShowWindow           time.Duration `yaml:"no_show_window" env-default:"24h"`
}

func DefaultGuards() Guards {
	return Guards{
		MentorCancelCutoff:     time.Hour,
		MenteeCancelCutoff:     2 * time.Hour,
		MentorRescheduleCutoff: 2 * time.Hour,
		MenteeRescheduleCutoff: 4 * time.Hour,
		NoShowWindow:           24 * time.Hour,
	}
}

func (g Guards) CancelCutoff(role models.Role) time.Duration {
	if role == models.RoleMentor {
		return g.MentorCancelCutoff
	}
	return g.MenteeCancelCutoff
}

func (g Guards) RescheduleCutoff(role models.Role) time.Duration {
	if role == models.RoleMentor {
		return g.MentorRescheduleCutoff
	}
	return g.MenteeRescheduleCutoff
}

func (g Guards) CheckCancel(role models.Role, scheduledAt, now time.Time) error {
	return checkLead(ActionCancel, role, g.CancelCutoff(role), scheduledAt, now)
}

// CheckReschedule is measured against the session's current time.
func (g Guards) CheckReschedule(role models.Role, scheduledAt, now time.Time) error {
	return checkLead(ActionReschedule, role, g.RescheduleCutoff(role), scheduledAt, now)
}

// CheckNoShow allows reporting strictly after the start and within the window.
func (g Guards) CheckNoShow(scheduledAt, now time.Time) error {
	lead := scheduledAt.Sub(now)
	if !now.After(scheduledAt) || now.Sub(scheduledAt) > g.NoShowWindow {
		return &ViolationError{Action: ActionNoShow, Role: models.RoleMentor, Cutoff: g.NoShowWindow, LeadTime: lead}
	}
	return nil
}

func CheckStart(scheduledAt, now time.Time) error {
	if now.Before(scheduledAt) {
		return &ViolationError{Action: ActionStart, LeadTime: scheduledAt.Sub(now)}
	}
	return nil
}

func checkLead(action Action, role models.Role, cutoff time.Duration, scheduledAt, now time.Time) error {
	lead := scheduledAt.Sub(now)
	if lead < cutoff {
		return &ViolationError{Action: action, Role: role, Cutoff: cutoff, LeadTime: lead}
	}
	return nil
}
