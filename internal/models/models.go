package models

import (
	"time"
)

type Role string

const (
	RoleMentor Role = "mentor"
	RoleMentee Role = "mentee"
)

func (r Role) Valid() bool {
	return r == RoleMentor || r == RoleMentee
}

// Other returns the counterpart role.
func (r Role) Other() Role {
	if r == RoleMentor {
		return RoleMentee
	}
	return RoleMentor
}

// Actor is the authenticated caller as resolved by the identity gateway.
type Actor struct {
	UserID string
	Role   Role
}

type BookingMode string

const (
	BookingInstant              BookingMode = "instant"
	BookingRequiresConfirmation BookingMode = "requires_confirmation"
)

type BlockKind string

const (
	BlockAvailable BlockKind = "AVAILABLE"
	BlockBreak     BlockKind = "BREAK"
	BlockBuffer    BlockKind = "BUFFER"
	BlockBlocked   BlockKind = "BLOCKED"
)

func (k BlockKind) Valid() bool {
	switch k {
	case BlockAvailable, BlockBreak, BlockBuffer, BlockBlocked:
		return true
	}
	return false
}

// TimeBlock is a labeled sub-interval of a local day. Start and End are
// wall-clock times in the schedule's timezone.
type TimeBlock struct {
	Start                 Clock     `json:"start"`
	End                   Clock     `json:"end"`
	Kind                  BlockKind `json:"kind"`
	MaxConcurrentBookings int       `json:"max_concurrent_bookings,omitempty"`
}

// Capacity is the block's concurrent booking limit, defaulting to 1.
func (b TimeBlock) Capacity() int {
	if b.MaxConcurrentBookings <= 0 {
		return 1
	}
	return b.MaxConcurrentBookings
}

type WeeklyPattern struct {
	DayOfWeek int         `json:"day_of_week"`
	Enabled   bool        `json:"enabled"`
	Blocks    []TimeBlock `json:"blocks"`
}

type AvailabilityException struct {
	ID        string      `json:"id"`
	MentorID  string      `json:"mentor_id"`
	StartDate Date        `json:"start_date"`
	EndDate   Date        `json:"end_date"`
	Kind      BlockKind   `json:"kind"`
	IsFullDay bool        `json:"is_full_day"`
	Blocks    []TimeBlock `json:"blocks,omitempty"`
	Reason    string      `json:"reason,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// Covers reports whether the exception applies to the given civil date.
func (e AvailabilityException) Covers(d Date) bool {
	return !d.Before(e.StartDate) && !e.EndDate.Before(d)
}

type RuleCondition struct {
	DaysOfWeek []int  `json:"days_of_week,omitempty"`
	TimeFrom   *Clock `json:"time_from,omitempty"`
	TimeTo     *Clock `json:"time_to,omitempty"`
	DateFrom   *Date  `json:"date_from,omitempty"`
	DateTo     *Date  `json:"date_to,omitempty"`
}

func (c RuleCondition) IsEmpty() bool {
	return len(c.DaysOfWeek) == 0 && c.TimeFrom == nil && c.TimeTo == nil && c.DateFrom == nil && c.DateTo == nil
}

type RuleAction struct {
	PriceMultiplier      *float64 `json:"price_multiplier,omitempty"`
	MaxBookings          *int     `json:"max_bookings,omitempty"`
	RequiresConfirmation *bool    `json:"requires_confirmation,omitempty"`
}

const (
	// GlobalRulePriority is assigned to rules with an empty condition unless a priority is given.
	GlobalRulePriority = 0
	// DefaultRulePriority is assigned to conditional rules unless a priority is given.
	DefaultRulePriority = 100
)

type AvailabilityRule struct {
	ID        string        `json:"id"`
	MentorID  string        `json:"mentor_id"`
	Name      string        `json:"name,omitempty"`
	Condition RuleCondition `json:"condition"`
	Action    RuleAction    `json:"action"`
	Priority  int           `json:"priority"`
	Active    bool          `json:"active"`
	CreatedAt time.Time     `json:"created_at"`
}

type AvailabilitySchedule struct {
	MentorID               string      `json:"mentor_id"`
	Timezone               string      `json:"timezone"`
	DefaultSessionMinutes  int         `json:"default_session_minutes"`
	BufferMinutes          int         `json:"buffer_minutes"`
	MinAdvanceBookingHours int         `json:"min_advance_booking_hours"`
	MaxAdvanceBookingDays  int         `json:"max_advance_booking_days"`
	BookingMode            BookingMode `json:"booking_mode"`
	RateCents              int64       `json:"rate_cents"`
	Currency               string      `json:"currency"`
	CreatedAt              time.Time   `json:"created_at"`
	UpdatedAt              time.Time   `json:"updated_at"`

	Patterns   []WeeklyPattern         `json:"patterns"`
	Exceptions []AvailabilityException `json:"exceptions"`
	Rules      []AvailabilityRule      `json:"rules"`
}

func (s AvailabilitySchedule) SessionDuration() time.Duration {
	return time.Duration(s.DefaultSessionMinutes) * time.Minute
}

func (s AvailabilitySchedule) Buffer() time.Duration {
	return time.Duration(s.BufferMinutes) * time.Minute
}

// Pattern returns the weekly pattern for a weekday, if one is defined.
func (s AvailabilitySchedule) Pattern(day time.Weekday) (WeeklyPattern, bool) {
	for _, p := range s.Patterns {
		if p.DayOfWeek == int(day) {
			return p, true
		}
	}
	return WeeklyPattern{}, false
}

type SessionStatus string

const (
	SessionScheduled  SessionStatus = "scheduled"
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
	SessionCancelled  SessionStatus = "cancelled"
	SessionNoShow     SessionStatus = "no_show"
)

type Session struct {
	ID                    string        `json:"id"`
	MentorID              string        `json:"mentor_id"`
	MenteeID              string        `json:"mentee_id"`
	ScheduledAt           time.Time     `json:"scheduled_at"`
	DurationMinutes       int           `json:"duration_minutes"`
	Status                SessionStatus `json:"status"`
	RateCents             int64         `json:"rate_cents"`
	Currency              string        `json:"currency"`
	MeetingDetails        string        `json:"meeting_details,omitempty"`
	MentorRescheduleCount int           `json:"mentor_reschedule_count"`
	MenteeRescheduleCount int           `json:"mentee_reschedule_count"`
	CancelledBy           *Role         `json:"cancelled_by,omitempty"`
	CancelledAt           *time.Time    `json:"cancelled_at,omitempty"`
	CancellationReason    string        `json:"cancellation_reason,omitempty"`
	NoShowParty           *Role         `json:"no_show_party,omitempty"`
	NoShowAt              *time.Time    `json:"no_show_at,omitempty"`
	StartedAt             *time.Time    `json:"started_at,omitempty"`
	CompletedAt           *time.Time    `json:"completed_at,omitempty"`
	CreatedAt             time.Time     `json:"created_at"`
	UpdatedAt             time.Time     `json:"updated_at"`
}

func (s Session) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

func (s Session) EndsAt() time.Time {
	return s.ScheduledAt.Add(s.Duration())
}

// RoleOf reports which side of the session the user is on.
func (s Session) RoleOf(userID string) (Role, bool) {
	switch userID {
	case s.MentorID:
		return RoleMentor, true
	case s.MenteeID:
		return RoleMentee, true
	}
	return "", false
}

func (s Session) ParticipantID(role Role) string {
	if role == RoleMentor {
		return s.MentorID
	}
	return s.MenteeID
}

type RescheduleStatus string

const (
	ReschedulePending         RescheduleStatus = "pending"
	RescheduleAccepted        RescheduleStatus = "accepted"
	RescheduleRejected        RescheduleStatus = "rejected"
	RescheduleCounterProposed RescheduleStatus = "counter_proposed"
	RescheduleCancelled       RescheduleStatus = "cancelled"
	RescheduleExpired         RescheduleStatus = "expired"
)

// Active reports whether the request still awaits a response.
func (s RescheduleStatus) Active() bool {
	return s == ReschedulePending || s == RescheduleCounterProposed
}

type RescheduleRequest struct {
	ID                   string           `json:"id"`
	SessionID            string           `json:"session_id"`
	InitiatorRole        Role             `json:"initiator_role"`
	InitiatorID          string           `json:"initiator_id"`
	Status               RescheduleStatus `json:"status"`
	OriginalTime         time.Time        `json:"original_time"`
	ProposedTime         time.Time        `json:"proposed_time"`
	CounterProposedTime  *time.Time       `json:"counter_proposed_time,omitempty"`
	CounterProposedBy    *Role            `json:"counter_proposed_by,omitempty"`
	CounterProposalCount int              `json:"counter_proposal_count"`
	ExpiresAt            time.Time        `json:"expires_at"`
	Reason               string           `json:"reason,omitempty"`
	ResolvedBy           *Role            `json:"resolved_by,omitempty"`
	ResolvedAt           *time.Time       `json:"resolved_at,omitempty"`
	ResolutionNote       string           `json:"resolution_note,omitempty"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

// Proposer is the role whose time is currently on the table.
func (r RescheduleRequest) Proposer() Role {
	if r.CounterProposedBy != nil {
		return *r.CounterProposedBy
	}
	return r.InitiatorRole
}

// Responder is the role expected to answer the current proposal.
func (r RescheduleRequest) Responder() Role {
	return r.Proposer().Other()
}

// CurrentProposal is the time that an accept would apply.
func (r RescheduleRequest) CurrentProposal() time.Time {
	if r.CounterProposedTime != nil {
		return *r.CounterProposedTime
	}
	return r.ProposedTime
}

type CancellationPolicy struct {
	FreeCancellationHours            float64 `json:"free_cancellation_hours" yaml:"free_cancellation_hours"`
	CancellationCutoffHours          float64 `json:"cancellation_cutoff_hours" yaml:"cancellation_cutoff_hours"`
	PartialRefundPercentage          int     `json:"partial_refund_percentage" yaml:"partial_refund_percentage"`
	LateCancellationRefundPercentage int     `json:"late_cancellation_refund_percentage" yaml:"late_cancellation_refund_percentage"`
}

type AuditAction string

const (
	AuditCancel     AuditAction = "cancel"
	AuditReschedule AuditAction = "reschedule"
	AuditNoShow     AuditAction = "no_show"
)

type AuditOutcome string

const (
	OutcomeCancelled       AuditOutcome = "cancelled"
	OutcomeAccepted        AuditOutcome = "accepted"
	OutcomeRejected        AuditOutcome = "rejected"
	OutcomeWithdrawn       AuditOutcome = "withdrawn"
	OutcomeExpired         AuditOutcome = "expired"
	OutcomeCancelledInLieu AuditOutcome = "cancelled_in_lieu"
	OutcomeNoShow          AuditOutcome = "no_show"
	// OutcomeSessionClosed ends a request whose session was cancelled or
	// marked no-show while it was open.
	OutcomeSessionClosed AuditOutcome = "session_closed"
)

// PolicySnapshot freezes the values a decision was made with.
type PolicySnapshot struct {
	Role             Role               `json:"role"`
	Policy           CancellationPolicy `json:"policy"`
	CutoffHours      float64            `json:"cutoff_hours"`
	HoursUntil       float64            `json:"hours_until"`
	RefundPercentage int                `json:"refund_percentage"`
	RefundCents      int64              `json:"refund_cents"`
	CutoffExempt     bool               `json:"cutoff_exempt"`
	RequestID        string             `json:"reschedule_request_id,omitempty"`
}

type SessionAuditLogEntry struct {
	ID             string         `json:"id"`
	SessionID      string         `json:"session_id"`
	ActorID        string         `json:"actor_id"`
	ActorRole      Role           `json:"actor_role"`
	Action         AuditAction    `json:"action"`
	Outcome        AuditOutcome   `json:"outcome"`
	ReasonCategory string         `json:"reason_category,omitempty"`
	ReasonDetails  string         `json:"reason_details,omitempty"`
	BeforeTime     time.Time      `json:"before_time"`
	AfterTime      *time.Time     `json:"after_time,omitempty"`
	PolicySnapshot PolicySnapshot `json:"policy_snapshot"`
	CreatedAt      time.Time      `json:"created_at"`
}
