package api

import (
	"time"

	"session-scheduler/internal/models"
)

type ScheduleRequest struct {
	Timezone               string                 `json:"timezone"`
	DefaultSessionMinutes  int                    `json:"default_session_minutes"`
	BufferMinutes          int                    `json:"buffer_minutes"`
	MinAdvanceBookingHours int                    `json:"min_advance_booking_hours"`
	MaxAdvanceBookingDays  int                    `json:"max_advance_booking_days"`
	BookingMode            models.BookingMode     `json:"booking_mode"`
	RateCents              int64                  `json:"rate_cents"`
	Currency               string                 `json:"currency"`
	Patterns               []models.WeeklyPattern `json:"patterns"`
}

func (r ScheduleRequest) Schedule(mentorID string) models.AvailabilitySchedule {
	return models.AvailabilitySchedule{
		MentorID:               mentorID,
		Timezone:               r.Timezone,
		DefaultSessionMinutes:  r.DefaultSessionMinutes,
		BufferMinutes:          r.BufferMinutes,
		MinAdvanceBookingHours: r.MinAdvanceBookingHours,
		MaxAdvanceBookingDays:  r.MaxAdvanceBookingDays,
		BookingMode:            r.BookingMode,
		RateCents:              r.RateCents,
		Currency:               r.Currency,
		Patterns:               r.Patterns,
	}
}

type ExceptionRequest struct {
	StartDate models.Date        `json:"start_date"`
	EndDate   models.Date        `json:"end_date"`
	Kind      models.BlockKind   `json:"kind"`
	IsFullDay bool               `json:"is_full_day"`
	Blocks    []models.TimeBlock `json:"blocks,omitempty"`
	Reason    string             `json:"reason,omitempty"`
}

func (r ExceptionRequest) Exception(mentorID string) models.AvailabilityException {
	return models.AvailabilityException{
		MentorID:  mentorID,
		StartDate: r.StartDate,
		EndDate:   r.EndDate,
		Kind:      r.Kind,
		IsFullDay: r.IsFullDay,
		Blocks:    r.Blocks,
		Reason:    r.Reason,
	}
}

type RuleRequest struct {
	Name      string               `json:"name,omitempty"`
	Condition models.RuleCondition `json:"condition"`
	Action    models.RuleAction    `json:"action"`
	// Priority defaults by condition when omitted.
	Priority *int `json:"priority,omitempty"`
	// Active defaults to true.
	Active *bool `json:"active,omitempty"`
}

func (r RuleRequest) Rule(mentorID string) models.AvailabilityRule {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return models.AvailabilityRule{
		MentorID:  mentorID,
		Name:      r.Name,
		Condition: r.Condition,
		Action:    r.Action,
		Active:    active,
	}
}

type BookingRequest struct {
	MentorID        string    `json:"mentor_id"`
	SlotStart       time.Time `json:"slot_start"`
	DurationMinutes int       `json:"duration_minutes,omitempty"`
	MeetingDetails  string    `json:"meeting_details,omitempty"`
}

type CancelRequest struct {
	ReasonCategory string `json:"reason_category"`
	ReasonDetails  string `json:"reason_details,omitempty"`
}

type RescheduleRequest struct {
	ProposedTime time.Time `json:"proposed_time"`
	Reason       string    `json:"reason,omitempty"`
}

type RespondRequest struct {
	Action              string     `json:"action"`
	CounterProposedTime *time.Time `json:"counter_proposed_time,omitempty"`
	Note                string     `json:"note,omitempty"`
}
