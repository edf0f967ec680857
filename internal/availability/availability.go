// Package availability validates a mentor's availability data before it is stored.
package availability

import (
	"fmt"
	"sort"
	"time"

	"session-scheduler/internal/models"
	"session-scheduler/pkg/response"
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", response.ErrInvalidInput, fmt.Sprintf(format, args...))
}

// ValidateSchedule checks the schedule settings and its weekly patterns.
// Exceptions and rules are validated on their own when they are added.
func ValidateSchedule(s models.AvailabilitySchedule) error {
	if s.MentorID == "" {
		return invalid("mentor_id is required")
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil || s.Timezone == "" {
		return invalid("unknown timezone %q", s.Timezone)
	}
	if s.DefaultSessionMinutes <= 0 {
		return invalid("default_session_minutes must be positive")
	}
	if s.BufferMinutes <= 0 {
		return invalid("buffer_minutes must be positive")
	}
	if s.MinAdvanceBookingHours < 0 {
		return invalid("min_advance_booking_hours must not be negative")
	}
	if s.MaxAdvanceBookingDays <= 0 {
		return invalid("max_advance_booking_days must be positive")
	}
	switch s.BookingMode {
	case models.BookingInstant, models.BookingRequiresConfirmation:
	default:
		return invalid("unknown booking_mode %q", s.BookingMode)
	}
	if s.RateCents < 0 {
		return invalid("rate_cents must not be negative")
	}

	seen := make(map[int]bool, len(s.Patterns))
	for _, p := range s.Patterns {
		if p.DayOfWeek < 0 || p.DayOfWeek > 6 {
			return invalid("day_of_week %d out of range", p.DayOfWeek)
		}
		if seen[p.DayOfWeek] {
			return invalid("duplicate pattern for day_of_week %d", p.DayOfWeek)
		}
		seen[p.DayOfWeek] = true

		if err := ValidateBlocks(p.Blocks); err != nil {
			return fmt.Errorf("day_of_week %d: %w", p.DayOfWeek, err)
		}
	}

	return nil
}

// ValidateBlocks checks that every block is well formed and that no two blocks overlap.
func ValidateBlocks(blocks []models.TimeBlock) error {
	sorted := make([]models.TimeBlock, len(blocks))
	copy(sorted, blocks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	for i, b := range sorted {
		if !b.Kind.Valid() {
			return invalid("unknown block kind %q", b.Kind)
		}
		if !b.Start.Valid() || !b.End.Valid() || b.Start >= b.End {
			return invalid("block %s-%s is not a valid interval", b.Start, b.End)
		}
		if b.MaxConcurrentBookings < 0 {
			return invalid("max_concurrent_bookings must not be negative")
		}
		if i > 0 && sorted[i-1].End > b.Start {
			return invalid("blocks %s-%s and %s-%s overlap", sorted[i-1].Start, sorted[i-1].End, b.Start, b.End)
		}
	}

	return nil
}

func ValidateException(e models.AvailabilityException) error {
	if e.StartDate.IsZero() || e.EndDate.IsZero() {
		return invalid("start_date and end_date are required")
	}
	if e.EndDate.Before(e.StartDate) {
		return invalid("end_date %s is before start_date %s", e.EndDate, e.StartDate)
	}
	if !e.Kind.Valid() {
		return invalid("unknown exception kind %q", e.Kind)
	}
	if e.IsFullDay {
		if len(e.Blocks) > 0 {
			return invalid("full-day exception must not carry blocks")
		}
		return nil
	}
	if len(e.Blocks) == 0 {
		return invalid("partial exception requires at least one block")
	}
	return ValidateBlocks(e.Blocks)
}

// ValidateRule checks a rule's condition and action.
func ValidateRule(r models.AvailabilityRule) error {
	c := r.Condition
	for _, d := range c.DaysOfWeek {
		if d < 0 || d > 6 {
			return invalid("condition day_of_week %d out of range", d)
		}
	}
	if c.TimeFrom != nil && !c.TimeFrom.Valid() {
		return invalid("condition time_from out of range")
	}
	if c.TimeTo != nil && !c.TimeTo.Valid() {
		return invalid("condition time_to out of range")
	}
	if c.TimeFrom != nil && c.TimeTo != nil && *c.TimeFrom >= *c.TimeTo {
		return invalid("condition time_from must be before time_to")
	}
	if c.DateFrom != nil && c.DateTo != nil && c.DateTo.Before(*c.DateFrom) {
		return invalid("condition date_to is before date_from")
	}

	a := r.Action
	if a.PriceMultiplier == nil && a.MaxBookings == nil && a.RequiresConfirmation == nil {
		return invalid("rule action is empty")
	}
	if a.PriceMultiplier != nil && *a.PriceMultiplier < 0 {
		return invalid("price_multiplier must not be negative")
	}
	if a.MaxBookings != nil && *a.MaxBookings < 0 {
		return invalid("max_bookings must not be negative")
	}

	return nil
}

// DefaultPriority is the priority a rule receives when none was given explicitly.
// Rules that match every instant rank below all conditional rules.
func DefaultPriority(c models.RuleCondition) int {
	if c.IsEmpty() {
		return models.GlobalRulePriority
	}
	return models.DefaultRulePriority
}
