// Package slots turns a mentor's availability into concrete bookable slots.
//
// Resolve is pure: given the same schedule, bookings and clock it always
// returns the same slots in the same order.
package slots

import (
	"fmt"
	"sort"
	"time"

	"session-scheduler/internal/models"
	"session-scheduler/pkg/response"
)

type Slot struct {
	Start                time.Time `json:"start"`
	End                  time.Time `json:"end"`
	ViewerStart          time.Time `json:"viewer_start"`
	ViewerEnd            time.Time `json:"viewer_end"`
	RequiresConfirmation bool      `json:"requires_confirmation"`
	PriceMultiplier      float64   `json:"price_multiplier"`
	Capacity             int       `json:"capacity"`
	Booked               int       `json:"booked"`
}

type Input struct {
	Schedule   models.AvailabilitySchedule
	Bookings   []models.Session
	RangeStart time.Time
	RangeEnd   time.Time
	Now        time.Time
	// Viewer only affects ViewerStart and ViewerEnd. Nil means UTC.
	Viewer *time.Location
	// IgnoreSessionID excludes one session from the overlap check, so a
	// session being rescheduled does not block its own neighbourhood.
	IgnoreSessionID string
}

type busy struct {
	start, end time.Time
}

// Resolve returns the bookable slots starting in [RangeStart, RangeEnd),
// ascending by start.
func Resolve(in Input) ([]Slot, error) {
	const op = "slots.Resolve"

	loc, err := time.LoadLocation(in.Schedule.Timezone)
	if err != nil || in.Schedule.Timezone == "" {
		return nil, fmt.Errorf("%s: %w: unknown timezone %q", op, response.ErrInvalidInput, in.Schedule.Timezone)
	}
	if !in.RangeEnd.After(in.RangeStart) {
		return nil, fmt.Errorf("%s: %w: range end must be after range start", op, response.ErrInvalidInput)
	}
	if in.Schedule.DefaultSessionMinutes <= 0 || in.Schedule.BufferMinutes <= 0 {
		return nil, fmt.Errorf("%s: %w: session duration and buffer must be positive", op, response.ErrInvalidInput)
	}

	viewer := in.Viewer
	if viewer == nil {
		viewer = time.UTC
	}

	earliest := in.Now.Add(time.Duration(in.Schedule.MinAdvanceBookingHours) * time.Hour)
	latest := in.Now.Add(time.Duration(in.Schedule.MaxAdvanceBookingDays) * 24 * time.Hour)

	lo, hi := in.RangeStart, in.RangeEnd
	if earliest.After(lo) {
		lo = earliest
	}
	if latest.Before(hi) {
		hi = latest
	}
	if hi.Before(lo) {
		return []Slot{}, nil
	}

	duration := in.Schedule.SessionDuration()
	buffer := in.Schedule.Buffer()
	step := duration + buffer

	rules := activeRules(in.Schedule.Rules)
	exceptions := latestFirst(in.Schedule.Exceptions)
	taken := busyIntervals(in.Bookings, buffer, in.IgnoreSessionID)

	seen := make(map[int64]bool)
	result := []Slot{}

	first := models.DateOf(lo.In(loc))
	last := models.DateOf(hi.In(loc))

	for day := first; !day.After(last); day = day.AddDays(1) {
		for _, block := range blocksFor(in.Schedule, exceptions, day) {
			if block.Kind != models.BlockAvailable {
				continue
			}

			blockStart := block.Start.On(day, loc)
			blockEnd := block.End.On(day, loc)

			for start := blockStart; !start.Add(step).After(blockEnd); start = start.Add(step) {
				if start.Before(in.RangeStart) || !start.Before(in.RangeEnd) {
					continue
				}
				if start.Before(earliest) || start.After(latest) {
					continue
				}
				key := start.UnixNano()
				if seen[key] {
					continue
				}

				slot := Slot{
					Start:                start.UTC(),
					End:                  start.Add(duration).UTC(),
					RequiresConfirmation: in.Schedule.BookingMode == models.BookingRequiresConfirmation,
					PriceMultiplier:      1,
					Capacity:             block.Capacity(),
				}

				if rule, ok := winningRule(rules, start.In(loc)); ok {
					applyAction(&slot, rule.Action)
				}

				slot.Booked = overlapping(taken, busy{start: slot.Start, end: slot.End.Add(buffer)})
				if slot.Booked >= slot.Capacity {
					continue
				}

				slot.ViewerStart = slot.Start.In(viewer)
				slot.ViewerEnd = slot.End.In(viewer)

				seen[key] = true
				result = append(result, slot)
			}
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Start.Before(result[j].Start) })

	return result, nil
}

// Find returns the slot starting exactly at start.
func Find(slots []Slot, start time.Time) (Slot, bool) {
	for _, s := range slots {
		if s.Start.Equal(start) {
			return s, true
		}
	}
	return Slot{}, false
}

// blocksFor returns the time blocks in force on a local date. A covering
// exception replaces the weekly pattern entirely.
func blocksFor(s models.AvailabilitySchedule, exceptions []models.AvailabilityException, day models.Date) []models.TimeBlock {
	for _, e := range exceptions {
		if !e.Covers(day) {
			continue
		}
		if e.IsFullDay {
			return nil
		}
		return e.Blocks
	}

	p, ok := s.Pattern(day.Weekday())
	if !ok || !p.Enabled {
		return nil
	}
	return p.Blocks
}

func latestFirst(in []models.AvailabilityException) []models.AvailabilityException {
	out := make([]models.AvailabilityException, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// activeRules returns the active rules ordered so that the first match wins:
// priority descending, then newest first.
func activeRules(in []models.AvailabilityRule) []models.AvailabilityRule {
	out := make([]models.AvailabilityRule, 0, len(in))
	for _, r := range in {
		if r.Active {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func winningRule(rules []models.AvailabilityRule, local time.Time) (models.AvailabilityRule, bool) {
	for _, r := range rules {
		if matches(r.Condition, local) {
			return r, true
		}
	}
	return models.AvailabilityRule{}, false
}

func matches(c models.RuleCondition, local time.Time) bool {
	if len(c.DaysOfWeek) > 0 {
		found := false
		for _, d := range c.DaysOfWeek {
			if d == int(local.Weekday()) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	clock := models.ClockOf(local)
	if c.TimeFrom != nil && clock < *c.TimeFrom {
		return false
	}
	if c.TimeTo != nil && clock >= *c.TimeTo {
		return false
	}

	date := models.DateOf(local)
	if c.DateFrom != nil && date.Before(*c.DateFrom) {
		return false
	}
	if c.DateTo != nil && date.After(*c.DateTo) {
		return false
	}

	return true
}

func applyAction(slot *Slot, a models.RuleAction) {
	if a.PriceMultiplier != nil {
		slot.PriceMultiplier = *a.PriceMultiplier
	}
	if a.MaxBookings != nil {
		slot.Capacity = *a.MaxBookings
	}
	if a.RequiresConfirmation != nil {
		slot.RequiresConfirmation = *a.RequiresConfirmation
	}
}

func busyIntervals(sessions []models.Session, buffer time.Duration, ignore string) []busy {
	out := make([]busy, 0, len(sessions))
	for _, s := range sessions {
		if s.Status == models.SessionCancelled || (ignore != "" && s.ID == ignore) {
			continue
		}
		out = append(out, busy{start: s.ScheduledAt, end: s.EndsAt().Add(buffer)})
	}
	return out
}

func overlapping(taken []busy, b busy) int {
	n := 0
	for _, t := range taken {
		if t.start.Before(b.end) && b.start.Before(t.end) {
			n++
		}
	}
	return n
}
