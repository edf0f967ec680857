package service

import (
	"context"
	"fmt"
	"time"

	"session-scheduler/internal/models"
	"session-scheduler/internal/slots"
	"session-scheduler/internal/storage"
	"session-scheduler/pkg/response"
)

// MaxSlotRange bounds a single slot listing.
const MaxSlotRange = 62 * 24 * time.Hour

// ListSlots returns the mentor's free slots starting in [from, to), with
// viewer-local times in viewerTZ (UTC when empty).
func (s *Service) ListSlots(ctx context.Context, mentorID string, from, to time.Time, viewerTZ string) ([]slots.Slot, error) {
	const op = "service.ListSlots"

	viewer := time.UTC
	if viewerTZ != "" {
		loc, err := time.LoadLocation(viewerTZ)
		if err != nil {
			return nil, fmt.Errorf("%s: %w: unknown timezone %q", op, response.ErrInvalidInput, viewerTZ)
		}
		viewer = loc
	}
	if !to.After(from) {
		return nil, fmt.Errorf("%s: %w: 'to' must be after 'from'", op, response.ErrInvalidInput)
	}
	if to.Sub(from) > MaxSlotRange {
		return nil, fmt.Errorf("%s: %w: range is longer than %d days", op, response.ErrInvalidInput, int(MaxSlotRange.Hours()/24))
	}

	sched, err := s.GetSchedule(ctx, mentorID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lo, hi := bookingWindow(*sched, from, to)

	var bookings []models.Session
	err = s.store.WithTx(ctx, func(tx storage.Tx) error {
		var err error
		bookings, err = tx.ListActiveSessions(ctx, mentorID, lo, hi)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out, err := slots.Resolve(slots.Input{
		Schedule:   *sched,
		Bookings:   bookings,
		RangeStart: from,
		RangeEnd:   to,
		Now:        s.now(),
		Viewer:     viewer,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// bookingWindow widens [from, to) by everything that can overlap a slot
// starting inside it, buffers included.
func bookingWindow(sched models.AvailabilitySchedule, from, to time.Time) (time.Time, time.Time) {
	buffer := sched.Buffer()
	return from.Add(-buffer), to.Add(sched.SessionDuration() + buffer)
}

// checkSlot confirms that start is an offered slot with room left.
// A start the schedule never offers is a policy violation; an offered slot
// that is full is taken.
func (s *Service) checkSlot(ctx context.Context, tx storage.Tx, sched models.AvailabilitySchedule, start time.Time, ignoreSessionID string) (slots.Slot, error) {
	start = start.UTC()
	in := slots.Input{
		Schedule:        sched,
		RangeStart:      start,
		RangeEnd:        start.Add(time.Minute),
		Now:             s.now(),
		IgnoreSessionID: ignoreSessionID,
	}

	offered, err := slots.Resolve(in)
	if err != nil {
		return slots.Slot{}, err
	}
	if _, ok := slots.Find(offered, start); !ok {
		return slots.Slot{}, fmt.Errorf("%w: %s is not an offered slot", response.ErrPolicyViolation, start.Format(time.RFC3339))
	}

	lo, hi := bookingWindow(sched, start, in.RangeEnd)
	in.Bookings, err = tx.ListActiveSessions(ctx, sched.MentorID, lo, hi)
	if err != nil {
		return slots.Slot{}, err
	}

	free, err := slots.Resolve(in)
	if err != nil {
		return slots.Slot{}, err
	}
	slot, ok := slots.Find(free, start)
	if !ok {
		return slots.Slot{}, fmt.Errorf("%w: %s", response.ErrSlotTaken, start.Format(time.RFC3339))
	}

	return slot, nil
}
