package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"session-scheduler/internal/effects"
	"session-scheduler/internal/idempotency"
	"session-scheduler/internal/models"
	"session-scheduler/internal/storage"
	"session-scheduler/pkg/response"
)

type BookRequest struct {
	MentorID  string
	SlotStart time.Time
	// DurationMinutes of 0 means the schedule default. Any other value must
	// match it.
	DurationMinutes int
	MeetingDetails  string
	// IdempotencyKey makes retries of the same booking return the session
	// created by the first attempt.
	IdempotencyKey string
}

// Book reserves a slot for the calling mentee. The availability check and
// the insert happen in one transaction, so of two concurrent bookings for
// the last seat exactly one succeeds and the other gets ErrSlotTaken.
func (s *Service) Book(ctx context.Context, actor models.Actor, req BookRequest) (*models.Session, error) {
	const op = "service.Book"

	log := s.log.With(slog.String("op", op), slog.String("mentor_id", req.MentorID))

	if actor.Role != models.RoleMentee {
		return nil, fmt.Errorf("%s: %w: only mentees can book sessions", op, response.ErrForbidden)
	}
	if actor.UserID == req.MentorID {
		return nil, fmt.Errorf("%s: %w: cannot book a session with yourself", op, response.ErrInvalidInput)
	}
	if req.SlotStart.IsZero() {
		return nil, fmt.Errorf("%s: %w: slot start is required", op, response.ErrInvalidInput)
	}

	var key string
	if req.IdempotencyKey != "" {
		key = actor.UserID + ":" + req.IdempotencyKey
		reserved, prev, err := s.keeper.Reserve(ctx, key, s.idempotencyTTL)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if !reserved {
			if prev == idempotency.Pending {
				return nil, fmt.Errorf("%s: %w: a request with this idempotency key is in progress", op, response.ErrLocked)
			}
			log.Info("replaying booking", slog.String("session_id", prev))
			return s.GetSession(ctx, actor, prev)
		}
	}

	session, requiresConfirmation, err := s.book(ctx, actor, req)
	if key != "" {
		if err != nil {
			if relErr := s.keeper.Release(ctx, key); relErr != nil {
				log.Error("failed to release idempotency key", slog.String("error", relErr.Error()))
			}
		} else if cErr := s.keeper.Complete(ctx, key, session.ID, s.idempotencyTTL); cErr != nil {
			log.Error("failed to record idempotency key", slog.String("error", cErr.Error()))
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("session booked", slog.String("session_id", session.ID))

	event := effects.EventBookingCreated
	if requiresConfirmation {
		event = effects.EventBookingRequested
	}
	s.effects.Charge(session.ID, session.RateCents, session.Currency)
	s.effects.Notify(session.ID, session.MentorID, event, *session)

	return session, nil
}

func (s *Service) book(ctx context.Context, actor models.Actor, req BookRequest) (*models.Session, bool, error) {
	var (
		session              *models.Session
		requiresConfirmation bool
	)

	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		sched, err := tx.GetSchedule(ctx, req.MentorID)
		if err != nil {
			return err
		}

		if req.DurationMinutes != 0 && req.DurationMinutes != sched.DefaultSessionMinutes {
			return fmt.Errorf("%w: mentor offers %d minute sessions", response.ErrPolicyViolation, sched.DefaultSessionMinutes)
		}

		slot, err := s.checkSlot(ctx, tx, *sched, req.SlotStart, "")
		if err != nil {
			return err
		}

		now := s.now()
		session = &models.Session{
			ID:              uuid.NewString(),
			MentorID:        req.MentorID,
			MenteeID:        actor.UserID,
			ScheduledAt:     slot.Start,
			DurationMinutes: sched.DefaultSessionMinutes,
			Status:          models.SessionScheduled,
			RateCents:       price(sched.RateCents, slot.PriceMultiplier),
			Currency:        sched.Currency,
			MeetingDetails:  req.MeetingDetails,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		requiresConfirmation = slot.RequiresConfirmation

		return tx.CreateSession(ctx, session)
	})
	if err != nil {
		return nil, false, conflictAs(err, response.ErrSlotTaken)
	}

	return session, requiresConfirmation, nil
}

// price applies a rule multiplier to the base rate, rounding to whole cents.
func price(rateCents int64, multiplier float64) int64 {
	return int64(math.Round(float64(rateCents) * multiplier))
}
