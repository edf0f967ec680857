package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"session-scheduler/internal/availability"
	"session-scheduler/internal/models"
	"session-scheduler/internal/storage"
)

// GetSchedule returns the mentor's schedule with its exceptions and rules.
// Reads are served from a short-lived cache that every write invalidates.
func (s *Service) GetSchedule(ctx context.Context, mentorID string) (*models.AvailabilitySchedule, error) {
	const op = "service.GetSchedule"

	if cached, ok := s.schedules.Get(mentorID); ok {
		sched := cached.(models.AvailabilitySchedule)
		return &sched, nil
	}

	var sched *models.AvailabilitySchedule
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		var err error
		sched, err = tx.GetSchedule(ctx, mentorID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.schedules.SetDefault(mentorID, *sched)
	return sched, nil
}

// SaveSchedule creates or replaces the mentor's settings and weekly patterns.
// Exceptions and rules are managed separately and survive the save.
func (s *Service) SaveSchedule(ctx context.Context, actor models.Actor, in models.AvailabilitySchedule) (*models.AvailabilitySchedule, error) {
	const op = "service.SaveSchedule"

	if err := requireMentor(actor, in.MentorID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if in.BookingMode == "" {
		in.BookingMode = models.BookingInstant
	}
	if err := availability.ValidateSchedule(in); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()
	in.CreatedAt = now
	in.UpdatedAt = now
	in.Exceptions = nil
	in.Rules = nil

	var saved *models.AvailabilitySchedule
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		if err := tx.SaveSchedule(ctx, &in); err != nil {
			return err
		}
		var err error
		saved, err = tx.GetSchedule(ctx, in.MentorID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.schedules.Delete(in.MentorID)
	s.log.Info("schedule saved", slog.String("mentor_id", in.MentorID))

	return saved, nil
}

func (s *Service) AddException(ctx context.Context, actor models.Actor, e models.AvailabilityException) (*models.AvailabilityException, error) {
	const op = "service.AddException"

	if err := requireMentor(actor, e.MentorID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := availability.ValidateException(e); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	e.ID = uuid.NewString()
	e.CreatedAt = s.now()

	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		return tx.CreateException(ctx, &e)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.schedules.Delete(e.MentorID)
	return &e, nil
}

func (s *Service) DeleteException(ctx context.Context, actor models.Actor, mentorID, id string) error {
	const op = "service.DeleteException"

	if err := requireMentor(actor, mentorID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		return tx.DeleteException(ctx, mentorID, id)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.schedules.Delete(mentorID)
	return nil
}

// AddRule stores a pricing or capacity rule. A nil priority takes the
// default for the rule's condition.
func (s *Service) AddRule(ctx context.Context, actor models.Actor, r models.AvailabilityRule, priority *int) (*models.AvailabilityRule, error) {
	const op = "service.AddRule"

	if err := requireMentor(actor, r.MentorID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r.Priority = availability.DefaultPriority(r.Condition)
	if priority != nil {
		r.Priority = *priority
	}
	if err := availability.ValidateRule(r); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r.ID = uuid.NewString()
	r.CreatedAt = s.now()

	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		return tx.CreateRule(ctx, &r)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.schedules.Delete(r.MentorID)
	return &r, nil
}

func (s *Service) DeleteRule(ctx context.Context, actor models.Actor, mentorID, id string) error {
	const op = "service.DeleteRule"

	if err := requireMentor(actor, mentorID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		return tx.DeleteRule(ctx, mentorID, id)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.schedules.Delete(mentorID)
	return nil
}
