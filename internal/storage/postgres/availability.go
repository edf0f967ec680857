package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"session-scheduler/internal/models"
	"session-scheduler/pkg/response"
)

func (t *tx) GetSchedule(ctx context.Context, mentorID string) (*models.AvailabilitySchedule, error) {
	const op = "storage.postgres.GetSchedule"

	s := models.AvailabilitySchedule{MentorID: mentorID}

	err := t.tx.QueryRowContext(ctx, `
		SELECT timezone, default_session_minutes, buffer_minutes, min_advance_booking_hours,
			max_advance_booking_days, booking_mode, rate_cents, currency, created_at, updated_at
		FROM availability_schedules
		WHERE mentor_id = $1`, mentorID,
	).Scan(
		&s.Timezone, &s.DefaultSessionMinutes, &s.BufferMinutes, &s.MinAdvanceBookingHours,
		&s.MaxAdvanceBookingDays, &s.BookingMode, &s.RateCents, &s.Currency, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if s.Patterns, err = t.listPatterns(ctx, mentorID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if s.Exceptions, err = t.listExceptions(ctx, mentorID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if s.Rules, err = t.listRules(ctx, mentorID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &s, nil
}

func (t *tx) listPatterns(ctx context.Context, mentorID string) ([]models.WeeklyPattern, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT day_of_week, enabled, blocks
		FROM weekly_patterns
		WHERE mentor_id = $1
		ORDER BY day_of_week`, mentorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.WeeklyPattern
	for rows.Next() {
		var p models.WeeklyPattern
		var blocks []byte
		if err := rows.Scan(&p.DayOfWeek, &p.Enabled, &blocks); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(blocks, &p.Blocks); err != nil {
			return nil, fmt.Errorf("pattern %d blocks: %w", p.DayOfWeek, err)
		}
		out = append(out, p)
	}

	return out, rows.Err()
}

func (t *tx) listExceptions(ctx context.Context, mentorID string) ([]models.AvailabilityException, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, start_date, end_date, kind, is_full_day, blocks, reason, created_at
		FROM availability_exceptions
		WHERE mentor_id = $1
		ORDER BY created_at, id`, mentorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.AvailabilityException
	for rows.Next() {
		e := models.AvailabilityException{MentorID: mentorID}
		var start, end time.Time
		var blocks []byte
		if err := rows.Scan(&e.ID, &start, &end, &e.Kind, &e.IsFullDay, &blocks, &e.Reason, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.StartDate, e.EndDate = models.DateOf(start), models.DateOf(end)
		if err := json.Unmarshal(blocks, &e.Blocks); err != nil {
			return nil, fmt.Errorf("exception %s blocks: %w", e.ID, err)
		}
		out = append(out, e)
	}

	return out, rows.Err()
}

func (t *tx) listRules(ctx context.Context, mentorID string) ([]models.AvailabilityRule, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, name, condition, action, priority, active, created_at
		FROM availability_rules
		WHERE mentor_id = $1
		ORDER BY priority DESC, created_at DESC`, mentorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.AvailabilityRule
	for rows.Next() {
		r := models.AvailabilityRule{MentorID: mentorID}
		var cond, action []byte
		if err := rows.Scan(&r.ID, &r.Name, &cond, &action, &r.Priority, &r.Active, &r.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(cond, &r.Condition); err != nil {
			return nil, fmt.Errorf("rule %s condition: %w", r.ID, err)
		}
		if err := json.Unmarshal(action, &r.Action); err != nil {
			return nil, fmt.Errorf("rule %s action: %w", r.ID, err)
		}
		out = append(out, r)
	}

	return out, rows.Err()
}

// SaveSchedule upserts the schedule settings and replaces its weekly patterns.
func (t *tx) SaveSchedule(ctx context.Context, s *models.AvailabilitySchedule) error {
	const op = "storage.postgres.SaveSchedule"

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO availability_schedules (mentor_id, timezone, default_session_minutes, buffer_minutes,
			min_advance_booking_hours, max_advance_booking_days, booking_mode, rate_cents, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (mentor_id) DO UPDATE
		SET timezone = EXCLUDED.timezone,
			default_session_minutes = EXCLUDED.default_session_minutes,
			buffer_minutes = EXCLUDED.buffer_minutes,
			min_advance_booking_hours = EXCLUDED.min_advance_booking_hours,
			max_advance_booking_days = EXCLUDED.max_advance_booking_days,
			booking_mode = EXCLUDED.booking_mode,
			rate_cents = EXCLUDED.rate_cents,
			currency = EXCLUDED.currency,
			updated_at = EXCLUDED.updated_at`,
		s.MentorID, s.Timezone, s.DefaultSessionMinutes, s.BufferMinutes,
		s.MinAdvanceBookingHours, s.MaxAdvanceBookingDays, s.BookingMode, s.RateCents, s.Currency, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%s: upsert: %w", op, err)
	}

	if _, err := t.tx.ExecContext(ctx, `DELETE FROM weekly_patterns WHERE mentor_id = $1`, s.MentorID); err != nil {
		return fmt.Errorf("%s: clear patterns: %w", op, err)
	}

	for _, p := range s.Patterns {
		blocks, err := json.Marshal(p.Blocks)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		_, err = t.tx.ExecContext(ctx, `
			INSERT INTO weekly_patterns (mentor_id, day_of_week, enabled, blocks)
			VALUES ($1, $2, $3, $4)`,
			s.MentorID, p.DayOfWeek, p.Enabled, string(blocks),
		)
		if err != nil {
			return fmt.Errorf("%s: insert pattern: %w", op, err)
		}
	}

	return nil
}

func (t *tx) CreateException(ctx context.Context, e *models.AvailabilityException) error {
	const op = "storage.postgres.CreateException"

	blocks, err := json.Marshal(e.Blocks)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO availability_exceptions (id, mentor_id, start_date, end_date, kind, is_full_day, blocks, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.MentorID, e.StartDate.String(), e.EndDate.String(), e.Kind, e.IsFullDay, string(blocks), e.Reason, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapWriteErr(err, nil))
	}

	return nil
}

func (t *tx) DeleteException(ctx context.Context, mentorID, id string) error {
	const op = "storage.postgres.DeleteException"

	res, err := t.tx.ExecContext(ctx, `DELETE FROM availability_exceptions WHERE mentor_id = $1 AND id = $2`, mentorID, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return expectOne(res, op)
}

func (t *tx) CreateRule(ctx context.Context, r *models.AvailabilityRule) error {
	const op = "storage.postgres.CreateRule"

	cond, err := json.Marshal(r.Condition)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	action, err := json.Marshal(r.Action)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO availability_rules (id, mentor_id, name, condition, action, priority, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		r.ID, r.MentorID, r.Name, string(cond), string(action), r.Priority, r.Active, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapWriteErr(err, nil))
	}

	return nil
}

func (t *tx) DeleteRule(ctx context.Context, mentorID, id string) error {
	const op = "storage.postgres.DeleteRule"

	res, err := t.tx.ExecContext(ctx, `DELETE FROM availability_rules WHERE mentor_id = $1 AND id = $2`, mentorID, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return expectOne(res, op)
}
