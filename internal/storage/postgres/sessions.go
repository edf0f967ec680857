package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"session-scheduler/internal/audit"
	"session-scheduler/internal/models"
	"session-scheduler/pkg/response"
)

const sessionColumns = `id, mentor_id, mentee_id, scheduled_at, duration_minutes, status, rate_cents, currency,
	meeting_details, mentor_reschedule_count, mentee_reschedule_count, cancelled_by, cancelled_at,
	cancellation_reason, no_show_party, no_show_at, started_at, completed_at, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (models.Session, error) {
	var s models.Session
	err := row.Scan(
		&s.ID, &s.MentorID, &s.MenteeID, &s.ScheduledAt, &s.DurationMinutes, &s.Status, &s.RateCents, &s.Currency,
		&s.MeetingDetails, &s.MentorRescheduleCount, &s.MenteeRescheduleCount, &s.CancelledBy, &s.CancelledAt,
		&s.CancellationReason, &s.NoShowParty, &s.NoShowAt, &s.StartedAt, &s.CompletedAt, &s.CreatedAt, &s.UpdatedAt,
	)
	return s, err
}

// ListActiveSessions returns the mentor's non-cancelled sessions overlapping [from, to).
func (t *tx) ListActiveSessions(ctx context.Context, mentorID string, from, to time.Time) ([]models.Session, error) {
	const op = "storage.postgres.ListActiveSessions"

	rows, err := t.tx.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE mentor_id = $1
			AND status <> 'cancelled'
			AND scheduled_at < $3
			AND scheduled_at + make_interval(mins => duration_minutes) > $2
		ORDER BY scheduled_at, id`,
		mentorID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (t *tx) CreateSession(ctx context.Context, s *models.Session) error {
	const op = "storage.postgres.CreateSession"

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		s.ID, s.MentorID, s.MenteeID, s.ScheduledAt, s.DurationMinutes, s.Status, s.RateCents, s.Currency,
		s.MeetingDetails, s.MentorRescheduleCount, s.MenteeRescheduleCount, s.CancelledBy, s.CancelledAt,
		s.CancellationReason, s.NoShowParty, s.NoShowAt, s.StartedAt, s.CompletedAt, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// GetSession locks the session row for the rest of the transaction.
func (t *tx) GetSession(ctx context.Context, id string) (*models.Session, error) {
	const op = "storage.postgres.GetSession"

	s, err := scanSession(t.tx.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &s, nil
}

func (t *tx) UpdateSession(ctx context.Context, s *models.Session) error {
	const op = "storage.postgres.UpdateSession"

	res, err := t.tx.ExecContext(ctx, `
		UPDATE sessions
		SET scheduled_at = $2, status = $3, mentor_reschedule_count = $4, mentee_reschedule_count = $5,
			cancelled_by = $6, cancelled_at = $7, cancellation_reason = $8, no_show_party = $9, no_show_at = $10,
			started_at = $11, completed_at = $12, updated_at = $13
		WHERE id = $1`,
		s.ID, s.ScheduledAt, s.Status, s.MentorRescheduleCount, s.MenteeRescheduleCount,
		s.CancelledBy, s.CancelledAt, s.CancellationReason, s.NoShowParty, s.NoShowAt,
		s.StartedAt, s.CompletedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return expectOne(res, op)
}

const requestColumns = `id, session_id, initiator_role, initiator_id, status, original_time, proposed_time,
	counter_proposed_time, counter_proposed_by, counter_proposal_count, expires_at, reason,
	resolved_by, resolved_at, resolution_note, created_at, updated_at`

func scanRequest(row scanner) (models.RescheduleRequest, error) {
	var r models.RescheduleRequest
	err := row.Scan(
		&r.ID, &r.SessionID, &r.InitiatorRole, &r.InitiatorID, &r.Status, &r.OriginalTime, &r.ProposedTime,
		&r.CounterProposedTime, &r.CounterProposedBy, &r.CounterProposalCount, &r.ExpiresAt, &r.Reason,
		&r.ResolvedBy, &r.ResolvedAt, &r.ResolutionNote, &r.CreatedAt, &r.UpdatedAt,
	)
	return r, err
}

func (t *tx) GetRescheduleRequest(ctx context.Context, id string) (*models.RescheduleRequest, error) {
	const op = "storage.postgres.GetRescheduleRequest"

	r, err := scanRequest(t.tx.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM reschedule_requests WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &r, nil
}

func (t *tx) GetActiveRescheduleRequest(ctx context.Context, sessionID string) (*models.RescheduleRequest, error) {
	const op = "storage.postgres.GetActiveRescheduleRequest"

	r, err := scanRequest(t.tx.QueryRowContext(ctx, `
		SELECT `+requestColumns+`
		FROM reschedule_requests
		WHERE session_id = $1 AND status IN ('pending', 'counter_proposed')
		FOR UPDATE`, sessionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &r, nil
}

func (t *tx) CreateRescheduleRequest(ctx context.Context, r *models.RescheduleRequest) error {
	const op = "storage.postgres.CreateRescheduleRequest"

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO reschedule_requests (`+requestColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		r.ID, r.SessionID, r.InitiatorRole, r.InitiatorID, r.Status, r.OriginalTime, r.ProposedTime,
		r.CounterProposedTime, r.CounterProposedBy, r.CounterProposalCount, r.ExpiresAt, r.Reason,
		r.ResolvedBy, r.ResolvedAt, r.ResolutionNote, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapWriteErr(err, response.ErrRequestAlreadyActive))
	}

	return nil
}

func (t *tx) UpdateRescheduleRequest(ctx context.Context, r *models.RescheduleRequest) error {
	const op = "storage.postgres.UpdateRescheduleRequest"

	res, err := t.tx.ExecContext(ctx, `
		UPDATE reschedule_requests
		SET status = $2, counter_proposed_time = $3, counter_proposed_by = $4, counter_proposal_count = $5,
			expires_at = $6, resolved_by = $7, resolved_at = $8, resolution_note = $9, updated_at = $10
		WHERE id = $1`,
		r.ID, r.Status, r.CounterProposedTime, r.CounterProposedBy, r.CounterProposalCount,
		r.ExpiresAt, r.ResolvedBy, r.ResolvedAt, r.ResolutionNote, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return expectOne(res, op)
}

func (t *tx) AppendAudit(ctx context.Context, e *models.SessionAuditLogEntry) error {
	const op = "storage.postgres.AppendAudit"

	snap, err := audit.MarshalSnapshot(e.PolicySnapshot)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO session_audit_log (id, session_id, actor_id, actor_role, action, outcome,
			reason_category, reason_details, before_time, after_time, policy_snapshot, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.ID, e.SessionID, e.ActorID, e.ActorRole, e.Action, e.Outcome,
		e.ReasonCategory, e.ReasonDetails, e.BeforeTime, e.AfterTime, string(snap), e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapWriteErr(err, nil))
	}

	return nil
}

func (t *tx) ListAudit(ctx context.Context, sessionID string) ([]models.SessionAuditLogEntry, error) {
	const op = "storage.postgres.ListAudit"

	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, session_id, actor_id, actor_role, action, outcome, reason_category, reason_details,
			before_time, after_time, policy_snapshot, created_at
		FROM session_audit_log
		WHERE session_id = $1
		ORDER BY created_at, id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []models.SessionAuditLogEntry
	for rows.Next() {
		var e models.SessionAuditLogEntry
		var snap []byte
		err := rows.Scan(&e.ID, &e.SessionID, &e.ActorID, &e.ActorRole, &e.Action, &e.Outcome, &e.ReasonCategory,
			&e.ReasonDetails, &e.BeforeTime, &e.AfterTime, &snap, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if e.PolicySnapshot, err = audit.UnmarshalSnapshot(snap); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}
