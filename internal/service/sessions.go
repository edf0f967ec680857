package service

import (
	"context"
	"fmt"
	"log/slog"

	"session-scheduler/internal/audit"
	"session-scheduler/internal/effects"
	"session-scheduler/internal/models"
	"session-scheduler/internal/storage"
	"session-scheduler/pkg/response"
)

// CancelResult is the cancelled session and the refund decided for it.
type CancelResult struct {
	Session          models.Session `json:"session"`
	RefundPercentage int            `json:"refund_percentage"`
	RefundCents      int64          `json:"refund_cents"`
}

func (s *Service) GetSession(ctx context.Context, actor models.Actor, id string) (*models.Session, error) {
	const op = "service.GetSession"

	var session *models.Session
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		var err error
		session, err = tx.GetSession(ctx, id)
		if err != nil {
			return err
		}
		_, err = participantRole(session, actor)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return session, nil
}

// StartSession moves the session to in_progress and provisions the video
// room. Starting a session that is already running returns it unchanged.
func (s *Service) StartSession(ctx context.Context, actor models.Actor, id string) (*models.Session, error) {
	const op = "service.StartSession"

	var (
		session *models.Session
		changed bool
	)
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		var err error
		session, err = tx.GetSession(ctx, id)
		if err != nil {
			return err
		}
		if _, err = participantRole(session, actor); err != nil {
			return err
		}

		changed, err = s.lifecycle.Start(session, s.now())
		if err != nil || !changed {
			return err
		}
		return tx.UpdateSession(ctx, session)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, conflictAs(err, response.ErrInvalidTransition))
	}

	if changed {
		s.log.Info("session started", slog.String("session_id", id))
		s.effects.ProvisionRoom(session.ID)
		s.effects.Notify(session.ID, session.MentorID, effects.EventSessionStarted, *session)
		s.effects.Notify(session.ID, session.MenteeID, effects.EventSessionStarted, *session)
	}

	return session, nil
}

func (s *Service) CompleteSession(ctx context.Context, actor models.Actor, id string) (*models.Session, error) {
	const op = "service.CompleteSession"

	var session *models.Session
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		var err error
		session, err = tx.GetSession(ctx, id)
		if err != nil {
			return err
		}
		if _, err = participantRole(session, actor); err != nil {
			return err
		}
		if err = s.lifecycle.Complete(session, s.now()); err != nil {
			return err
		}
		return tx.UpdateSession(ctx, session)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, conflictAs(err, response.ErrInvalidTransition))
	}

	s.log.Info("session completed", slog.String("session_id", id))
	return session, nil
}

// CancelSession cancels on behalf of either participant, subject to the
// role's cutoff. The refund is decided by the canceller's policy and paid
// after commit.
func (s *Service) CancelSession(ctx context.Context, actor models.Actor, id, reasonCategory, reasonDetails string) (*CancelResult, error) {
	const op = "service.CancelSession"

	var (
		session *models.Session
		role    models.Role
		snap    models.PolicySnapshot
	)
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		var err error
		session, err = tx.GetSession(ctx, id)
		if err != nil {
			return err
		}
		if role, err = participantRole(session, actor); err != nil {
			return err
		}

		now := s.now()
		snap, err = s.lifecycle.Cancel(session, role, reasonCategory, now, false)
		if err != nil {
			return err
		}
		if err = tx.UpdateSession(ctx, session); err != nil {
			return err
		}
		if err = closeActiveRequest(ctx, tx, session, actor.UserID, role, snap, now); err != nil {
			return err
		}

		entry := audit.NewEntry(audit.Event{
			Session:        *session,
			ActorID:        actor.UserID,
			ActorRole:      role,
			Action:         models.AuditCancel,
			Outcome:        models.OutcomeCancelled,
			ReasonCategory: reasonCategory,
			ReasonDetails:  reasonDetails,
			BeforeTime:     session.ScheduledAt,
			Snapshot:       snap,
			At:             now,
		})
		return tx.AppendAudit(ctx, &entry)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, conflictAs(err, response.ErrInvalidTransition))
	}

	s.log.Info("session cancelled",
		slog.String("session_id", id),
		slog.String("by", string(role)),
		slog.Int("refund_percentage", snap.RefundPercentage),
	)

	s.effects.Refund(session.ID, snap.RefundCents, snap.RefundPercentage)
	s.effects.Notify(session.ID, session.ParticipantID(role.Other()), effects.EventSessionCancelled, *session)

	return &CancelResult{
		Session:          *session,
		RefundPercentage: snap.RefundPercentage,
		RefundCents:      snap.RefundCents,
	}, nil
}

// MarkNoShow records that the mentee did not attend.
func (s *Service) MarkNoShow(ctx context.Context, actor models.Actor, id string) (*models.Session, error) {
	const op = "service.MarkNoShow"

	var session *models.Session
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		var err error
		session, err = tx.GetSession(ctx, id)
		if err != nil {
			return err
		}
		role, err := participantRole(session, actor)
		if err != nil {
			return err
		}

		now := s.now()
		snap, err := s.lifecycle.MarkNoShow(session, role, now)
		if err != nil {
			return err
		}
		if err = tx.UpdateSession(ctx, session); err != nil {
			return err
		}
		if err = closeActiveRequest(ctx, tx, session, actor.UserID, role, snap, now); err != nil {
			return err
		}

		entry := audit.NewEntry(audit.Event{
			Session:        *session,
			ActorID:        actor.UserID,
			ActorRole:      role,
			Action:         models.AuditNoShow,
			Outcome:        models.OutcomeNoShow,
			ReasonCategory: "no_show",
			BeforeTime:     session.ScheduledAt,
			Snapshot:       snap,
			At:             now,
		})
		return tx.AppendAudit(ctx, &entry)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, conflictAs(err, response.ErrInvalidTransition))
	}

	s.log.Info("no-show recorded", slog.String("session_id", id))
	s.effects.Notify(session.ID, session.MenteeID, effects.EventSessionNoShow, *session)

	return session, nil
}

func (s *Service) ListAudit(ctx context.Context, actor models.Actor, sessionID string) ([]models.SessionAuditLogEntry, error) {
	const op = "service.ListAudit"

	var entries []models.SessionAuditLogEntry
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		session, err := tx.GetSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if _, err = participantRole(session, actor); err != nil {
			return err
		}
		entries, err = tx.ListAudit(ctx, sessionID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if entries == nil {
		entries = []models.SessionAuditLogEntry{}
	}
	return entries, nil
}
