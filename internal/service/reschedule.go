package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"session-scheduler/internal/audit"
	"session-scheduler/internal/effects"
	"session-scheduler/internal/models"
	"session-scheduler/internal/negotiation"
	"session-scheduler/internal/storage"
	"session-scheduler/pkg/response"
)

// SystemActorID is recorded as the actor of transitions nobody asked for,
// such as expiry.
const SystemActorID = "system"

type RespondRequest struct {
	Action      negotiation.Action
	CounterTime *time.Time
	Note        string
}

type RescheduleResult struct {
	Request models.RescheduleRequest `json:"request"`
	Session models.Session           `json:"session"`
}

// expireRequest persists the lazy expiry of r. The session keeps its time.
func (s *Service) expireRequest(ctx context.Context, tx storage.Tx, r *models.RescheduleRequest, session *models.Session, now time.Time) error {
	negotiation.Expire(r, now)
	if err := tx.UpdateRescheduleRequest(ctx, r); err != nil {
		return err
	}

	snap := s.lifecycle.Snapshot(*session, r.InitiatorRole, now)
	entry := audit.ForReschedule(*session, *r, SystemActorID, "", models.OutcomeExpired, snap, now)
	return tx.AppendAudit(ctx, &entry)
}

func (s *Service) notifyExpired(r *models.RescheduleRequest) {
	s.log.Info("reschedule request expired", slog.String("request_id", r.ID), slog.String("session_id", r.SessionID))
	s.effects.Notify(r.SessionID, r.InitiatorID, effects.EventRescheduleExpired, *r)
}

// validateProposal checks that at is a different, bookable time for the
// session. The session's own booking does not count against it.
func (s *Service) validateProposal(ctx context.Context, tx storage.Tx, session *models.Session, at time.Time) error {
	if at.Equal(session.ScheduledAt) {
		return fmt.Errorf("%w: proposed time equals the current time", response.ErrInvalidInput)
	}

	sched, err := tx.GetSchedule(ctx, session.MentorID)
	if err != nil {
		return err
	}
	_, err = s.checkSlot(ctx, tx, *sched, at, session.ID)
	return err
}

// InitiateReschedule opens a request to move the session to proposed.
// A session has at most one active request; a stale one is expired first.
func (s *Service) InitiateReschedule(ctx context.Context, actor models.Actor, sessionID string, proposed time.Time, reason string) (*models.RescheduleRequest, error) {
	const op = "service.InitiateReschedule"

	if proposed.IsZero() {
		return nil, fmt.Errorf("%s: %w: proposed_time is required", op, response.ErrInvalidInput)
	}

	var (
		req     *models.RescheduleRequest
		session *models.Session
		stale   *models.RescheduleRequest
	)
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		var err error
		session, err = tx.GetSession(ctx, sessionID)
		if err != nil {
			return err
		}
		role, err := participantRole(session, actor)
		if err != nil {
			return err
		}

		now := s.now()
		if err = s.lifecycle.CheckReschedule(session, role, now); err != nil {
			return err
		}

		active, err := tx.GetActiveRescheduleRequest(ctx, session.ID)
		switch {
		case err == nil && negotiation.IsExpired(active, now):
			if err = s.expireRequest(ctx, tx, active, session, now); err != nil {
				return err
			}
			stale = active
		case err == nil:
			return fmt.Errorf("%w: request %s is %s", response.ErrRequestAlreadyActive, active.ID, active.Status)
		case !errors.Is(err, response.ErrNotFound):
			return err
		}

		if err = s.validateProposal(ctx, tx, session, proposed); err != nil {
			return err
		}

		req = negotiation.Open(*session, role, proposed, reason, now, s.requestTTL)
		return tx.CreateRescheduleRequest(ctx, req)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, conflictAs(err, response.ErrRequestAlreadyActive))
	}

	if stale != nil {
		s.notifyExpired(stale)
	}

	s.log.Info("reschedule requested",
		slog.String("request_id", req.ID),
		slog.String("session_id", sessionID),
		slog.String("initiator", string(req.InitiatorRole)),
	)
	s.effects.Notify(session.ID, session.ParticipantID(req.Responder()), effects.EventRescheduleRequested, *req)

	return req, nil
}

// GetRescheduleRequest returns the request. A request found past its
// deadline is expired and returned in the expired state.
func (s *Service) GetRescheduleRequest(ctx context.Context, actor models.Actor, id string) (*models.RescheduleRequest, error) {
	const op = "service.GetRescheduleRequest"

	var (
		req     *models.RescheduleRequest
		expired bool
	)
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		var err error
		req, err = tx.GetRescheduleRequest(ctx, id)
		if err != nil {
			return err
		}
		session, err := tx.GetSession(ctx, req.SessionID)
		if err != nil {
			return err
		}
		if _, err = participantRole(session, actor); err != nil {
			return err
		}

		now := s.now()
		if negotiation.IsExpired(req, now) {
			expired = true
			return s.expireRequest(ctx, tx, req, session, now)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if expired {
		s.notifyExpired(req)
	}
	return req, nil
}

// RespondReschedule applies the responder's answer. Accepting moves the
// session; cancel_session cancels it with a full refund. A request past its
// deadline is expired instead and ErrRequestExpired is returned.
func (s *Service) RespondReschedule(ctx context.Context, actor models.Actor, id string, in RespondRequest) (*RescheduleResult, error) {
	const op = "service.RespondReschedule"

	var (
		req     *models.RescheduleRequest
		session *models.Session
		role    models.Role
		outcome models.AuditOutcome
		snap    models.PolicySnapshot
		expired bool
	)
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		var err error
		req, err = tx.GetRescheduleRequest(ctx, id)
		if err != nil {
			return err
		}
		session, err = tx.GetSession(ctx, req.SessionID)
		if err != nil {
			return err
		}
		if role, err = participantRole(session, actor); err != nil {
			return err
		}

		now := s.now()
		if negotiation.IsExpired(req, now) {
			expired = true
			return s.expireRequest(ctx, tx, req, session, now)
		}

		outcome, err = negotiation.Respond(req, negotiation.Step{
			Actor:       role,
			Action:      in.Action,
			CounterTime: in.CounterTime,
			Note:        in.Note,
			Now:         now,
			TTL:         s.requestTTL,
			SessionAt:   session.ScheduledAt,
		})
		if err != nil {
			return err
		}

		switch outcome {
		case "":
			if err = s.lifecycle.CheckReschedule(session, role, now); err != nil {
				return err
			}
			if err = s.validateProposal(ctx, tx, session, *in.CounterTime); err != nil {
				return err
			}

		case models.OutcomeAccepted:
			if err = s.validateProposal(ctx, tx, session, req.CurrentProposal()); err != nil {
				return err
			}
			snap = s.lifecycle.Snapshot(*session, req.InitiatorRole, now)
			if err = s.lifecycle.Reschedule(session, req.InitiatorRole, req.CurrentProposal(), now); err != nil {
				return err
			}
			if err = tx.UpdateSession(ctx, session); err != nil {
				return err
			}

		case models.OutcomeRejected:
			snap = s.lifecycle.Snapshot(*session, req.InitiatorRole, now)

		case models.OutcomeCancelledInLieu:
			snap, err = s.lifecycle.Cancel(session, role, "reschedule_declined", now, true)
			if err != nil {
				return err
			}
			if err = tx.UpdateSession(ctx, session); err != nil {
				return err
			}
		}

		if err = tx.UpdateRescheduleRequest(ctx, req); err != nil {
			return err
		}
		if outcome == "" {
			return nil
		}

		entry := audit.ForReschedule(*session, *req, actor.UserID, role, outcome, snap, now)
		return tx.AppendAudit(ctx, &entry)
	})
	if err != nil {
		target := response.ErrInvalidTransition
		if in.Action == negotiation.ActionAccept {
			target = response.ErrSlotTaken
		}
		return nil, fmt.Errorf("%s: %w", op, conflictAs(err, target))
	}

	if expired {
		s.notifyExpired(req)
		return nil, fmt.Errorf("%s: %w: expired at %s", op, response.ErrRequestExpired, req.ExpiresAt.Format(time.RFC3339))
	}

	log := s.log.With(
		slog.String("request_id", req.ID),
		slog.String("session_id", session.ID),
		slog.String("by", string(role)),
	)
	counterpart := session.ParticipantID(role.Other())

	switch outcome {
	case "":
		log.Info("reschedule counter-proposed", slog.Int("round", req.CounterProposalCount))
		s.effects.Notify(session.ID, counterpart, effects.EventRescheduleCountered, *req)
	case models.OutcomeAccepted:
		log.Info("reschedule accepted", slog.Time("scheduled_at", session.ScheduledAt))
		s.effects.Notify(session.ID, counterpart, effects.EventRescheduleAccepted, *req)
	case models.OutcomeRejected:
		log.Info("reschedule rejected")
		s.effects.Notify(session.ID, counterpart, effects.EventRescheduleRejected, *req)
	case models.OutcomeCancelledInLieu:
		log.Info("session cancelled in response to reschedule", slog.Int64("refund_cents", snap.RefundCents))
		s.effects.Refund(session.ID, snap.RefundCents, snap.RefundPercentage)
		s.effects.Notify(session.ID, counterpart, effects.EventSessionCancelled, *session)
	}

	return &RescheduleResult{Request: *req, Session: *session}, nil
}

// WithdrawReschedule closes the request on behalf of its initiator.
func (s *Service) WithdrawReschedule(ctx context.Context, actor models.Actor, id string) (*models.RescheduleRequest, error) {
	const op = "service.WithdrawReschedule"

	var (
		req     *models.RescheduleRequest
		session *models.Session
		role    models.Role
		expired bool
	)
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		var err error
		req, err = tx.GetRescheduleRequest(ctx, id)
		if err != nil {
			return err
		}
		session, err = tx.GetSession(ctx, req.SessionID)
		if err != nil {
			return err
		}
		if role, err = participantRole(session, actor); err != nil {
			return err
		}

		now := s.now()
		if negotiation.IsExpired(req, now) {
			expired = true
			return s.expireRequest(ctx, tx, req, session, now)
		}

		if err = negotiation.Withdraw(req, role, now); err != nil {
			return err
		}
		if err = tx.UpdateRescheduleRequest(ctx, req); err != nil {
			return err
		}

		snap := s.lifecycle.Snapshot(*session, req.InitiatorRole, now)
		entry := audit.ForReschedule(*session, *req, actor.UserID, role, models.OutcomeWithdrawn, snap, now)
		return tx.AppendAudit(ctx, &entry)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, conflictAs(err, response.ErrInvalidTransition))
	}

	if expired {
		s.notifyExpired(req)
		return nil, fmt.Errorf("%s: %w: expired at %s", op, response.ErrRequestExpired, req.ExpiresAt.Format(time.RFC3339))
	}

	s.log.Info("reschedule withdrawn", slog.String("request_id", req.ID), slog.String("session_id", session.ID))
	s.effects.Notify(session.ID, session.ParticipantID(role.Other()), effects.EventRescheduleWithdrawn, *req)

	return req, nil
}
