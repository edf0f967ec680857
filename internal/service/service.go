// Package service runs the scheduling operations. Every operation reads and
// writes inside one store transaction; side effects are queued only after
// the transaction commits.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"

	"session-scheduler/internal/audit"
	"session-scheduler/internal/effects"
	"session-scheduler/internal/idempotency"
	"session-scheduler/internal/lifecycle"
	"session-scheduler/internal/models"
	"session-scheduler/internal/policy"
	"session-scheduler/internal/storage"
	"session-scheduler/pkg/response"
)

// Effects is the fire-and-forget side of the service.
type Effects interface {
	Notify(sessionID, userID string, event effects.Event, payload any)
	Charge(sessionID string, amountCents int64, currency string)
	Refund(sessionID string, amountCents int64, percentage int)
	ProvisionRoom(sessionID string)
}

type Options struct {
	RequestTTL           time.Duration
	AvailabilityCacheTTL time.Duration
	IdempotencyTTL       time.Duration
	Guards               policy.Guards
	Policies             policy.Policies
}

type Service struct {
	log       *slog.Logger
	store     storage.Store
	lifecycle *lifecycle.Controller
	effects   Effects
	keeper    idempotency.Keeper
	schedules *cache.Cache

	requestTTL     time.Duration
	idempotencyTTL time.Duration
	now            func() time.Time
}

func New(log *slog.Logger, store storage.Store, fx Effects, keeper idempotency.Keeper, opts Options) *Service {
	cacheTTL := opts.AvailabilityCacheTTL
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}

	return &Service{
		log:            log,
		store:          store,
		lifecycle:      lifecycle.New(opts.Guards, opts.Policies),
		effects:        fx,
		keeper:         keeper,
		schedules:      cache.New(cacheTTL, 2*cacheTTL),
		requestTTL:     opts.RequestTTL,
		idempotencyTTL: opts.IdempotencyTTL,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// participantRole resolves the caller's side of the session. A role claimed
// by the gateway must agree with the session.
func participantRole(s *models.Session, actor models.Actor) (models.Role, error) {
	role, ok := s.RoleOf(actor.UserID)
	if !ok {
		return "", fmt.Errorf("%w: not a participant of session %s", response.ErrForbidden, s.ID)
	}
	if actor.Role != "" && actor.Role != role {
		return "", fmt.Errorf("%w: caller is the %s of session %s", response.ErrForbidden, role, s.ID)
	}
	return role, nil
}

func requireMentor(actor models.Actor, mentorID string) error {
	if actor.Role != models.RoleMentor || actor.UserID != mentorID {
		return fmt.Errorf("%w: only the mentor can change this availability", response.ErrForbidden)
	}
	return nil
}

// conflictAs maps a lost serialization race to the domain error the caller
// should see.
func conflictAs(err, target error) error {
	if errors.Is(err, storage.ErrConflict) {
		return fmt.Errorf("%w: %s", target, err.Error())
	}
	return err
}

// closeActiveRequest cancels the session's open reschedule request, if any,
// and records it in the session's audit trail. Used when the session leaves
// the scheduled state by other means.
func closeActiveRequest(ctx context.Context, tx storage.Tx, session *models.Session, actorID string, by models.Role, snap models.PolicySnapshot, now time.Time) error {
	r, err := tx.GetActiveRescheduleRequest(ctx, session.ID)
	if errors.Is(err, response.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	r.Status = models.RescheduleCancelled
	r.ResolvedBy = &by
	r.ResolvedAt = &now
	r.ResolutionNote = "session closed"
	r.UpdatedAt = now
	if err = tx.UpdateRescheduleRequest(ctx, r); err != nil {
		return err
	}

	entry := audit.ForReschedule(*session, *r, actorID, by, models.OutcomeSessionClosed, snap, now)
	return tx.AppendAudit(ctx, &entry)
}
