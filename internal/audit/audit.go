// Package audit builds the append-only session audit entries.
package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"session-scheduler/internal/models"
)

// Event is what happened to a session and why.
type Event struct {
	Session        models.Session
	ActorID        string
	ActorRole      models.Role
	Action         models.AuditAction
	Outcome        models.AuditOutcome
	ReasonCategory string
	ReasonDetails  string
	BeforeTime     time.Time
	AfterTime      *time.Time
	Snapshot       models.PolicySnapshot
	At             time.Time
}

func NewEntry(e Event) models.SessionAuditLogEntry {
	var after *time.Time
	if e.AfterTime != nil {
		t := e.AfterTime.UTC()
		after = &t
	}

	return models.SessionAuditLogEntry{
		ID:             uuid.NewString(),
		SessionID:      e.Session.ID,
		ActorID:        e.ActorID,
		ActorRole:      e.ActorRole,
		Action:         e.Action,
		Outcome:        e.Outcome,
		ReasonCategory: e.ReasonCategory,
		ReasonDetails:  e.ReasonDetails,
		BeforeTime:     e.BeforeTime.UTC(),
		AfterTime:      after,
		PolicySnapshot: e.Snapshot,
		CreatedAt:      e.At,
	}
}

// ForReschedule builds the entry for a terminal reschedule outcome.
func ForReschedule(s models.Session, r models.RescheduleRequest, actorID string, actor models.Role, outcome models.AuditOutcome, snap models.PolicySnapshot, now time.Time) models.SessionAuditLogEntry {
	snap.RequestID = r.ID

	var after *time.Time
	if outcome == models.OutcomeAccepted {
		at := r.CurrentProposal()
		after = &at
	}

	return NewEntry(Event{
		Session:        s,
		ActorID:        actorID,
		ActorRole:      actor,
		Action:         actionFor(outcome),
		Outcome:        outcome,
		ReasonCategory: "reschedule",
		ReasonDetails:  r.Reason,
		BeforeTime:     r.OriginalTime,
		AfterTime:      after,
		Snapshot:       snap,
		At:             now,
	})
}

func actionFor(outcome models.AuditOutcome) models.AuditAction {
	if outcome == models.OutcomeCancelledInLieu {
		return models.AuditCancel
	}
	return models.AuditReschedule
}

func MarshalSnapshot(s models.PolicySnapshot) ([]byte, error) {
	const op = "audit.MarshalSnapshot"

	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return b, nil
}

func UnmarshalSnapshot(b []byte) (models.PolicySnapshot, error) {
	const op = "audit.UnmarshalSnapshot"

	var s models.PolicySnapshot
	if len(b) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(b, &s); err != nil {
		return s, fmt.Errorf("%s: %w", op, err)
	}
	return s, nil
}
