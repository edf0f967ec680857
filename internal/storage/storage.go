// Package storage declares the transactional store the scheduling service runs on.
// Implementations live in the postgres and memory subpackages.
package storage

import (
	"context"
	"errors"
	"time"

	"session-scheduler/internal/models"
)

// ErrConflict reports that the transaction lost a race against a concurrent
// one and nothing was written. The service maps it to the domain error of
// the operation that was running.
var ErrConflict = errors.New("concurrent transaction conflict")

type Store interface {
	// WithTx runs fn in one transaction. It commits when fn returns nil and
	// rolls back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}

type Tx interface {
	// Availability
	GetSchedule(ctx context.Context, mentorID string) (*models.AvailabilitySchedule, error)
	SaveSchedule(ctx context.Context, s *models.AvailabilitySchedule) error
	CreateException(ctx context.Context, e *models.AvailabilityException) error
	DeleteException(ctx context.Context, mentorID, id string) error
	CreateRule(ctx context.Context, r *models.AvailabilityRule) error
	DeleteRule(ctx context.Context, mentorID, id string) error

	// Sessions
	ListActiveSessions(ctx context.Context, mentorID string, from, to time.Time) ([]models.Session, error)
	CreateSession(ctx context.Context, s *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	UpdateSession(ctx context.Context, s *models.Session) error

	// Reschedule requests
	GetRescheduleRequest(ctx context.Context, id string) (*models.RescheduleRequest, error)
	GetActiveRescheduleRequest(ctx context.Context, sessionID string) (*models.RescheduleRequest, error)
	CreateRescheduleRequest(ctx context.Context, r *models.RescheduleRequest) error
	UpdateRescheduleRequest(ctx context.Context, r *models.RescheduleRequest) error

	// Audit
	AppendAudit(ctx context.Context, e *models.SessionAuditLogEntry) error
	ListAudit(ctx context.Context, sessionID string) ([]models.SessionAuditLogEntry, error)
}
