// Package fail writes service errors as JSON error responses.
package fail

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"session-scheduler/internal/policy"
	"session-scheduler/pkg/response"
	"session-scheduler/pkg/sl"
)

var sentinels = []error{
	response.ErrInvalidInput,
	response.ErrBadRequest,
	response.ErrNotFound,
	response.ErrForbidden,
	response.ErrPolicyViolation,
	response.ErrSlotTaken,
	response.ErrRequestAlreadyActive,
	response.ErrRequestExpired,
	response.ErrRoundLimitExceeded,
	response.ErrInvalidTransition,
	response.ErrLocked,
}

// Violation is the details payload of a POLICY_VIOLATION error.
type Violation struct {
	Action        string  `json:"action"`
	Role          string  `json:"role,omitempty"`
	CutoffMinutes float64 `json:"cutoff_minutes"`
	LeadMinutes   float64 `json:"lead_minutes"`
}

// Write maps err to a status and error code. Internal errors are reported
// as msg without details.
func Write(log *slog.Logger, w http.ResponseWriter, r *http.Request, err error, msg string) {
	status, code := response.Classify(err)

	switch {
	case status >= http.StatusInternalServerError:
		log.Error(msg, sl.Err(err))
	case errors.Is(err, response.ErrInvalidTransition):
		log.Warn(msg, sl.Err(err))
	default:
		log.Info(msg, sl.Err(err))
	}

	w.WriteHeader(status)

	if status >= http.StatusInternalServerError {
		render.JSON(w, r, response.Error(string(code), msg))
		return
	}

	text := msg
	for _, s := range sentinels {
		if errors.Is(err, s) {
			text = msg + ": " + s.Error()
			break
		}
	}

	var v *policy.ViolationError
	if errors.As(err, &v) {
		render.JSON(w, r, response.Detailed(string(code), text, Violation{
			Action:        string(v.Action),
			Role:          string(v.Role),
			CutoffMinutes: v.Cutoff.Minutes(),
			LeadMinutes:   v.LeadTime.Minutes(),
		}))
		return
	}

	render.JSON(w, r, response.Error(string(code), text))
}

// Unauthenticated is written when no caller identity reached the handler.
func Unauthenticated(log *slog.Logger, w http.ResponseWriter, r *http.Request) {
	log.Warn("request without identity")
	w.WriteHeader(http.StatusUnauthorized)
	render.JSON(w, r, response.Error(string(response.UNAUTHENTICATED), "caller identity is required"))
}

// BadRequest is written when the body cannot be decoded.
func BadRequest(log *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	log.Error("Failed to decode request body", sl.Err(err))
	w.WriteHeader(http.StatusBadRequest)
	render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "failed to decode request"))
}

// Invalid is written when a request field fails validation.
func Invalid(log *slog.Logger, w http.ResponseWriter, r *http.Request, msg string) {
	log.Info("invalid request", slog.String("reason", msg))
	w.WriteHeader(http.StatusBadRequest)
	render.JSON(w, r, response.Error(string(response.INVALID_INPUT), msg))
}
