package response

import (
	"errors"
	"net/http"
)

type Response struct {
	ResponseError `json:"error,omitzero"`
}

type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Error Codes
type ErrCode string

var (
	FAILED_REQUEST         ErrCode = "REQUEST_FAILED"
	BAD_REQUEST            ErrCode = "FAILED_TO_DECODE"
	INVALID_INPUT          ErrCode = "INVALID_INPUT"
	NOT_FOUND              ErrCode = "NOT_FOUND"
	FORBIDDEN              ErrCode = "FORBIDDEN"
	UNAUTHENTICATED        ErrCode = "UNAUTHENTICATED"
	POLICY_VIOLATION       ErrCode = "POLICY_VIOLATION"
	SLOT_TAKEN             ErrCode = "SLOT_TAKEN"
	REQUEST_ALREADY_ACTIVE ErrCode = "REQUEST_ALREADY_ACTIVE"
	REQUEST_EXPIRED        ErrCode = "REQUEST_EXPIRED"
	ROUND_LIMIT_EXCEEDED   ErrCode = "ROUND_LIMIT_EXCEEDED"
	INVALID_TRANSITION     ErrCode = "INVALID_TRANSITION"
	TOO_MANY_REQUESTS      ErrCode = "TOO_MANY_REQUESTS"
	LOCKED                 ErrCode = "LOCKED"
)

var (
	ErrBadRequest           = errors.New("bad request")
	ErrInvalidInput         = errors.New("invalid input")
	ErrNotFound             = errors.New("resource not found")
	ErrForbidden            = errors.New("actor is not allowed to perform this action")
	ErrPolicyViolation      = errors.New("policy violation")
	ErrSlotTaken            = errors.New("slot is no longer available")
	ErrRequestAlreadyActive = errors.New("an active reschedule request already exists")
	ErrRequestExpired       = errors.New("reschedule request has expired")
	ErrRoundLimitExceeded   = errors.New("counter-proposal round limit exceeded")
	ErrInvalidTransition    = errors.New("invalid state transition")
	ErrLocked               = errors.New("resource is locked")
)

func Error(code, msg string) Response {
	return Response{
		ResponseError: ResponseError{
			Code:    code,
			Message: msg,
		},
	}
}

// Detailed is Error with a structured details payload.
func Detailed(code, msg string, details any) Response {
	resp := Error(code, msg)
	resp.Details = details
	return resp
}

// Classify maps a domain error to the HTTP status and error code returned to callers.
// Errors that match no sentinel are reported as internal failures.
func Classify(err error) (int, ErrCode) {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, INVALID_INPUT
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, NOT_FOUND
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, FORBIDDEN
	case errors.Is(err, ErrPolicyViolation):
		return http.StatusUnprocessableEntity, POLICY_VIOLATION
	case errors.Is(err, ErrSlotTaken):
		return http.StatusConflict, SLOT_TAKEN
	case errors.Is(err, ErrRequestAlreadyActive):
		return http.StatusConflict, REQUEST_ALREADY_ACTIVE
	case errors.Is(err, ErrRequestExpired):
		return http.StatusGone, REQUEST_EXPIRED
	case errors.Is(err, ErrRoundLimitExceeded):
		return http.StatusConflict, ROUND_LIMIT_EXCEEDED
	case errors.Is(err, ErrInvalidTransition):
		return http.StatusConflict, INVALID_TRANSITION
	case errors.Is(err, ErrLocked):
		return http.StatusLocked, LOCKED
	default:
		return http.StatusInternalServerError, FAILED_REQUEST
	}
}
