package services

import (
	"errors"

	apperrors "github.com/SAP-F-2025/exam-session-service/internal/errors"
)

// ===== SESSION ERRORS =====

var (
	// NotFound
	ErrSessionNotFound = errors.New("session not found")
	ErrTestNotFound    = errors.New("test not found")

	// Conflict
	ErrActiveSessionExists = errors.New("an active session already exists for this test")

	// InvalidState
	ErrInvalidSessionState = errors.New("operation not allowed in current session state")
	ErrMissingTimeSnapshot = errors.New("session has no time remaining snapshot")
	ErrNoQuestionsInScope  = errors.New("selected parts contain no questions")
	ErrResultsNotAvailable = errors.New("results are only available for completed sessions")

	// Expired / TimeExceeded
	ErrSessionExpired    = errors.New("session has expired")
	ErrTimeLimitExceeded = errors.New("session time limit exceeded")
)

// Error kind tags, used in logs and transport error codes.
const (
	KindNotFound      = "not_found"
	KindConflict      = "conflict"
	KindInvalidState  = "invalid_state"
	KindExpired       = "expired"
	KindTimeExceeded  = "time_exceeded"
	KindValidation    = "validation_error"
	KindInternalError = "internal_error"
)

// ===== CUSTOM ERROR TYPES =====

type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// ===== ERROR HELPERS =====

func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrTestNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrActiveSessionExists)
}

func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidSessionState) ||
		errors.Is(err, ErrMissingTimeSnapshot) ||
		errors.Is(err, ErrNoQuestionsInScope) ||
		errors.Is(err, ErrResultsNotAvailable)
}

func IsExpired(err error) bool {
	return errors.Is(err, ErrSessionExpired)
}

func IsTimeExceeded(err error) bool {
	return errors.Is(err, ErrTimeLimitExceeded)
}

func IsValidation(err error) bool {
	var ve apperrors.ValidationErrors
	if errors.As(err, &ve) {
		return true
	}
	var single *apperrors.ValidationError
	return errors.As(err, &single)
}

// ErrorKind classifies err into one of the Kind* tags.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case IsValidation(err):
		return KindValidation
	case IsNotFound(err):
		return KindNotFound
	case IsConflict(err):
		return KindConflict
	case IsExpired(err):
		return KindExpired
	case IsTimeExceeded(err):
		return KindTimeExceeded
	case IsInvalidState(err):
		return KindInvalidState
	default:
		return KindInternalError
	}
}

// IsStateRejection reports whether err is a deliberate refusal by the session
// lifecycle, as opposed to an infrastructure failure worth retrying.
func IsStateRejection(err error) bool {
	kind := ErrorKind(err)
	return kind != "" && kind != KindInternalError
}
