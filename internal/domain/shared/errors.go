// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrFutureTimestamp = errors.New("timestamp cannot be in the future")
	ErrInvalidFormat   = errors.New("invalid format")

	// Structural errors: a curriculum or roster that cannot be reconciled at all.
	ErrInconsistent = errors.New("structurally inconsistent input")

	// State errors
	ErrInvalidState     = errors.New("invalid state")
	ErrStateTransition  = errors.New("invalid state transition")
	ErrAlreadyProcessed = errors.New("already processed")
	ErrExpired          = errors.New("expired")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
	ErrRateLimited        = errors.New("rate limited")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "curriculum", "submission", "review"
	Op      string // Operation that failed, e.g., "Validate", "Reconcile"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Curriculum domain errors
var (
	ErrCourseNotFound      = NewDomainError("curriculum", "Find", ErrNotFound, "course not found")
	ErrEmptyCourse         = NewDomainError("curriculum", "Validate", ErrInconsistent, "course has no modules")
	ErrEmptySprint         = NewDomainError("curriculum", "Validate", ErrInconsistent, "sprint has no assignments")
	ErrDuplicateAssignment = NewDomainError("curriculum", "Validate", ErrInconsistent, "duplicate assignment identifier")
	ErrSprintOutOfOrder    = NewDomainError("curriculum", "Validate", ErrInconsistent, "sprint dates are not in order")
	ErrInvalidSprintNumber = NewDomainError("curriculum", "Validate", ErrValueOutOfRange, "sprint number out of range")
)

// Roster domain errors
var (
	ErrBatchNotFound      = NewDomainError("roster", "Find", ErrNotFound, "batch not found")
	ErrTraineeNotFound    = NewDomainError("roster", "Find", ErrNotFound, "trainee not found")
	ErrEmptyBatch         = NewDomainError("roster", "Validate", ErrInconsistent, "batch has no trainees")
	ErrDuplicateTrainee   = NewDomainError("roster", "Validate", ErrInconsistent, "duplicate trainee login in batch")
	ErrInvalidGithubLogin = NewDomainError("roster", "Validate", ErrInvalidID, "invalid GitHub login")
	ErrUnknownRegion      = NewDomainError("roster", "Validate", ErrInvalidInput, "unknown region")
)

// Submission domain errors
var (
	ErrEventMissingURL    = NewDomainError("submission", "Ingest", ErrInvalidInput, "event has no URL")
	ErrEventMissingAuthor = NewDomainError("submission", "Ingest", ErrInvalidInput, "event has no author")
	ErrEventZeroTimestamp = NewDomainError("submission", "Ingest", ErrInvalidInput, "event has zero timestamp")
	ErrSlotAlreadyFilled  = NewDomainError("submission", "Reconcile", ErrAlreadyProcessed, "slot already filled")
)

// Attendance domain errors
var (
	ErrCheckInOutsideCourse = NewDomainError("attendance", "Reconcile", ErrValueOutOfRange, "check-in outside course window")
	ErrUnknownClassDay      = NewDomainError("attendance", "Reconcile", ErrNotFound, "no scheduled class on that day")
)

// Scoring domain errors
var (
	ErrEmptyGrid       = NewDomainError("scoring", "Score", ErrInvalidInput, "nothing to score")
	ErrInvalidWeights  = NewDomainError("scoring", "Validate", ErrValueOutOfRange, "invalid score weights")
	ErrThresholdsOrder = NewDomainError("scoring", "Validate", ErrValueOutOfRange, "behind threshold must not exceed on-track threshold")
)

// Review domain errors
var (
	ErrReviewerNotFound = NewDomainError("review", "Find", ErrNotFound, "reviewer not found")
	ErrReviewInFuture   = NewDomainError("review", "Aggregate", ErrFutureTimestamp, "review timestamp after now")
)

// External service errors
var (
	ErrGithubAPIUnavailable     = NewDomainError("github", "Request", ErrServiceUnavailable, "GitHub API is unavailable")
	ErrGithubAPIRateLimited     = NewDomainError("github", "Request", ErrRateLimited, "GitHub API rate limit exceeded")
	ErrGithubAPITimeout         = NewDomainError("github", "Request", ErrTimeout, "GitHub API request timeout")
	ErrGithubAPIInvalidResponse = NewDomainError("github", "Parse", ErrInvalidFormat, "invalid response from GitHub API")
	ErrRegisterFeedUnavailable  = NewDomainError("register", "Request", ErrServiceUnavailable, "attendance register feed is unavailable")
	ErrRegisterFeedMalformed    = NewDomainError("register", "Parse", ErrInvalidFormat, "malformed attendance register feed")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsInconsistent reports whether the error marks structurally inconsistent
// input. Such errors abort a reconciliation run before any slot is produced.
func IsInconsistent(err error) bool {
	return errors.Is(err, ErrInconsistent)
}

// IsExternalService checks if the error is from an external service.
func IsExternalService(err error) bool {
	return errors.Is(err, ErrExternalService) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout)
}
