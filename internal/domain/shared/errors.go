// Package shared contains common domain types, errors, the storage contract and
// the clock abstraction used across all engine domain packages.
// This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound = errors.New("entity not found")

	// Validation errors
	ErrValidation    = errors.New("validation error")
	ErrInvalidAmount = errors.New("amount cannot be negative")

	// State errors
	ErrInactive        = errors.New("entity is inactive")
	ErrNotAParticipant = errors.New("user is not a participant")
	ErrClockRegression = errors.New("timestamp is earlier than last recorded activity")

	// Idempotent outcomes. They are returned together with the stored record
	// and mean "nothing changed", not "the call failed".
	ErrAlreadyUnlocked = errors.New("achievement already unlocked")
	ErrAlreadyClaimed  = errors.New("reward already claimed")

	// Collaborator errors
	ErrStoreUnavailable = errors.New("store unavailable")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "progress", "leaderboard", "streak"
	Op      string // Operation that failed, e.g., "Join", "UpdateScore"
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

// Unavailable wraps a backend failure as ErrStoreUnavailable.
// A nil err stays nil.
func Unavailable(backend, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return WrapError(backend, op, ErrStoreUnavailable, "backend request failed", err)
}

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyUnlocked reports an idempotent repeat unlock.
func IsAlreadyUnlocked(err error) bool {
	return errors.Is(err, ErrAlreadyUnlocked)
}

// IsAlreadyClaimed reports an idempotent repeat claim.
func IsAlreadyClaimed(err error) bool {
	return errors.Is(err, ErrAlreadyClaimed)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrInvalidAmount)
}

// IsRetryable checks if the operation can be retried by the caller.
// Only collaborator failures qualify; every other kind is permanent for the
// given input.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
