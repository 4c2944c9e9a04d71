// Package common defines the sentinel errors shared by the sign-in core and
// its front-end, plus a few small helpers. Callers should use errors.Is and
// errors.As to match these values.
package common

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// Validation errors; concrete values are *validation.ValidationError.
	ErrValidation = errors.New("validation error")

	// Registration errors.
	ErrDuplicateEmail = errors.New("an account with this email already exists")

	// Login errors.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrLockedOut          = errors.New("account locked")

	// ErrStorage wraps failures of the underlying durable store.
	ErrStorage = errors.New("storage failure")

	// ErrPromptCancelled reports that the user dismissed a biometric or
	// passcode prompt. It is not a failed attempt.
	ErrPromptCancelled = errors.New("prompt cancelled")

	// Serialization guards.
	ErrAttemptInProgress = errors.New("authentication attempt already in progress")
	ErrSubmitInProgress  = errors.New("form submission already in progress")
)

// LockedOutError is returned by login attempts made while the lockout window
// is open. It matches ErrLockedOut.
type LockedOutError struct {
	Until     time.Time
	Remaining time.Duration
}

func (e *LockedOutError) Error() string {
	return fmt.Sprintf("%s: try again in %s", ErrLockedOut, formatMinutes(e.Remaining))
}

func (e *LockedOutError) Is(target error) bool {
	return target == ErrLockedOut
}

// StorageError wraps err so that it matches ErrStorage while keeping the
// original cause reachable through errors.Unwrap.
func StorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

func formatMinutes(d time.Duration) string {
	m := int(math.Ceil(d.Minutes()))
	if m <= 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", m)
}
