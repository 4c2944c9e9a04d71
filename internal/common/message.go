package common

import (
	"errors"
)

// Message maps a core error to the single line shown to the user. Lockout,
// duplicate email and validation failures keep their specific reason.
func Message(err error) string {
	var locked *LockedOutError

	switch {
	case err == nil:
		return ""
	case errors.As(err, &locked):
		return "Too many failed attempts. Try again in " + formatMinutes(locked.Remaining) + "."
	case errors.Is(err, ErrValidation):
		// validation errors render their own field list
		return err.Error()
	case errors.Is(err, ErrDuplicateEmail):
		return "An account with this email already exists. Try signing in instead."
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid email or password."
	case errors.Is(err, ErrPromptCancelled):
		return ""
	case errors.Is(err, ErrAttemptInProgress), errors.Is(err, ErrSubmitInProgress):
		return "Please wait, the previous request is still running."
	case errors.Is(err, ErrStorage):
		return "Could not access local storage. Please try again."
	default:
		return "Something went wrong. Please try again."
	}
}
