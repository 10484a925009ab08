package errors

import (
	"errors"
	"fmt"
)

// Common error types for the authentication client
var (
	// Input errors, raised before any network call
	ErrValidation = errors.New("validation failed")

	// Authentication errors
	ErrRejectedCredentials = errors.New("credentials rejected")
	ErrChallengeFailed     = errors.New("two-factor challenge failed")
	ErrTicketConsumed      = errors.New("pending login ticket already used")
	ErrUsernameTaken       = errors.New("username is already taken")

	// Token and session errors
	ErrMalformedToken = errors.New("malformed token")
	ErrNoSession      = errors.New("no active session")

	// Account errors
	ErrMutationFailed = errors.New("account mutation failed")

	// Recovery errors
	ErrInvalidOrExpiredToken = errors.New("invalid or expired reset token")

	// State machine errors
	ErrInvalidState = errors.New("operation not allowed in current state")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Mark returns an error that matches both kind and cause with errors.Is.
func Mark(kind, cause error) error {
	if cause == nil {
		return kind
	}
	return fmt.Errorf("%w: %w", kind, cause)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
