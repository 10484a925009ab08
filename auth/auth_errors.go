package auth

import (
	"strings"

	apperrors "github.com/jrsteele09/notes-auth-client/internal/errors"
	"github.com/jrsteele09/notes-auth-client/provider"
	"github.com/pkg/errors"
)

var (
	ErrValidation          = apperrors.ErrValidation
	ErrRejectedCredentials = apperrors.ErrRejectedCredentials
	ErrChallengeFailed     = apperrors.ErrChallengeFailed
	ErrTicketConsumed      = apperrors.ErrTicketConsumed
	ErrUsernameTaken       = apperrors.ErrUsernameTaken
	ErrInvalidState        = apperrors.ErrInvalidState
	ErrNoSession           = apperrors.ErrNoSession
)

// RejectedError is returned when the provider does not accept a sign-in.
// It matches ErrRejectedCredentials.
type RejectedError struct {
	Reason string
	Cause  error
}

func (e *RejectedError) Error() string {
	return "credentials rejected: " + e.Reason
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrRejectedCredentials
}

func (e *RejectedError) Unwrap() error {
	return e.Cause
}

func rejection(err error) *RejectedError {
	var se *provider.StatusError
	switch {
	case errors.As(err, &se) && se.Message != "":
		return &RejectedError{Reason: se.Message, Cause: err}
	case errors.Is(err, provider.ErrNotTransmitted):
		return &RejectedError{Reason: "could not reach the server", Cause: err}
	default:
		return &RejectedError{Reason: "Invalid credentials", Cause: err}
	}
}

func usernameTaken(err error) bool {
	var se *provider.StatusError
	return errors.As(err, &se) && strings.Contains(strings.ToLower(se.Message), "username is already taken")
}
