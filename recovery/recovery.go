// Package recovery resets a forgotten password through an emailed reset token.
package recovery

import (
	"context"
	"fmt"

	apperrors "github.com/jrsteele09/notes-auth-client/internal/errors"
	"github.com/jrsteele09/notes-auth-client/internal/notify"
	"github.com/jrsteele09/notes-auth-client/internal/validate"
	"github.com/jrsteele09/notes-auth-client/provider"
	"github.com/rs/zerolog/log"
)

var (
	ErrValidation            = apperrors.ErrValidation
	ErrInvalidOrExpiredToken = apperrors.ErrInvalidOrExpiredToken
)

// Flow runs the two halves of password recovery. Neither half needs a session.
type Flow struct {
	provider provider.Provider
	notifier notify.Notifier
}

// FlowOption defines a function type to modify the Flow instance.
type FlowOption func(*Flow)

func WithNotifier(n notify.Notifier) FlowOption {
	return func(f *Flow) {
		f.notifier = n
	}
}

func NewFlow(p provider.Provider, options ...FlowOption) (*Flow, error) {
	if p == nil {
		return nil, fmt.Errorf("[recovery.NewFlow] provider is required")
	}
	f := &Flow{provider: p}
	for _, opt := range options {
		opt(f)
	}
	return f, nil
}

type resetRequest struct {
	Email string `validate:"required,email"`
}

type resetCompletion struct {
	Token    string `validate:"required"`
	Password string `validate:"required"`
}

// RequestReset asks for a reset email. Whatever the provider answers, the caller sees
// the same success, so the outcome never tells whether the address has an account.
// Only a request that never reached the provider is an error.
func (f *Flow) RequestReset(ctx context.Context, email string) error {
	if err := validate.Struct(resetRequest{Email: email}); err != nil {
		notify.Failure(f.notifier, "forgot-password", "Please enter a valid email address", err)
		return err
	}
	if err := f.provider.ForgotPassword(ctx, email); err != nil {
		if apperrors.Is(err, provider.ErrNotTransmitted) {
			notify.Failure(f.notifier, "forgot-password", "Could not reach the server, please try again", err)
			return fmt.Errorf("[recovery.RequestReset] %w", err)
		}
		log.Debug().Int("status", provider.StatusCode(err)).Msg("reset request answered with an error")
	}
	notify.Success(f.notifier, "forgot-password", "If an account exists for that address, a reset link has been sent")
	return nil
}

// CompleteReset sets a new password with the token from the reset email.
func (f *Flow) CompleteReset(ctx context.Context, resetToken, newPassword string) error {
	if err := validate.Struct(resetCompletion{Token: resetToken, Password: newPassword}); err != nil {
		notify.Failure(f.notifier, "reset-password", "Reset token and new password are required", err)
		return err
	}
	if err := f.provider.ResetPassword(ctx, resetToken, newPassword); err != nil {
		if apperrors.Is(err, provider.ErrNotTransmitted) {
			notify.Failure(f.notifier, "reset-password", "Could not reach the server, please try again", err)
			return fmt.Errorf("[recovery.CompleteReset] %w", err)
		}
		err = apperrors.Mark(ErrInvalidOrExpiredToken, err)
		notify.Failure(f.notifier, "reset-password", "Invalid or expired reset link", err)
		return err
	}
	notify.Success(f.notifier, "reset-password", "Password reset successful! You can now log in.")
	return nil
}
