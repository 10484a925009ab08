// Package provider talks to the notes identity provider: sign-in, sign-up, two-factor
// management, account updates and password recovery.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/notes-auth-client/internal/utils"
)

var (
	// ErrNotTransmitted means the request never produced a server response
	// (connection refused, timeout, cancelled context).
	ErrNotTransmitted = errors.New("request not transmitted")
	// ErrUnauthorized matches a *StatusError whose code means the session token was refused.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrEmptyToken is returned when sign-in succeeds without a token in the body.
	ErrEmptyToken = errors.New("no token in sign-in response")
)

// Provider is the identity provider as seen by the client.
type Provider interface {
	SignIn(ctx context.Context, username, password string) (string, error)
	SignUp(ctx context.Context, req SignUpRequest) error
	// VerifyTwoFactorLogin completes a challenged sign-in and returns the finalized token.
	VerifyTwoFactorLogin(ctx context.Context, pendingToken, code string) (string, error)

	TwoFactorStatus(ctx context.Context, sessionToken string) (bool, error)
	EnableTwoFactor(ctx context.Context, sessionToken string) (string, error)
	VerifyTwoFactor(ctx context.Context, sessionToken, code string) error
	DisableTwoFactor(ctx context.Context, sessionToken string) error

	CurrentUser(ctx context.Context, sessionToken string) (*AccountRecord, error)
	UpdateCredentials(ctx context.Context, sessionToken, newUsername, newPassword string) error
	UpdateStatus(ctx context.Context, sessionToken string, flag StatusFlag, value bool) error

	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, resetToken, newPassword string) error
}

// SignUpRequest is the sign-up body.
type SignUpRequest struct {
	Username string   `json:"username" validate:"required"`
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password" validate:"required"`
	Roles    []string `json:"role,omitempty"`
}

// StatusFlag names one of the four account status toggles.
type StatusFlag string

const (
	FlagAccountExpired     StatusFlag = "expiry"
	FlagAccountLocked      StatusFlag = "lock"
	FlagAccountEnabled     StatusFlag = "enabled"
	FlagCredentialsExpired StatusFlag = "credentials-expiry"
)

// Route is the update route for the flag.
func (f StatusFlag) Route() string {
	switch f {
	case FlagAccountExpired:
		return RouteUpdateExpiryStatus
	case FlagAccountLocked:
		return RouteUpdateLockStatus
	case FlagAccountEnabled:
		return RouteUpdateEnabledStatus
	case FlagCredentialsExpired:
		return RouteUpdateCredentialsExpiryStatus
	}
	return ""
}

// Param is the form field carrying the new value.
func (f StatusFlag) Param() string {
	switch f {
	case FlagAccountLocked:
		return "lock"
	case FlagAccountEnabled:
		return "enabled"
	}
	return "expire"
}

func (f StatusFlag) Valid() bool {
	return f.Route() != ""
}

// AccountRecord is the provider's view of the current account.
type AccountRecord struct {
	ID                    int64    `json:"id"`
	Username              string   `json:"username"`
	Email                 string   `json:"email"`
	AccountNonLocked      bool     `json:"accountNonLocked"`
	AccountNonExpired     bool     `json:"accountNonExpired"`
	CredentialsNonExpired bool     `json:"credentialsNonExpired"`
	Enabled               bool     `json:"enabled"`
	CredentialsExpiryDate Date     `json:"credentialsExpiryDate"`
	AccountExpiryDate     Date     `json:"accountExpiryDate"`
	TwoFactorEnabled      bool     `json:"isTwoFactorEnabled"`
	Roles                 []string `json:"roles"`
}

const dateLayout = "2006-01-02"

// Date is a calendar date sent as "2006-01-02". Full RFC 3339 timestamps are accepted too.
type Date struct {
	time.Time
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(dateLayout))
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date: %w", err)
	}
	value := utils.Value(s)
	if value == "" {
		d.Time = time.Time{}
		return nil
	}
	for _, layout := range []string{dateLayout, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			d.Time = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("date: unrecognised value %q", value)
}

// StatusError is a non-2xx provider response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("provider responded %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("provider responded %d: %s", e.Code, e.Message)
}

// Is lets errors.Is(err, ErrUnauthorized) match 401 responses. A 403 is a refused
// operation, not a refused token, and leaves the session alone.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized && e.Code == http.StatusUnauthorized
}

// errorBody covers the error shapes the provider sends.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

const maxErrorMessage = 512

func newStatusError(code int, body []byte) *StatusError {
	msg := strings.TrimSpace(string(body))
	var eb errorBody
	if json.Unmarshal(body, &eb) == nil {
		switch {
		case eb.Message != "":
			msg = eb.Message
		case eb.Error != "":
			msg = eb.Error
		}
	}
	if len(msg) > maxErrorMessage {
		msg = msg[:maxErrorMessage]
	}
	return &StatusError{Code: code, Message: msg}
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}
