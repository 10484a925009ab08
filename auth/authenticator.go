package auth

import (
	"context"

	apperrors "github.com/jrsteele09/notes-auth-client/internal/errors"
	"github.com/jrsteele09/notes-auth-client/internal/notify"
	"github.com/jrsteele09/notes-auth-client/internal/validate"
	"github.com/jrsteele09/notes-auth-client/provider"
	"github.com/jrsteele09/notes-auth-client/token"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// LoginOutcome is either *Authenticated or *ChallengeRequired.
type LoginOutcome interface {
	isLoginOutcome()
}

// Authenticated means the sign-in is complete and the session store holds the token.
type Authenticated struct {
	Token  string
	Claims *token.Claims
}

// ChallengeRequired means a second factor must be verified with the ticket.
type ChallengeRequired struct {
	Ticket *PendingTicket
}

func (*Authenticated) isLoginOutcome()     {}
func (*ChallengeRequired) isLoginOutcome() {}

type credentials struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

// Authenticator exchanges credentials for a session.
type Authenticator struct {
	provider provider.Provider
	store    SessionStore
	settings
}

// NewAuthenticator initializes an Authenticator with required dependencies.
func NewAuthenticator(p provider.Provider, store SessionStore, options ...Option) (*Authenticator, error) {
	if p == nil {
		return nil, errors.New("[NewAuthenticator] provider is required")
	}
	if store == nil {
		return nil, errors.New("[NewAuthenticator] session store is required")
	}
	return &Authenticator{provider: p, store: store, settings: newSettings(options)}, nil
}

// Login signs in with username and password. Without two-factor the session store is
// populated before Login returns; otherwise the returned ticket must be verified and
// the store is left untouched.
func (a *Authenticator) Login(ctx context.Context, username, password string) (LoginOutcome, error) {
	if err := validate.Struct(credentials{Username: username, Password: password}); err != nil {
		notify.Failure(a.notifier, "login", "Username and password are required", err)
		return nil, err
	}

	rawToken, err := a.provider.SignIn(ctx, username, password)
	if err != nil {
		rej := rejection(err)
		log.Err(err).Str("username", username).Msg("sign-in rejected")
		notify.Failure(a.notifier, "login", rej.Reason, rej)
		return nil, rej
	}

	claims, err := token.Decode(rawToken)
	if err != nil {
		rej := &RejectedError{Reason: "Login failed", Cause: err}
		log.Err(err).Str("username", username).Msg("provider issued an unreadable token")
		notify.Failure(a.notifier, "login", rej.Reason, rej)
		return nil, rej
	}

	if claims.TwoFactorEnabled {
		log.Debug().Str("username", claims.Subject).Msg("two-factor challenge required")
		return &ChallengeRequired{Ticket: newPendingTicket(rawToken, claims, a.nowTime())}, nil
	}

	if _, err := a.store.SetToken(rawToken); err != nil {
		notify.Failure(a.notifier, "login", "Login failed", err)
		return nil, errors.Wrap(err, "[Authenticator.Login] store.SetToken")
	}
	notify.Success(a.notifier, "login", "Login Successful")
	return &Authenticated{Token: rawToken, Claims: claims}, nil
}

// SignUp registers a new account. It does not sign in.
func (a *Authenticator) SignUp(ctx context.Context, req provider.SignUpRequest) error {
	if err := validate.Struct(req); err != nil {
		notify.Failure(a.notifier, "signup", "Please fill in all required fields", err)
		return err
	}
	if err := a.provider.SignUp(ctx, req); err != nil {
		if usernameTaken(err) {
			err = apperrors.Mark(ErrUsernameTaken, err)
			notify.Failure(a.notifier, "signup", "Username is already taken", err)
			return err
		}
		notify.Failure(a.notifier, "signup", "Registration failed", err)
		return errors.Wrap(err, "[Authenticator.SignUp] provider.SignUp")
	}
	notify.Success(a.notifier, "signup", "Register Successful")
	return nil
}

// Logout clears the session.
func (a *Authenticator) Logout() error {
	if err := a.store.Clear(); err != nil {
		notify.Failure(a.notifier, "logout", "Could not remove the stored session", err)
		return errors.Wrap(err, "[Authenticator.Logout] store.Clear")
	}
	notify.Success(a.notifier, "logout", "Logged out")
	return nil
}
