package auth

import (
	"context"
	"net/url"
	"sync"

	apperrors "github.com/jrsteele09/notes-auth-client/internal/errors"
	"github.com/jrsteele09/notes-auth-client/internal/notify"
	"github.com/jrsteele09/notes-auth-client/internal/validate"
	"github.com/jrsteele09/notes-auth-client/provider"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// EnrollmentState is the position of the account in two-factor enrollment.
type EnrollmentState int

const (
	Idle EnrollmentState = iota
	Enrolling
	Enrolled
)

func (s EnrollmentState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Enrolling:
		return "enrolling"
	case Enrolled:
		return "enrolled"
	}
	return "unknown"
}

// Provisioning is what the provider hands out when enrollment starts.
type Provisioning struct {
	QRCodeURL string
	Secret    string // empty when the URL does not carry one
}

type codeInput struct {
	Code string `validate:"required"`
}

// TwoFactor drives two-factor enrollment for the signed-in account and verifies
// second-factor challenges during sign-in.
type TwoFactor struct {
	provider     provider.Provider
	store        SessionStore
	state        EnrollmentState
	provisioning *Provisioning
	lock         sync.Mutex
	settings
}

func NewTwoFactor(p provider.Provider, store SessionStore, options ...Option) (*TwoFactor, error) {
	if p == nil {
		return nil, errors.New("[NewTwoFactor] provider is required")
	}
	if store == nil {
		return nil, errors.New("[NewTwoFactor] session store is required")
	}
	return &TwoFactor{provider: p, store: store, state: Idle, settings: newSettings(options)}, nil
}

func (tf *TwoFactor) State() EnrollmentState {
	tf.lock.Lock()
	defer tf.lock.Unlock()
	return tf.state
}

// Provisioning returns a copy of the current provisioning data, or nil.
func (tf *TwoFactor) Provisioning() *Provisioning {
	tf.lock.Lock()
	defer tf.lock.Unlock()
	if tf.provisioning == nil {
		return nil
	}
	p := *tf.provisioning
	return &p
}

// Status asks the provider whether two-factor is on and syncs the state with the answer.
// An enrollment in progress is kept while the provider still reports it off.
func (tf *TwoFactor) Status(ctx context.Context) (EnrollmentState, error) {
	tf.lock.Lock()
	defer tf.lock.Unlock()

	tok, err := tf.store.Token()
	if err != nil {
		return tf.state, tf.fail("2fa-status", "Please log in first", err)
	}
	enabled, err := tf.provider.TwoFactorStatus(ctx, tok.AccessToken)
	if err != nil {
		notify.Failure(tf.notifier, "2fa-status", "Error fetching 2FA status", err)
		return tf.state, errors.Wrap(err, "[TwoFactor.Status] provider.TwoFactorStatus")
	}
	switch {
	case enabled:
		tf.state = Enrolled
	case tf.state != Enrolling:
		tf.state = Idle
		tf.provisioning = nil
	}
	tf.setFlag(enabled)
	return tf.state, nil
}

// BeginEnroll starts enrollment and returns the provisioning data to show the user.
func (tf *TwoFactor) BeginEnroll(ctx context.Context) (*Provisioning, error) {
	tf.lock.Lock()
	defer tf.lock.Unlock()

	if tf.state != Idle {
		err := errors.Wrapf(ErrInvalidState, "[TwoFactor.BeginEnroll] state is %s", tf.state)
		return nil, tf.fail("enable-2fa", "2FA is already enabled or being set up", err)
	}
	tok, err := tf.store.Token()
	if err != nil {
		return nil, tf.fail("enable-2fa", "Please log in first", err)
	}
	qrURL, err := tf.provider.EnableTwoFactor(ctx, tok.AccessToken)
	if err != nil {
		notify.Failure(tf.notifier, "enable-2fa", "Error enabling 2FA", err)
		return nil, errors.Wrap(err, "[TwoFactor.BeginEnroll] provider.EnableTwoFactor")
	}
	tf.provisioning = &Provisioning{QRCodeURL: qrURL, Secret: secretFromURL(qrURL)}
	tf.state = Enrolling
	log.Debug().Msg("two-factor enrollment started")

	p := *tf.provisioning
	return &p, nil
}

// VerifyEnroll confirms enrollment with a code from the authenticator app. A wrong code
// leaves enrollment in progress so the user can retry.
func (tf *TwoFactor) VerifyEnroll(ctx context.Context, code string) error {
	tf.lock.Lock()
	defer tf.lock.Unlock()

	if tf.state != Enrolling {
		err := errors.Wrapf(ErrInvalidState, "[TwoFactor.VerifyEnroll] state is %s", tf.state)
		return tf.fail("verify-2fa", "No 2FA setup in progress", err)
	}
	if err := validate.Struct(codeInput{Code: code}); err != nil {
		notify.Failure(tf.notifier, "verify-2fa", "Please enter the code", err)
		return err
	}
	tok, err := tf.store.Token()
	if err != nil {
		return tf.fail("verify-2fa", "Please log in first", err)
	}
	if err := tf.provider.VerifyTwoFactor(ctx, tok.AccessToken, code); err != nil {
		err = apperrors.Mark(ErrChallengeFailed, err)
		notify.Failure(tf.notifier, "verify-2fa", "Invalid 2FA Code", err)
		return err
	}
	tf.state = Enrolled
	tf.setFlag(true)
	notify.Success(tf.notifier, "verify-2fa", "2FA Enabled Successfully")
	return nil
}

// CancelEnroll abandons an enrollment in progress.
func (tf *TwoFactor) CancelEnroll() error {
	tf.lock.Lock()
	defer tf.lock.Unlock()

	if tf.state != Enrolling {
		err := errors.Wrapf(ErrInvalidState, "[TwoFactor.CancelEnroll] state is %s", tf.state)
		return tf.fail("cancel-2fa", "No 2FA setup in progress", err)
	}
	tf.state = Idle
	tf.provisioning = nil
	return nil
}

// Disable turns two-factor off.
func (tf *TwoFactor) Disable(ctx context.Context) error {
	tf.lock.Lock()
	defer tf.lock.Unlock()

	if tf.state != Enrolled {
		err := errors.Wrapf(ErrInvalidState, "[TwoFactor.Disable] state is %s", tf.state)
		return tf.fail("disable-2fa", "2FA is not enabled", err)
	}
	tok, err := tf.store.Token()
	if err != nil {
		return tf.fail("disable-2fa", "Please log in first", err)
	}
	if err := tf.provider.DisableTwoFactor(ctx, tok.AccessToken); err != nil {
		notify.Failure(tf.notifier, "disable-2fa", "Error disabling 2FA", err)
		return errors.Wrap(err, "[TwoFactor.Disable] provider.DisableTwoFactor")
	}
	tf.state = Idle
	tf.provisioning = nil
	tf.setFlag(false)
	notify.Success(tf.notifier, "disable-2fa", "2FA disabled")
	return nil
}

// VerifyLoginChallenge completes a challenged sign-in. On success the finalized token is
// committed to the session store and the ticket is consumed; on failure the ticket can
// be tried again.
func (tf *TwoFactor) VerifyLoginChallenge(ctx context.Context, ticket *PendingTicket, code string) error {
	if ticket == nil {
		err := errors.Wrap(ErrValidation, "[TwoFactor.VerifyLoginChallenge] no ticket")
		return tf.fail("verify-2fa-login", "Please log in first", err)
	}
	if err := validate.Struct(codeInput{Code: code}); err != nil {
		notify.Failure(tf.notifier, "verify-2fa-login", "Please enter the code", err)
		return err
	}

	err := ticket.redeem(func(pendingToken string) error {
		finalToken, err := tf.provider.VerifyTwoFactorLogin(ctx, pendingToken, code)
		if err != nil {
			return apperrors.Mark(ErrChallengeFailed, err)
		}
		if _, err := tf.store.SetToken(finalToken); err != nil {
			return errors.Wrap(err, "[TwoFactor.VerifyLoginChallenge] store.SetToken")
		}
		return nil
	})
	switch {
	case errors.Is(err, ErrTicketConsumed):
		notify.Failure(tf.notifier, "verify-2fa-login", "This sign-in has expired, please log in again", err)
		return err
	case errors.Is(err, ErrChallengeFailed):
		log.Err(err).Str("username", ticket.Username()).Msg("two-factor challenge failed")
		notify.Failure(tf.notifier, "verify-2fa-login", "Invalid 2FA Code", err)
		return err
	case err != nil:
		notify.Failure(tf.notifier, "verify-2fa-login", "Login failed", err)
		return err
	}
	notify.Success(tf.notifier, "verify-2fa-login", "Login Successful")
	return nil
}

// fail reports err to the user and returns it.
func (tf *TwoFactor) fail(op, msg string, err error) error {
	notify.Failure(tf.notifier, op, msg, err)
	return err
}

func (tf *TwoFactor) setFlag(enabled bool) {
	if tf.cache != nil {
		tf.cache.SetTwoFactorEnabled(enabled)
	}
}

// secretFromURL pulls the secret out of an otpauth URL, possibly nested in a QR image URL.
func secretFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if s := u.Query().Get("secret"); s != "" {
		return s
	}
	if inner := u.Query().Get("data"); inner != "" {
		return secretFromURL(inner)
	}
	return ""
}
