package auth

import (
	"time"

	"github.com/jrsteele09/notes-auth-client/internal/notify"
	"github.com/jrsteele09/notes-auth-client/session"
	"golang.org/x/oauth2"
)

// SessionStore is the part of session.Store the auth flows depend on.
type SessionStore interface {
	oauth2.TokenSource
	SetToken(rawToken string) (*session.Session, error)
	Clear() error
}

var _ SessionStore = (*session.Store)(nil)

// FlagCache receives the account's two-factor flag when it changes.
type FlagCache interface {
	SetTwoFactorEnabled(enabled bool)
}

type settings struct {
	notifier notify.Notifier
	cache    FlagCache
	nowTime  func() time.Time
}

// Option configures an Authenticator or a TwoFactor controller.
type Option func(*settings)

// WithNotifier sets where success and failure notifications go.
func WithNotifier(n notify.Notifier) Option {
	return func(s *settings) {
		s.notifier = n
	}
}

// WithFlagCache keeps a cached account record's two-factor flag in step with enrollment.
func WithFlagCache(c FlagCache) Option {
	return func(s *settings) {
		s.cache = c
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *settings) {
		s.nowTime = nowFunc
	}
}

func newSettings(options []Option) settings {
	s := settings{nowTime: time.Now}
	for _, opt := range options {
		opt(&s)
	}
	return s
}
