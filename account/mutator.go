package account

import (
	"context"
	"fmt"
	"sync"

	apperrors "github.com/jrsteele09/notes-auth-client/internal/errors"
	"github.com/jrsteele09/notes-auth-client/internal/notify"
	"github.com/jrsteele09/notes-auth-client/internal/validate"
	"github.com/jrsteele09/notes-auth-client/provider"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

var (
	ErrMutationFailed = apperrors.ErrMutationFailed
	ErrNoSession      = apperrors.ErrNoSession
	ErrValidation     = apperrors.ErrValidation
)

// SessionStore is the part of session.Store the Mutator depends on.
type SessionStore interface {
	oauth2.TokenSource
	Clear() error
}

// Mutator reads and changes the signed-in account.
type Mutator struct {
	provider  provider.Provider
	store     SessionStore
	cache     *Cache
	notifier  notify.Notifier
	flagLocks map[Flag]*sync.Mutex
	credLock  sync.Mutex
}

// MutatorOption defines a function type to modify the Mutator instance.
type MutatorOption func(*Mutator)

func WithNotifier(n notify.Notifier) MutatorOption {
	return func(m *Mutator) {
		m.notifier = n
	}
}

func NewMutator(p provider.Provider, store SessionStore, cache *Cache, options ...MutatorOption) (*Mutator, error) {
	if p == nil {
		return nil, fmt.Errorf("[account.NewMutator] provider is required")
	}
	if store == nil {
		return nil, fmt.Errorf("[account.NewMutator] session store is required")
	}
	if cache == nil {
		cache = NewCache()
	}
	m := &Mutator{
		provider:  p,
		store:     store,
		cache:     cache,
		flagLocks: make(map[Flag]*sync.Mutex, len(Flags)),
	}
	for _, flag := range Flags {
		m.flagLocks[flag] = &sync.Mutex{}
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

func (m *Mutator) Cache() *Cache {
	return m.cache
}

// Refresh loads the account from the provider into the cache. It waits for status
// changes in flight so a rollback never overwrites what it loaded.
func (m *Mutator) Refresh(ctx context.Context) (Record, error) {
	for _, flag := range Flags {
		m.flagLocks[flag].Lock()
		defer m.flagLocks[flag].Unlock()
	}

	tok, err := m.store.Token()
	if err != nil {
		notify.Failure(m.notifier, "account", "Please log in first", err)
		return Record{}, err
	}
	pr, err := m.provider.CurrentUser(ctx, tok.AccessToken)
	if err != nil {
		m.dropSessionIfRefused(err)
		notify.Failure(m.notifier, "account", "Error fetching user data", err)
		return Record{}, fmt.Errorf("[account.Refresh] provider.CurrentUser: %w", err)
	}
	rec := RecordFromProvider(pr)
	m.cache.Set(rec)
	return rec, nil
}

type credentialsInput struct {
	Username string `validate:"required"`
}

// UpdateCredentials changes the username and, when newPassword is set, the password.
// The session token is not replaced; only the cached username follows the change.
func (m *Mutator) UpdateCredentials(ctx context.Context, newUsername, newPassword string) error {
	if err := validate.Struct(credentialsInput{Username: newUsername}); err != nil {
		notify.Failure(m.notifier, "update-credentials", "Username is required", err)
		return err
	}

	m.credLock.Lock()
	defer m.credLock.Unlock()

	tok, err := m.store.Token()
	if err != nil {
		notify.Failure(m.notifier, "update-credentials", "Please log in first", err)
		return err
	}
	if err := m.provider.UpdateCredentials(ctx, tok.AccessToken, newUsername, newPassword); err != nil {
		m.dropSessionIfRefused(err)
		err = apperrors.Mark(ErrMutationFailed, err)
		notify.Failure(m.notifier, "update-credentials", "Error updating credentials", err)
		return err
	}
	m.cache.SetUsername(newUsername)
	notify.Success(m.notifier, "update-credentials", "Update Credential successful")
	return nil
}

func (m *Mutator) SetAccountExpired(ctx context.Context, expired bool) error {
	return m.setFlag(ctx, FlagAccountExpired, expired)
}

func (m *Mutator) SetAccountLocked(ctx context.Context, locked bool) error {
	return m.setFlag(ctx, FlagAccountLocked, locked)
}

func (m *Mutator) SetAccountEnabled(ctx context.Context, enabled bool) error {
	return m.setFlag(ctx, FlagAccountEnabled, enabled)
}

func (m *Mutator) SetCredentialsExpired(ctx context.Context, expired bool) error {
	return m.setFlag(ctx, FlagCredentialsExpired, expired)
}

// SetFlag changes any status toggle.
func (m *Mutator) SetFlag(ctx context.Context, flag Flag, value bool) error {
	return m.setFlag(ctx, flag, value)
}

// setFlag shows value immediately and reverts to the previous value if the provider
// does not confirm it. Changes to one flag run one at a time.
func (m *Mutator) setFlag(ctx context.Context, flag Flag, value bool) error {
	op := "set-" + string(flag)
	lock, ok := m.flagLocks[flag]
	if !ok {
		err := fmt.Errorf("%w: unknown account flag %q", ErrValidation, flag)
		notify.Failure(m.notifier, op, "Unknown account status", err)
		return err
	}
	lock.Lock()
	defer lock.Unlock()

	tok, err := m.store.Token()
	if err != nil {
		notify.Failure(m.notifier, op, "Please log in first", err)
		return err
	}

	var prev, applied bool
	change := Optimistic{
		Apply: func() {
			prev, applied = m.cache.swapFlag(flag, value)
		},
		Commit: func(ctx context.Context) error {
			return m.provider.UpdateStatus(ctx, tok.AccessToken, flag, value)
		},
		Rollback: func() {
			if applied {
				m.cache.swapFlag(flag, prev)
			}
		},
	}
	if err := change.Run(ctx); err != nil {
		log.Err(err).Str("flag", string(flag)).Bool("value", value).Msg("account update rolled back")
		m.dropSessionIfRefused(err)
		err = apperrors.Mark(ErrMutationFailed, err)
		notify.Failure(m.notifier, op, "Failed to update account status", err)
		return err
	}
	notify.Success(m.notifier, op, "Account status updated")
	return nil
}

// dropSessionIfRefused clears the session when the provider no longer accepts its token.
func (m *Mutator) dropSessionIfRefused(err error) {
	if !apperrors.Is(err, provider.ErrUnauthorized) {
		return
	}
	log.Warn().Msg("provider refused the session token, signing out")
	if clearErr := m.store.Clear(); clearErr != nil {
		log.Err(clearErr).Msg("failed to clear refused session")
	}
	m.cache.Clear()
}
