package auth_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/notes-auth-client/auth"
	"github.com/jrsteele09/notes-auth-client/internal/notify"
	"github.com/jrsteele09/notes-auth-client/provider/providerfake"
	"github.com/jrsteele09/notes-auth-client/session"
	"github.com/jrsteele09/notes-auth-client/session/repofake"
	"github.com/stretchr/testify/require"
)

const (
	testPassword = "password123"
	plainUser    = "alice"
	guardedUser  = "bob"
)

var testNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

// testFixture holds all test dependencies
type testFixture struct {
	fake          *providerfake.FakeProvider
	repo          *repofake.FakeSessionRepo
	store         *session.Store
	notes         *notify.Recorder
	cache         *flagCache
	authenticator *auth.Authenticator
	twoFactor     *auth.TwoFactor
	guardedSecret string
}

// setupTestFixture creates a provider with one plain account and one with two-factor on.
func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	fake := providerfake.New(providerfake.WithNowTime(func() time.Time { return testNow }))
	secret := providerfake.GenerateSecret()
	fake.MustAddAccount(providerfake.Account{Username: plainUser, Email: "alice@example.com", Password: testPassword})
	fake.MustAddAccount(providerfake.Account{
		Username:        guardedUser,
		Email:           "bob@example.com",
		Password:        testPassword,
		TwoFactorSecret: secret,
	})

	repo := repofake.NewFakeSessionRepo()
	store, err := session.NewStore(repo)
	require.NoError(t, err)

	notes := &notify.Recorder{}
	cache := &flagCache{}
	authenticator, err := auth.NewAuthenticator(fake, store, auth.WithNotifier(notes))
	require.NoError(t, err)
	twoFactor, err := auth.NewTwoFactor(fake, store, auth.WithNotifier(notes), auth.WithFlagCache(cache))
	require.NoError(t, err)

	return &testFixture{
		fake:          fake,
		repo:          repo,
		store:         store,
		notes:         notes,
		cache:         cache,
		authenticator: authenticator,
		twoFactor:     twoFactor,
		guardedSecret: secret,
	}
}

// validCode returns the code the fake accepts for secret right now.
func validCode(secret string) string {
	return providerfake.CodeFor(secret, testNow)
}

// wrongCode returns a six digit code the fake rejects for secret.
func wrongCode(secret string) string {
	accepted := map[string]bool{}
	for _, d := range []time.Duration{-30 * time.Second, 0, 30 * time.Second} {
		accepted[providerfake.CodeFor(secret, testNow.Add(d))] = true
	}
	for i := 0; ; i++ {
		candidate := fmt.Sprintf("%06d", i*111111%1000000)
		if !accepted[candidate] {
			return candidate
		}
	}
}

func (f *testFixture) signIn(t *testing.T, username string) {
	t.Helper()
	outcome, err := f.authenticator.Login(t.Context(), username, testPassword)
	require.NoError(t, err)
	require.IsType(t, &auth.Authenticated{}, outcome)
}

type flagCache struct {
	mu      sync.Mutex
	enabled *bool
}

func (c *flagCache) SetTwoFactorEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = &enabled
}

func (c *flagCache) value() (bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.enabled == nil {
		return false, false
	}
	return *c.enabled, true
}
