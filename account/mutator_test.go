package account_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/notes-auth-client/account"
	"github.com/jrsteele09/notes-auth-client/internal/notify"
	"github.com/jrsteele09/notes-auth-client/provider"
	"github.com/jrsteele09/notes-auth-client/provider/providerfake"
	"github.com/jrsteele09/notes-auth-client/session"
	"github.com/jrsteele09/notes-auth-client/session/repofake"
	"github.com/stretchr/testify/require"
)

const testUser = "alice"

type testFixture struct {
	fake    *providerfake.FakeProvider
	store   *session.Store
	cache   *account.Cache
	notes   *notify.Recorder
	mutator *account.Mutator
}

// setupTestFixture signs alice in and loads her account into the cache.
func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	fake := providerfake.New()
	fake.MustAddAccount(providerfake.Account{Username: testUser, Email: "alice@example.com", Password: "password123"})

	store, err := session.NewStore(repofake.NewFakeSessionRepo())
	require.NoError(t, err)
	_, err = store.SetToken(fake.SessionToken(testUser))
	require.NoError(t, err)

	cache := account.NewCache()
	notes := &notify.Recorder{}
	mutator, err := account.NewMutator(fake, store, cache, account.WithNotifier(notes))
	require.NoError(t, err)

	_, err = mutator.Refresh(t.Context())
	require.NoError(t, err)

	return &testFixture{fake: fake, store: store, cache: cache, notes: notes, mutator: mutator}
}

func (f *testFixture) cached(t *testing.T) account.Record {
	t.Helper()
	rec, ok := f.cache.Get()
	require.True(t, ok)
	return rec
}

func TestRefresh(t *testing.T) {
	f := setupTestFixture(t)

	rec := f.cached(t)
	require.Equal(t, testUser, rec.Username)
	require.Equal(t, "alice@example.com", rec.Email)
	require.False(t, rec.AccountLocked)
	require.True(t, rec.Enabled)
	require.False(t, rec.AccountExpiryDate.IsZero())
}

func TestRefresh_NoSession(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Clear())
	calls := f.fake.Calls(providerfake.OpCurrentUser)

	_, err := f.mutator.Refresh(t.Context())
	require.ErrorIs(t, err, account.ErrNoSession)
	require.Equal(t, calls, f.fake.Calls(providerfake.OpCurrentUser))

	last, ok := f.notes.Last()
	require.True(t, ok)
	require.Equal(t, notify.LevelError, last.Level)
	require.ErrorIs(t, last.Err, account.ErrNoSession)

	before := len(f.notes.Errors())
	require.ErrorIs(t, f.mutator.SetAccountLocked(t.Context(), true), account.ErrNoSession)
	require.ErrorIs(t, f.mutator.UpdateCredentials(t.Context(), "alice_2", ""), account.ErrNoSession)
	require.Len(t, f.notes.Errors(), before+2)
	require.Zero(t, f.fake.Calls(providerfake.OpUpdateStatus))
}

func TestSetAccountLocked(t *testing.T) {
	t.Run("success keeps the new value", func(t *testing.T) {
		f := setupTestFixture(t)

		require.NoError(t, f.mutator.SetAccountLocked(t.Context(), true))
		require.True(t, f.cached(t).AccountLocked)

		rec, _ := f.fake.Account(testUser)
		require.False(t, rec.AccountNonLocked)
	})

	t.Run("failure restores the previous value", func(t *testing.T) {
		f := setupTestFixture(t)
		boom := errors.New("boom")

		var during bool
		f.fake.OnCall(providerfake.OpUpdateStatus, func(context.Context) error {
			during = f.cached(t).AccountLocked
			return boom
		})

		err := f.mutator.SetAccountLocked(t.Context(), true)
		require.ErrorIs(t, err, account.ErrMutationFailed)
		require.ErrorIs(t, err, boom)
		require.True(t, during, "new value shown while the provider is asked")
		require.False(t, f.cached(t).AccountLocked)

		last, ok := f.notes.Last()
		require.True(t, ok)
		require.Equal(t, notify.LevelError, last.Level)
	})
}

func TestSetFlags_RollbackForEveryFlag(t *testing.T) {
	for _, flag := range account.Flags {
		t.Run(string(flag), func(t *testing.T) {
			f := setupTestFixture(t)
			before := f.cached(t)

			f.fake.Fail(providerfake.OpUpdateStatus, &provider.StatusError{Code: 500, Message: "nope"})
			err := f.mutator.SetFlag(t.Context(), flag, !before.Flag(flag))
			require.ErrorIs(t, err, account.ErrMutationFailed)
			require.Equal(t, before, f.cached(t))

			f.fake.OnCall(providerfake.OpUpdateStatus, nil)
			require.NoError(t, f.mutator.SetFlag(t.Context(), flag, !before.Flag(flag)))
			require.Equal(t, !before.Flag(flag), f.cached(t).Flag(flag))
		})
	}
}

func TestSetFlag_TimeoutRollsBack(t *testing.T) {
	f := setupTestFixture(t)
	f.fake.OnCall(providerfake.OpUpdateStatus, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()

	err := f.mutator.SetAccountEnabled(ctx, false)
	require.ErrorIs(t, err, account.ErrMutationFailed)
	require.True(t, f.cached(t).Enabled)
}

func TestSetFlag_UnauthorizedClearsSession(t *testing.T) {
	f := setupTestFixture(t)
	f.fake.Fail(providerfake.OpUpdateStatus, &provider.StatusError{Code: 401, Message: "Invalid JWT token"})

	err := f.mutator.SetAccountExpired(t.Context(), true)
	require.ErrorIs(t, err, account.ErrMutationFailed)
	require.ErrorIs(t, err, provider.ErrUnauthorized)

	_, ok := f.store.Get()
	require.False(t, ok)
	_, ok = f.cache.Get()
	require.False(t, ok)
}

func TestSetFlag_SameFlagIsSerialised(t *testing.T) {
	f := setupTestFixture(t)

	entered := make(chan struct{}, 2)
	release := make(chan struct{})
	f.fake.OnCall(providerfake.OpUpdateStatus, func(context.Context) error {
		entered <- struct{}{}
		<-release
		return nil
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		require.NoError(t, f.mutator.SetAccountLocked(t.Context(), true))
	}()
	<-entered

	go func() {
		defer wg.Done()
		require.NoError(t, f.mutator.SetAccountLocked(t.Context(), false))
	}()

	select {
	case <-entered:
		t.Fatal("second change to the same flag started before the first finished")
	case <-time.After(50 * time.Millisecond):
	}
	require.Equal(t, 1, f.fake.Calls(providerfake.OpUpdateStatus))

	close(release)
	wg.Wait()
	require.Equal(t, 2, f.fake.Calls(providerfake.OpUpdateStatus))
	require.False(t, f.cached(t).AccountLocked)
}

func TestSetFlag_QueuedFailureRestoresCommittedValue(t *testing.T) {
	f := setupTestFixture(t)
	require.False(t, f.cached(t).AccountLocked)
	boom := errors.New("boom")

	var calls atomic.Int32
	entered := make(chan struct{}, 2)
	release := make(chan struct{})
	f.fake.OnCall(providerfake.OpUpdateStatus, func(context.Context) error {
		n := calls.Add(1)
		entered <- struct{}{}
		<-release
		if n == 2 {
			return boom
		}
		return nil
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		require.NoError(t, f.mutator.SetAccountLocked(t.Context(), true))
	}()
	<-entered

	var second error
	go func() {
		defer wg.Done()
		second = f.mutator.SetAccountLocked(t.Context(), false)
	}()

	close(release)
	wg.Wait()

	require.ErrorIs(t, second, account.ErrMutationFailed)
	require.True(t, f.cached(t).AccountLocked, "rollback restores the first change, not the original value")
	rec, _ := f.fake.Account(testUser)
	require.False(t, rec.AccountNonLocked)
}

func TestRefresh_WaitsForStatusChange(t *testing.T) {
	f := setupTestFixture(t)

	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	f.fake.OnCall(providerfake.OpUpdateStatus, func(context.Context) error {
		entered <- struct{}{}
		<-release
		return errors.New("boom")
	})

	toggled := make(chan error, 1)
	go func() { toggled <- f.mutator.SetAccountLocked(t.Context(), true) }()
	<-entered

	calls := f.fake.Calls(providerfake.OpCurrentUser)
	refreshed := make(chan error, 1)
	go func() {
		_, err := f.mutator.Refresh(t.Context())
		refreshed <- err
	}()

	select {
	case <-refreshed:
		t.Fatal("Refresh ran while a status change was in flight")
	case <-time.After(50 * time.Millisecond):
	}
	require.Equal(t, calls, f.fake.Calls(providerfake.OpCurrentUser))

	close(release)
	require.ErrorIs(t, <-toggled, account.ErrMutationFailed)
	require.NoError(t, <-refreshed)
	require.False(t, f.cached(t).AccountLocked)
}

func TestSetFlag_DifferentFlagsRunConcurrently(t *testing.T) {
	f := setupTestFixture(t)

	entered := make(chan struct{}, 2)
	release := make(chan struct{})
	f.fake.OnCall(providerfake.OpUpdateStatus, func(context.Context) error {
		entered <- struct{}{}
		<-release
		return nil
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		require.NoError(t, f.mutator.SetAccountLocked(t.Context(), true))
	}()
	go func() {
		defer wg.Done()
		require.NoError(t, f.mutator.SetCredentialsExpired(t.Context(), true))
	}()

	for range 2 {
		select {
		case <-entered:
		case <-time.After(2 * time.Second):
			t.Fatal("changes to different flags did not overlap")
		}
	}
	close(release)
	wg.Wait()

	rec := f.cached(t)
	require.True(t, rec.AccountLocked)
	require.True(t, rec.CredentialsExpired)
}

func TestSetFlag_UnknownFlag(t *testing.T) {
	f := setupTestFixture(t)
	err := f.mutator.SetFlag(t.Context(), account.Flag("bogus"), true)
	require.ErrorIs(t, err, account.ErrValidation)
	require.Zero(t, f.fake.Calls(providerfake.OpUpdateStatus))
	require.Len(t, f.notes.Errors(), 1)
}

func TestUpdateCredentials(t *testing.T) {
	f := setupTestFixture(t)
	tokenBefore, _ := f.store.Get()

	require.NoError(t, f.mutator.UpdateCredentials(t.Context(), "alice_2", "new-password"))
	require.Equal(t, "alice_2", f.cached(t).Username)

	sess, ok := f.store.Get()
	require.True(t, ok)
	require.Equal(t, tokenBefore.Token, sess.Token, "token is not replaced")

	_, err := f.fake.SignIn(t.Context(), "alice_2", "new-password")
	require.NoError(t, err)
}

func TestUpdateCredentials_Failure(t *testing.T) {
	f := setupTestFixture(t)
	f.fake.MustAddAccount(providerfake.Account{Username: "bob", Email: "bob@example.com", Password: "password123"})

	err := f.mutator.UpdateCredentials(t.Context(), "bob", "")
	require.ErrorIs(t, err, account.ErrMutationFailed)
	require.Equal(t, testUser, f.cached(t).Username)

	require.ErrorIs(t, f.mutator.UpdateCredentials(t.Context(), "", "x"), account.ErrValidation)
}
