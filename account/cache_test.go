package account_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/jrsteele09/notes-auth-client/account"
	"github.com/jrsteele09/notes-auth-client/provider"
	"github.com/stretchr/testify/require"
)

func TestRecordFromProvider(t *testing.T) {
	rec := account.RecordFromProvider(&provider.AccountRecord{
		Username:              "alice",
		AccountNonLocked:      false,
		AccountNonExpired:     true,
		CredentialsNonExpired: false,
		Enabled:               true,
		Roles:                 []string{"ROLE_ADMIN"},
	})
	require.True(t, rec.Flag(account.FlagAccountLocked))
	require.False(t, rec.Flag(account.FlagAccountExpired))
	require.True(t, rec.Flag(account.FlagCredentialsExpired))
	require.True(t, rec.Flag(account.FlagAccountEnabled))
	require.Equal(t, []string{"ROLE_ADMIN"}, rec.Roles)
}

func TestCache_Subscribe(t *testing.T) {
	cache := account.NewCache()
	var seen []*account.Record
	unsubscribe := cache.Subscribe(func(r *account.Record) { seen = append(seen, r) })

	cache.SetTwoFactorEnabled(true)
	require.Empty(t, seen, "nothing loaded, nothing to change")

	cache.Set(account.Record{Username: "alice"})
	cache.SetTwoFactorEnabled(true)
	cache.SetUsername("alice_2")
	cache.Clear()

	require.Len(t, seen, 4)
	require.Equal(t, "alice", seen[0].Username)
	require.True(t, seen[1].TwoFactorEnabled)
	require.Equal(t, "alice_2", seen[2].Username)
	require.Nil(t, seen[3])

	unsubscribe()
	cache.Set(account.Record{Username: "bob"})
	require.Len(t, seen, 4)
}

func TestCache_SubscribersEndOnLatestRecord(t *testing.T) {
	for round := range 20 {
		cache := account.NewCache()
		cache.Set(account.Record{Username: "alice"})

		var mu sync.Mutex
		var last *account.Record
		cache.Subscribe(func(r *account.Record) {
			mu.Lock()
			defer mu.Unlock()
			last = r
		})

		var wg sync.WaitGroup
		for i := range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				cache.SetUsername(fmt.Sprintf("user_%d_%d", round, i))
			}()
		}
		wg.Wait()

		want, ok := cache.Get()
		require.True(t, ok)
		mu.Lock()
		require.NotNil(t, last)
		require.Equal(t, want.Username, last.Username)
		mu.Unlock()
	}
}

func TestCache_GetReturnsCopy(t *testing.T) {
	cache := account.NewCache()
	cache.Set(account.Record{Username: "alice", Roles: []string{"ROLE_USER"}})

	rec, ok := cache.Get()
	require.True(t, ok)
	rec.Roles[0] = "ROLE_ADMIN"

	again, _ := cache.Get()
	require.Equal(t, []string{"ROLE_USER"}, again.Roles)
}

func TestOptimistic_Run(t *testing.T) {
	value := 1
	var prev int
	op := func(commitErr error) account.Optimistic {
		return account.Optimistic{
			Apply:    func() { prev, value = value, 2 },
			Commit:   func(context.Context) error { return commitErr },
			Rollback: func() { value = prev },
		}
	}

	boom := errors.New("boom")
	require.ErrorIs(t, op(boom).Run(t.Context()), boom)
	require.Equal(t, 1, value)

	require.NoError(t, op(nil).Run(t.Context()))
	require.Equal(t, 2, value)
}
