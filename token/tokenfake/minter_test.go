package tokenfake_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/notes-auth-client/token/tokenfake"
	"github.com/stretchr/testify/require"
)

func TestMinter(t *testing.T) {
	m := tokenfake.NewMinter("secret")

	raw, err := m.Mint(tokenfake.Grant{Subject: "alice", TTL: time.Hour})
	require.NoError(t, err)

	sub, err := m.Verify(raw)
	require.NoError(t, err)
	require.Equal(t, "alice", sub)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := tokenfake.NewMinter("other").Verify(raw)
		require.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		prev := tokenfake.NowTimeFunc
		t.Cleanup(func() { tokenfake.NowTimeFunc = prev })

		tokenfake.NowTimeFunc = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		old := m.MustMint(tokenfake.Grant{Subject: "alice", TTL: time.Hour})
		tokenfake.NowTimeFunc = time.Now

		_, err := m.Verify(old)
		require.Error(t, err)
	})
}
