// Package repotest is the behaviour suite every session.Repo must pass.
package repotest

import (
	"testing"

	"github.com/jrsteele09/notes-auth-client/session"
	"github.com/stretchr/testify/require"
)

// Run exercises repo against the durable storage contract.
func Run(t *testing.T, newRepo func(t *testing.T) session.Repo) {
	t.Helper()

	t.Run("GetEmpty", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Get()
		require.ErrorIs(t, err, session.ErrNotFound)
	})

	t.Run("PutAndGet", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Put(session.Record{Token: "tok-1", User: []byte(`{"username":"alice"}`)}))

		rec, err := repo.Get()
		require.NoError(t, err)
		require.Equal(t, "tok-1", rec.Token)
		require.JSONEq(t, `{"username":"alice"}`, string(rec.User))
	})

	t.Run("Overwrite", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Put(session.Record{Token: "tok-v1", User: []byte(`{}`)}))
		require.NoError(t, repo.Put(session.Record{Token: "tok-v2", User: []byte(`{"username":"bob"}`)}))

		rec, err := repo.Get()
		require.NoError(t, err)
		require.Equal(t, "tok-v2", rec.Token)
		require.JSONEq(t, `{"username":"bob"}`, string(rec.User))
	})

	t.Run("DeleteRemovesBothKeys", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Put(session.Record{Token: "tok-del", User: []byte(`{}`)}))
		require.NoError(t, repo.Delete())

		_, err := repo.Get()
		require.ErrorIs(t, err, session.ErrNotFound)
	})

	t.Run("DeleteMissing", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Delete())
	})
}
