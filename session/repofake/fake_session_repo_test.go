package repofake_test

import (
	"testing"

	"github.com/jrsteele09/notes-auth-client/session"
	"github.com/jrsteele09/notes-auth-client/session/repofake"
	"github.com/jrsteele09/notes-auth-client/session/repotest"
	"github.com/stretchr/testify/require"
)

func TestFakeSessionRepo(t *testing.T) {
	repotest.Run(t, func(t *testing.T) session.Repo {
		return repofake.NewFakeSessionRepo()
	})
}

func TestFakeSessionRepo_HalfWrittenIsAbsent(t *testing.T) {
	repo := repofake.NewFakeSessionRepo()
	repo.SetRaw(session.TokenKey, []byte("only-the-token"))

	_, err := repo.Get()
	require.ErrorIs(t, err, session.ErrNotFound)
}
