package recovery_test

import (
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/notes-auth-client/internal/notify"
	"github.com/jrsteele09/notes-auth-client/provider"
	"github.com/jrsteele09/notes-auth-client/provider/providerfake"
	"github.com/jrsteele09/notes-auth-client/recovery"
	"github.com/stretchr/testify/require"
)

const knownEmail = "alice@example.com"

type testFixture struct {
	fake   *providerfake.FakeProvider
	server *httptest.Server
	notes  *notify.Recorder
	flow   *recovery.Flow
}

// setupTestFixture runs the flow against the fake provider over HTTP.
func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	fake := providerfake.New()
	fake.MustAddAccount(providerfake.Account{Username: "alice", Email: knownEmail, Password: "password123"})
	server := httptest.NewServer(providerfake.NewServer(fake))
	t.Cleanup(server.Close)

	notes := &notify.Recorder{}
	flow, err := recovery.NewFlow(provider.NewHTTPClient(server.URL), recovery.WithNotifier(notes))
	require.NoError(t, err)

	return &testFixture{fake: fake, server: server, notes: notes, flow: flow}
}

func TestRequestReset_SameOutcomeForAnyAddress(t *testing.T) {
	f := setupTestFixture(t)

	require.NoError(t, f.flow.RequestReset(t.Context(), knownEmail))
	known, ok := f.notes.Last()
	require.True(t, ok)

	require.NoError(t, f.flow.RequestReset(t.Context(), "nobody@example.com"))
	unknown, ok := f.notes.Last()
	require.True(t, ok)

	require.Equal(t, known, unknown)
	require.Equal(t, notify.LevelSuccess, unknown.Level)
	require.Equal(t, 2, f.fake.Calls(providerfake.OpForgotPassword))

	_, issued := f.fake.ResetTokenFor(knownEmail)
	require.True(t, issued)
}

func TestRequestReset_TransportFailureIsReported(t *testing.T) {
	f := setupTestFixture(t)
	f.server.Close()

	err := f.flow.RequestReset(t.Context(), knownEmail)
	require.ErrorIs(t, err, provider.ErrNotTransmitted)
	require.Len(t, f.notes.Errors(), 1)
}

func TestRequestReset_Validation(t *testing.T) {
	f := setupTestFixture(t)

	require.ErrorIs(t, f.flow.RequestReset(t.Context(), ""), recovery.ErrValidation)
	require.ErrorIs(t, f.flow.RequestReset(t.Context(), "not-an-email"), recovery.ErrValidation)
	require.Zero(t, f.fake.Calls(providerfake.OpForgotPassword))
}

func TestCompleteReset(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.flow.RequestReset(t.Context(), knownEmail))
	resetToken, ok := f.fake.ResetTokenFor(knownEmail)
	require.True(t, ok)

	require.NoError(t, f.flow.CompleteReset(t.Context(), resetToken, "brand-new-password"))
	_, err := f.fake.SignIn(t.Context(), "alice", "brand-new-password")
	require.NoError(t, err)

	err = f.flow.CompleteReset(t.Context(), resetToken, "another-password")
	require.ErrorIs(t, err, recovery.ErrInvalidOrExpiredToken)

	err = f.flow.CompleteReset(t.Context(), "made-up-token", "another-password")
	require.ErrorIs(t, err, recovery.ErrInvalidOrExpiredToken)

	require.ErrorIs(t, f.flow.CompleteReset(t.Context(), "", "x"), recovery.ErrValidation)
	require.ErrorIs(t, f.flow.CompleteReset(t.Context(), resetToken, ""), recovery.ErrValidation)
}
