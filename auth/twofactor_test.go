package auth_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/jrsteele09/notes-auth-client/auth"
	"github.com/jrsteele09/notes-auth-client/provider/providerfake"
	"github.com/stretchr/testify/require"
)

func TestTwoFactor_RequiresSession(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.twoFactor.Status(t.Context())
	require.ErrorIs(t, err, auth.ErrNoSession)

	_, err = f.twoFactor.BeginEnroll(t.Context())
	require.ErrorIs(t, err, auth.ErrNoSession)
	require.Equal(t, auth.Idle, f.twoFactor.State())

	require.Zero(t, f.fake.Calls(providerfake.OpTwoFactorStatus))
	require.Zero(t, f.fake.Calls(providerfake.OpEnableTwoFactor))

	errs := f.notes.Errors()
	require.Len(t, errs, 2)
	for _, n := range errs {
		require.ErrorIs(t, n.Err, auth.ErrNoSession)
	}
}

func TestTwoFactor_Enrollment(t *testing.T) {
	f := setupTestFixture(t)
	f.signIn(t, plainUser)

	state, err := f.twoFactor.Status(t.Context())
	require.NoError(t, err)
	require.Equal(t, auth.Idle, state)
	enabled, known := f.cache.value()
	require.True(t, known)
	require.False(t, enabled)

	prov, err := f.twoFactor.BeginEnroll(t.Context())
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(prov.QRCodeURL, "otpauth://"))
	require.NotEmpty(t, prov.Secret)
	require.Equal(t, auth.Enrolling, f.twoFactor.State())
	require.Equal(t, prov, f.twoFactor.Provisioning())

	// Still enrolling while the provider reports two-factor off.
	state, err = f.twoFactor.Status(t.Context())
	require.NoError(t, err)
	require.Equal(t, auth.Enrolling, state)

	err = f.twoFactor.VerifyEnroll(t.Context(), wrongCode(prov.Secret))
	require.ErrorIs(t, err, auth.ErrChallengeFailed)
	require.Equal(t, auth.Enrolling, f.twoFactor.State())

	require.NoError(t, f.twoFactor.VerifyEnroll(t.Context(), validCode(prov.Secret)))
	require.Equal(t, auth.Enrolled, f.twoFactor.State())
	enabled, _ = f.cache.value()
	require.True(t, enabled)

	rec, ok := f.fake.Account(plainUser)
	require.True(t, ok)
	require.True(t, rec.TwoFactorEnabled)

	require.NoError(t, f.twoFactor.Disable(t.Context()))
	require.Equal(t, auth.Idle, f.twoFactor.State())
	require.Nil(t, f.twoFactor.Provisioning())
	enabled, _ = f.cache.value()
	require.False(t, enabled)
}

func TestTwoFactor_IllegalTransitions(t *testing.T) {
	f := setupTestFixture(t)
	f.signIn(t, plainUser)

	require.ErrorIs(t, f.twoFactor.VerifyEnroll(t.Context(), "123456"), auth.ErrInvalidState)
	require.ErrorIs(t, f.twoFactor.Disable(t.Context()), auth.ErrInvalidState)
	require.ErrorIs(t, f.twoFactor.CancelEnroll(), auth.ErrInvalidState)
	require.Zero(t, f.fake.Calls(providerfake.OpVerifyTwoFactor))
	require.Zero(t, f.fake.Calls(providerfake.OpDisableTwoFactor))
	errs := f.notes.Errors()
	require.Len(t, errs, 3)
	for _, n := range errs {
		require.ErrorIs(t, n.Err, auth.ErrInvalidState)
	}

	_, err := f.twoFactor.BeginEnroll(t.Context())
	require.NoError(t, err)
	_, err = f.twoFactor.BeginEnroll(t.Context())
	require.ErrorIs(t, err, auth.ErrInvalidState)
	require.Equal(t, 1, f.fake.Calls(providerfake.OpEnableTwoFactor))
	require.ErrorIs(t, f.twoFactor.Disable(t.Context()), auth.ErrInvalidState)
	require.Len(t, f.notes.Errors(), 5)

	require.NoError(t, f.twoFactor.CancelEnroll())
	require.Equal(t, auth.Idle, f.twoFactor.State())
	require.Nil(t, f.twoFactor.Provisioning())
}

func TestTwoFactor_StatusSeedsEnrolled(t *testing.T) {
	f := setupTestFixture(t)
	ticket := f.challenge(t)
	require.NoError(t, f.twoFactor.VerifyLoginChallenge(t.Context(), ticket, validCode(f.guardedSecret)))

	state, err := f.twoFactor.Status(t.Context())
	require.NoError(t, err)
	require.Equal(t, auth.Enrolled, state)

	_, err = f.twoFactor.BeginEnroll(t.Context())
	require.ErrorIs(t, err, auth.ErrInvalidState)
}

func TestTwoFactor_ProviderFailuresKeepState(t *testing.T) {
	f := setupTestFixture(t)
	f.signIn(t, plainUser)
	boom := errors.New("boom")

	f.fake.Fail(providerfake.OpEnableTwoFactor, boom)
	_, err := f.twoFactor.BeginEnroll(t.Context())
	require.ErrorIs(t, err, boom)
	require.Equal(t, auth.Idle, f.twoFactor.State())
	f.fake.OnCall(providerfake.OpEnableTwoFactor, nil)

	prov, err := f.twoFactor.BeginEnroll(t.Context())
	require.NoError(t, err)
	require.NoError(t, f.twoFactor.VerifyEnroll(t.Context(), validCode(prov.Secret)))

	f.fake.Fail(providerfake.OpDisableTwoFactor, boom)
	require.ErrorIs(t, f.twoFactor.Disable(t.Context()), boom)
	require.Equal(t, auth.Enrolled, f.twoFactor.State())
	enabled, _ := f.cache.value()
	require.True(t, enabled)
}
