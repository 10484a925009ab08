package errors_test

import (
	"context"
	stderrors "errors"
	"testing"

	apperrors "github.com/jrsteele09/notes-auth-client/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestMark(t *testing.T) {
	err := apperrors.Mark(apperrors.ErrMutationFailed, context.DeadlineExceeded)
	require.True(t, apperrors.Is(err, apperrors.ErrMutationFailed))
	require.True(t, apperrors.Is(err, context.DeadlineExceeded))

	require.Equal(t, apperrors.ErrNoSession, apperrors.Mark(apperrors.ErrNoSession, nil))
}

func TestWrapf(t *testing.T) {
	require.NoError(t, apperrors.Wrapf(nil, "ignored"))

	err := apperrors.Wrapf(apperrors.ErrMalformedToken, "decode %s", "JWT_TOKEN")
	require.EqualError(t, err, "decode JWT_TOKEN: malformed token")
	require.True(t, stderrors.Is(err, apperrors.ErrMalformedToken))
}
