package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJSErrorMessageFormat(t *testing.T) {
	err := ErrNotFound("/tmp/missing.txt")
	require.Equal(t, ErrResource, err.Name)
	require.Equal(t, "ENOENT", err.Code)
	require.Contains(t, err.Error(), "ENOENT")
	require.Contains(t, err.Error(), "/tmp/missing.txt")
}

func TestWrapPreservesCauseForUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: boom")
	wrapped := Wrap(ErrResource, "ECONNREFUSED", cause)

	require.ErrorIs(t, wrapped, cause)

	var target *JSError
	require.True(t, errors.As(wrapped, &target))
	require.Equal(t, ErrResource, target.Name)
}

func TestErrAbortedDefaultsMessageWhenReasonEmpty(t *testing.T) {
	err := ErrAborted("")
	require.Equal(t, "the operation was aborted", err.Message)

	err2 := ErrAborted("x")
	require.Equal(t, "x", err2.Message)
}
