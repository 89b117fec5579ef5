package jsstdlib

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupAbortInstallsJS(t *testing.T) {
	rt := newFakeRuntime()
	require.NoError(t, SetupAbort(rt))
	last := rt.evals[len(rt.evals)-1]
	require.Contains(t, last, "globalThis.AbortController")
	require.Contains(t, last, "globalThis.AbortSignal")
}
