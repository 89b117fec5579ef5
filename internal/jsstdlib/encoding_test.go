package jsstdlib

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupEncodingInstallsJS(t *testing.T) {
	rt := newFakeRuntime()
	require.NoError(t, SetupEncoding(rt))
	last := rt.evals[len(rt.evals)-1]
	require.Contains(t, last, "globalThis.atob")
	require.Contains(t, last, "globalThis.btoa")
	require.Contains(t, last, "globalThis.TextEncoder")
	require.Contains(t, last, "globalThis.TextDecoder")
	require.Contains(t, last, "globalThis.structuredClone")
}
