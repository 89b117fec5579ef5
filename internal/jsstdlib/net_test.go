package jsstdlib

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupNetInstallsJS(t *testing.T) {
	rt := newFakeRuntime()
	require.NoError(t, SetupNet(rt))
	last := rt.evals[len(rt.evals)-1]
	require.Contains(t, last, "globalThis.net")
	require.Contains(t, last, "__tcpConnect")
	require.Contains(t, last, "__tcpAccept")
	require.Contains(t, last, "new Promise", "connect must resolve promise<Socket>")
	require.Contains(t, last, "Symbol.asyncIterator")
	require.Contains(t, last, "setEncoding")
}
