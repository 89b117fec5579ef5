package jsstdlib

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupFSInstallsJS(t *testing.T) {
	rt := newFakeRuntime()
	require.NoError(t, SetupFS(rt))
	last := rt.evals[len(rt.evals)-1]
	require.Contains(t, last, "globalThis.fs")
	require.Contains(t, last, "readFileSync")
	require.Contains(t, last, "new Promise", "readFile/writeFile/stat must be Promise-based")
}

func TestSetupFSChainsOntoExistingIoCompleteHandler(t *testing.T) {
	rt := newFakeRuntime()
	require.NoError(t, SetupNet(rt))
	require.NoError(t, SetupFS(rt))
	last := rt.evals[len(rt.evals)-1]
	require.Contains(t, last, "prevIoComplete")
	require.Contains(t, last, "prevIoError")
}
