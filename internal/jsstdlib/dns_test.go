package jsstdlib

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupDNSInstallsJS(t *testing.T) {
	rt := newFakeRuntime()
	require.NoError(t, SetupDNS(rt))
	last := rt.evals[len(rt.evals)-1]
	require.Contains(t, last, "globalThis.dns")
	require.Contains(t, last, "lookupSync")
	require.Contains(t, last, "new Promise", "dns.lookup must resolve a promise")
}
