package jsstdlib

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupHTTPInstallsJS(t *testing.T) {
	rt := newFakeRuntime()
	require.NoError(t, SetupHTTP(rt))
	last := rt.evals[len(rt.evals)-1]
	require.Contains(t, last, "globalThis.http")
	require.Contains(t, last, "__httpParserHeaders")
	require.Contains(t, last, "writeHead")
	require.Contains(t, last, "new Promise", "request/get must resolve a real Promise<Response>")
	require.Contains(t, last, "function Response(")
}
