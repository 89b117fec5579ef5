package dnsbind

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"jsrt/internal/core"
	"jsrt/internal/ioqueue"
)

func TestLookupLocalhostResolves(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	answers, err := Lookup(ctx, "localhost")
	require.NoError(t, err)
	require.NotEmpty(t, answers)
	for _, a := range answers {
		require.Contains(t, []int{4, 6}, a.Family)
	}
}

func TestLookupAsyncPostsCompletionAndClearsHandle(t *testing.T) {
	registry := core.NewRegistry()
	q := ioqueue.New(4)

	id := LookupAsync(registry, q, "localhost", 5*time.Second)
	require.NotNil(t, registry.Lookup(id), "handle is keep-alive while pending")

	var got ioqueue.Completion
	ok := q.WaitOne(time.Now().Add(5*time.Second), func(c ioqueue.Completion) { got = c })
	require.True(t, ok)
	require.Equal(t, id, got.HandleID)
	require.NoError(t, got.Err)
	require.Nil(t, registry.Lookup(id), "handle is unregistered once resolved")
}

func TestLookupUnresolvableHostnameFails(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := Lookup(ctx, "this-host-should-not-exist.invalid.")
	require.Error(t, err)
}
