package httpbind

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"jsrt/internal/core"
	"jsrt/internal/ioqueue"
)

func TestRequestParserEmitsHeadersThenBodyThenEnd(t *testing.T) {
	registry := core.NewRegistry()
	comps := ioqueue.New(16)
	d := New(registry, comps)

	id := d.NewRequestParser(42)
	require.NoError(t, d.Feed(id, []byte("POST /widgets HTTP/1.1\r\nHost: x\r\nContent-Length: 5\r\n\r\nhello")))
	require.NoError(t, d.CloseFeed(id))

	var gotHeaders bool
	var gotBody []byte
	var gotEnd bool

	deadline := time.Now().Add(2 * time.Second)
	for !gotEnd && time.Now().Before(deadline) {
		comps.WaitOne(time.Now().Add(100*time.Millisecond), func(c ioqueue.Completion) {
			switch ev := c.Result.(type) {
			case HeadersEvent:
				gotHeaders = true
				require.Equal(t, "POST", ev.Headers.Method)
			case BodyChunkEvent:
				gotBody = append(gotBody, ev.Data...)
			case BodyEndEvent:
				gotEnd = true
			}
		})
	}

	require.True(t, gotHeaders)
	require.Equal(t, "hello", string(gotBody))
	require.True(t, gotEnd)
}
