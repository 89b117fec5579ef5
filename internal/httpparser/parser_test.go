package httpparser

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIncrementalRequestParsing(t *testing.T) {
	p := NewRequestParser()

	raw := "GET /hello HTTP/1.1\r\nHost: example.com\r\nContent-Length: 5\r\n\r\nhowdy"
	go func() {
		// Feed byte-by-byte to exercise incremental delivery.
		for i := 0; i < len(raw); i++ {
			_ = p.Feed([]byte{raw[i]})
		}
		_ = p.Close()
	}()

	headers, err := p.Headers()
	require.NoError(t, err)
	require.Equal(t, "GET", headers.Method)
	require.Equal(t, "/hello", headers.URL)
	require.Equal(t, "example.com", headers.Header.Get("Host"))
	require.Equal(t, int64(5), headers.ContentLen)

	var body []byte
	for {
		chunk, err := p.NextBodyChunk()
		require.NoError(t, err)
		if chunk == nil {
			break
		}
		body = append(body, chunk...)
	}
	require.Equal(t, "howdy", string(body))
}

func TestParseHeaderBlockTrailers(t *testing.T) {
	h, err := ParseHeaderBlock("X-Checksum: abc123\r\nX-Done: true\r\n\r\n")
	require.NoError(t, err)
	require.Equal(t, "abc123", h.Get("X-Checksum"))
	require.Equal(t, "true", h.Get("X-Done"))
}

func TestIncrementalRequestParsingMalformedStartLine(t *testing.T) {
	p := NewRequestParser()
	go func() {
		_ = p.Feed([]byte("not a valid request line\r\n\r\n"))
		_ = p.Close()
	}()
	_, err := p.Headers()
	require.Error(t, err)
}
