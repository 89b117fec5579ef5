package streamglue

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type closingBuffer struct {
	bytes.Buffer
	closed bool
}

func (c *closingBuffer) Close() error {
	c.closed = true
	return nil
}

func TestPipelineCopiesAllBytesAndClosesSink(t *testing.T) {
	src := NewReaderSource(bytes.NewBufferString("hello world"), 4)
	sink := &closingBuffer{}
	dst := NewWriterSink(sink)

	err := Pipeline(context.Background(), src, dst)
	require.NoError(t, err)
	require.Equal(t, "hello world", sink.String())
	require.True(t, sink.closed)
}

func TestPipelinePropagatesSourceError(t *testing.T) {
	boom := errorSource{}
	sink := &closingBuffer{}
	dst := NewWriterSink(sink)

	err := Pipeline(context.Background(), boom, dst)
	require.Error(t, err)
	require.True(t, sink.closed, "sink must be closed even on source error")
}

type errorSource struct{}

func (errorSource) Next(ctx context.Context) ([]byte, error) {
	return nil, bytes.ErrTooLarge
}
