// Package streamglue implements the §9 "dynamic dispatch over
// heterogeneous streams" design note: stream.pipeline/stream.compose need
// to move bytes between sources as different as a TCP socket, an HTTP
// response body, and a file descriptor, without each call site knowing
// which. ByteSource/ByteSink is a Go interface pair for that, with
// io.Reader/io.WriteCloser adapters (ReaderSource, WriterSink), and
// Pipeline drives them. The TCP, HTTP-body and file subsystems do not
// implement it, and no other package in this module uses it.
//
// Grounded on the teacher's tcpSocketBuffer (internal/webapi/tcpsocket.go):
// a background goroutine fills an internal buffer and signals a channel,
// a consumer pulls bounded chunks and observes EOF/error as sticky state.
// Generalized from "one TCP-specific buffer type" to an interface every
// byte-producing/consuming resource (TCP, HTTP body, file) can implement.
package streamglue

import (
	"context"
	"io"

	"jsrt/internal/core"
)

// ByteSource is a pull-based async iterator over a byte stream. Next
// blocks (respecting ctx) until a chunk is available, EOF is reached, or
// an error occurs. A nil chunk with a nil error signals clean EOF.
type ByteSource interface {
	Next(ctx context.Context) (chunk []byte, err error)
}

// ByteSink is the writable half: Write accepts a chunk, Close signals no
// more data is coming.
type ByteSink interface {
	Write(ctx context.Context, chunk []byte) error
	Close() error
}

// ReaderSource adapts any io.Reader into a ByteSource, chunked at
// bufSize, for file-backed and other synchronous-Read-based streams.
type ReaderSource struct {
	r       io.Reader
	bufSize int
}

// NewReaderSource wraps r as a ByteSource pulling chunks of bufSize bytes.
func NewReaderSource(r io.Reader, bufSize int) *ReaderSource {
	if bufSize <= 0 {
		bufSize = 4096
	}
	return &ReaderSource{r: r, bufSize: bufSize}
}

func (s *ReaderSource) Next(ctx context.Context) ([]byte, error) {
	buf := make([]byte, s.bufSize)
	n, err := s.r.Read(buf)
	if n > 0 {
		chunk := buf[:n]
		if err == io.EOF {
			// Deliver the final chunk now; report EOF on the next call so
			// callers always see data before the terminal nil.
			return chunk, nil
		}
		return chunk, err
	}
	if err == io.EOF {
		return nil, nil
	}
	return nil, err
}

// WriterSink adapts any io.WriteCloser into a ByteSink.
type WriterSink struct {
	w io.WriteCloser
}

// NewWriterSink wraps w as a ByteSink.
func NewWriterSink(w io.WriteCloser) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Write(_ context.Context, chunk []byte) error {
	_, err := s.w.Write(chunk)
	return err
}

func (s *WriterSink) Close() error {
	return s.w.Close()
}

// Pipeline drains src into dst until EOF, propagating the first error
// from either side and always closing dst, mirroring stream.pipeline's
// "destroy all streams on any error" contract.
func Pipeline(ctx context.Context, src ByteSource, dst ByteSink) error {
	defer dst.Close()
	for {
		chunk, err := src.Next(ctx)
		if err != nil {
			return core.Wrap(core.ErrResource, "", err)
		}
		if chunk == nil {
			return nil
		}
		if err := dst.Write(ctx, chunk); err != nil {
			return core.Wrap(core.ErrResource, "", err)
		}
	}
}

// Compose returns a function that runs stages in order with the same ctx,
// stopping at and returning the first error. It moves no bytes itself:
// stages must have been wired pairwise by the caller (each stage's output
// feeding the next stage's input) — Compose only owns overall lifecycle.
func Compose(stages ...func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		for _, stage := range stages {
			if err := stage(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}
