// Package httpparser implements the §4.H HTTP/1.1 parser bindings:
// incremental parsing of request/response headers and chunked bodies fed
// from a TCP-stream's arriving bytes. The wire grammar itself is out of
// scope per spec.md ("the grammar is not [in scope]; the integration of
// the parser with the socket stream is"), so this wraps the stdlib
// net/http request/response line and header grammar (bufio.Reader +
// http.ReadRequest/http.ReadResponse, which already implement RFC 7230)
// and adds the incremental-feed integration the spec calls for.
//
// net/http is the standard library, not a third-party dependency; no
// pack example ships an alternative HTTP/1.1 parser, and the spec
// explicitly excludes the grammar from scope, so reusing the already-
// correct stdlib parser here is the justified choice (see DESIGN.md).
package httpparser

import (
	"bufio"
	"io"
	"net/http"
	"net/textproto"
	"strings"

	"jsrt/internal/core"
)

// ParsedHeaders is what's exposed to JS once a full header block has
// arrived, for either a request or a response.
type ParsedHeaders struct {
	// Request fields (zero value when parsing a response).
	Method string
	URL    string

	// Response fields (zero value when parsing a request).
	StatusCode int
	StatusText string

	Proto      string
	Header     http.Header
	Chunked    bool
	ContentLen int64 // -1 when unknown (chunked, or a response with no Content-Length); 0 for a request with neither
}

// IncrementalParser feeds arriving byte chunks into a pipe that a
// background goroutine reads header/body grammar from; callers observe
// progress through the blocking Headers and NextBodyChunk calls. This is the "integration
// with the socket stream" the spec asks for: callers (the TCP-stream's
// read-start completion handler) call Feed for every chunk that arrives.
type IncrementalParser struct {
	pw       *io.PipeWriter
	pr       *io.PipeReader
	headersC chan ParsedHeaders
	bodyC    chan []byte
	errC     chan error
	doneC    chan struct{}
}

// NewRequestParser starts parsing an HTTP request incrementally.
func NewRequestParser() *IncrementalParser {
	p := newParser()
	go p.runRequest()
	return p
}

// NewResponseParser starts parsing an HTTP response incrementally.
func NewResponseParser(req *http.Request) *IncrementalParser {
	p := newParser()
	go p.runResponse(req)
	return p
}

func newParser() *IncrementalParser {
	pr, pw := io.Pipe()
	return &IncrementalParser{
		pw:       pw,
		pr:       pr,
		headersC: make(chan ParsedHeaders, 1),
		bodyC:    make(chan []byte, 16),
		errC:     make(chan error, 1),
		doneC:    make(chan struct{}),
	}
}

// Feed supplies newly-arrived bytes from the socket. Call Close once the
// socket reaches EOF.
func (p *IncrementalParser) Feed(chunk []byte) error {
	_, err := p.pw.Write(chunk)
	return err
}

// Close signals EOF to the parser goroutine.
func (p *IncrementalParser) Close() error {
	return p.pw.Close()
}

// Headers blocks until the header block is fully parsed, or returns the
// parse error.
func (p *IncrementalParser) Headers() (ParsedHeaders, error) {
	select {
	case h := <-p.headersC:
		return h, nil
	case err := <-p.errC:
		return ParsedHeaders{}, err
	}
}

// NextBodyChunk returns the next available body chunk, nil at EOF, or an
// error.
func (p *IncrementalParser) NextBodyChunk() ([]byte, error) {
	select {
	case b, ok := <-p.bodyC:
		if !ok {
			return nil, nil
		}
		return b, nil
	case err := <-p.errC:
		return nil, err
	}
}

func (p *IncrementalParser) runRequest() {
	defer close(p.bodyC)
	br := bufio.NewReader(p.pr)
	req, err := http.ReadRequest(br)
	if err != nil {
		p.errC <- core.Wrap(core.ErrProtocol, "", err)
		return
	}
	p.headersC <- ParsedHeaders{
		Method:     req.Method,
		URL:        req.URL.String(),
		Proto:      req.Proto,
		Header:     req.Header,
		Chunked:    len(req.TransferEncoding) > 0,
		ContentLen: req.ContentLength,
	}
	p.drainBody(req.Body)
}

func (p *IncrementalParser) runResponse(req *http.Request) {
	defer close(p.bodyC)
	br := bufio.NewReader(p.pr)
	resp, err := http.ReadResponse(br, req)
	if err != nil {
		p.errC <- core.Wrap(core.ErrProtocol, "", err)
		return
	}
	p.headersC <- ParsedHeaders{
		StatusCode: resp.StatusCode,
		StatusText: resp.Status,
		Proto:      resp.Proto,
		Header:     resp.Header,
		Chunked:    len(resp.TransferEncoding) > 0,
		ContentLen: resp.ContentLength,
	}
	p.drainBody(resp.Body)
}

func (p *IncrementalParser) drainBody(body io.ReadCloser) {
	defer body.Close()
	buf := make([]byte, 32*1024)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			p.bodyC <- chunk
		}
		if err != nil {
			if err != io.EOF {
				p.errC <- core.Wrap(core.ErrProtocol, "", err)
			}
			return
		}
	}
}

// ParseHeaderBlock is a small synchronous helper: it parses a raw
// MIME-style header block (as used by chunked-trailer sections, §3.1)
// without the request/status line. Only its test calls it; the
// incremental parser does not.
func ParseHeaderBlock(raw string) (http.Header, error) {
	tp := textproto.NewReader(bufio.NewReader(strings.NewReader(raw)))
	mh, err := tp.ReadMIMEHeader()
	if err != nil && err != io.EOF {
		return nil, core.Wrap(core.ErrProtocol, "", err)
	}
	return http.Header(mh), nil
}
