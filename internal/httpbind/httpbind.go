// Package httpbind implements the §4.H HTTP/1.1 parser bindings: driving
// an httpparser.IncrementalParser from bytes arriving on a TCP stream and
// posting its progress (headers, then body chunks, then end-of-body)
// through the same completion queue every other async binding uses.
//
// Grounded on internal/tcp's goroutine-per-handle + completions.Post
// idiom (itself grounded on the teacher's tcpSocketBuffer background-fill
// pattern), generalized from "fill a byte buffer" to "pump a blocking
// incremental parser and report its three event kinds".
package httpbind

import (
	"net/http"
	"sync"

	"jsrt/internal/core"
	"jsrt/internal/httpparser"
	"jsrt/internal/ioqueue"
)

// HeadersEvent is posted once a parser's header block is fully parsed.
type HeadersEvent struct {
	Headers httpparser.ParsedHeaders
}

// BodyChunkEvent is posted for each arriving body chunk.
type BodyChunkEvent struct {
	Data []byte
}

// BodyEndEvent is posted once the body (and so the whole message) is
// fully parsed.
type BodyEndEvent struct{}

// ErrorEvent is posted when parsing fails at any stage. Carried as a
// typed Result (rather than relying on a registry lookup after the
// handle is unregistered) so the dispatcher can route it correctly even
// though Unregister may already have run by the time the completion is
// consumed.
type ErrorEvent struct {
	Err error
}

// Driver owns every live incremental parser, keyed by its handle ID in
// the shared registry.
type Driver struct {
	registry *core.Registry
	comps    *ioqueue.Queue

	mu      sync.Mutex
	parsers map[int64]*httpparser.IncrementalParser
}

// New creates a Driver posting completions to comps.
func New(registry *core.Registry, comps *ioqueue.Queue) *Driver {
	return &Driver{registry: registry, comps: comps, parsers: make(map[int64]*httpparser.IncrementalParser)}
}

type parserHandle struct {
	rec *core.HTTPParserRecord
}

func (p *parserHandle) Kind() core.Kind { return core.KindHTTPParser }
func (p *parserHandle) KeepAlive() bool { return p.rec.KeepAlive() }

// NewRequestParser starts parsing an HTTP request incrementally off the
// given socket handle, returning the parser's own handle ID.
func (d *Driver) NewRequestParser(socketHandle int64) int64 {
	p := httpparser.NewRequestParser()
	rec := &core.HTTPParserRecord{SocketHandle: socketHandle, State: core.HTTPParsingHeaders}
	id := d.registry.Register(&parserHandle{rec: rec})

	d.mu.Lock()
	d.parsers[id] = p
	d.mu.Unlock()

	go d.pump(id, p)
	return id
}

// NewResponseParser starts parsing an HTTP response incrementally,
// needing the original request's method to resolve Content-Length vs.
// close-delimited body semantics per RFC 7230 §3.3.3.
func (d *Driver) NewResponseParser(socketHandle int64, method, url string) int64 {
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		req, _ = http.NewRequest(http.MethodGet, "/", nil)
	}
	p := httpparser.NewResponseParser(req)
	rec := &core.HTTPParserRecord{SocketHandle: socketHandle, State: core.HTTPParsingHeaders}
	id := d.registry.Register(&parserHandle{rec: rec})

	d.mu.Lock()
	d.parsers[id] = p
	d.mu.Unlock()

	go d.pump(id, p)
	return id
}

// Feed supplies newly-arrived socket bytes to the parser identified by
// id.
func (d *Driver) Feed(id int64, chunk []byte) error {
	p := d.get(id)
	if p == nil {
		return core.NewError(core.ErrArgument, "ERR_INVALID_HANDLE", "unknown http parser handle")
	}
	return p.Feed(chunk)
}

// CloseFeed signals EOF (the socket closed) to the parser's input side.
func (d *Driver) CloseFeed(id int64) error {
	p := d.get(id)
	if p == nil {
		return nil
	}
	return p.Close()
}

func (d *Driver) get(id int64) *httpparser.IncrementalParser {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.parsers[id]
}

func (d *Driver) pump(id int64, p *httpparser.IncrementalParser) {
	headers, err := p.Headers()
	if err != nil {
		d.finish(id, ErrorEvent{Err: err})
		return
	}
	d.comps.Post(ioqueue.Completion{HandleID: id, Result: HeadersEvent{Headers: headers}})

	for {
		chunk, err := p.NextBodyChunk()
		if err != nil {
			d.finish(id, ErrorEvent{Err: err})
			return
		}
		if chunk == nil {
			d.finish(id, BodyEndEvent{})
			return
		}
		d.comps.Post(ioqueue.Completion{HandleID: id, Result: BodyChunkEvent{Data: chunk}})
	}
}

func (d *Driver) finish(id int64, result any) {
	d.comps.Post(ioqueue.Completion{HandleID: id, Result: result})
	d.mu.Lock()
	delete(d.parsers, id)
	d.mu.Unlock()
	d.registry.Unregister(id)
}
