// Package tcp implements the §4.G TCP subsystem: non-blocking stream
// sockets with connect/listen/accept/read/write/shutdown/close, each
// producing completions on the shared queue so the event loop's poll
// phase can invoke the matching JS callback.
//
// Grounded on the teacher's tcpSocketBuffer background-reader pattern
// (cryguy-worker/internal/webapi/tcpsocket.go), generalized from a
// per-request buffer keyed by string IDs into a handle-registry-backed
// resource with real listen/accept support (the teacher only dials out).
package tcp

import (
	"net"
	"strconv"
	"sync"
	"time"

	"jsrt/internal/core"
	"jsrt/internal/ioqueue"
)

// ConnectResult is posted once an async connect completes.
type ConnectResult struct {
	Conn   net.Conn
	Local  string
	Remote string
}

// ReadResult is posted for each readiness completion of a read-start'd
// socket. Empty Bytes with no Err signals EOF (§4.D).
type ReadResult struct {
	Bytes []byte
}

// WriteResult is posted once a queued write is fully accepted by the OS.
type WriteResult struct {
	N int
}

// AcceptResult is posted per accepted connection on a listener.
type AcceptResult struct {
	Conn   net.Conn
	Remote string
	RemotePort int
}

// Subsystem owns the live net.Conn/net.Listener for every TCP handle and
// posts completions to the shared queue.
type Subsystem struct {
	completions *ioqueue.Queue
	registry    *core.Registry
	maxBuffer   int

	mu    sync.Mutex
	conns map[int64]net.Conn
	lis   map[int64]net.Listener
	stop  map[int64]chan struct{}
}

// New creates a TCP subsystem. maxBuffer bounds each socket's inbound
// buffer (§5 backpressure; teacher's constant was 1 MiB).
func New(completions *ioqueue.Queue, registry *core.Registry, maxBuffer int) *Subsystem {
	if maxBuffer <= 0 {
		maxBuffer = 1 << 20
	}
	return &Subsystem{
		completions: completions,
		registry:    registry,
		maxBuffer:   maxBuffer,
		conns:       make(map[int64]net.Conn),
		lis:         make(map[int64]net.Listener),
		stop:        make(map[int64]chan struct{}),
	}
}

// Connect registers a TCP-stream handle at once, dials host:port in the
// background, and posts a ConnectResult or, after unregistering the
// handle on dial failure, an error completion. Returns the handle ID
// immediately (state starts "connecting").
func (s *Subsystem) Connect(host string, port int) int64 {
	rec := &core.TCPStreamRecord{State: core.TCPConnecting}
	id := s.registry.Register(rec)

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	go func() {
		conn, err := net.DialTimeout("tcp", addr, 30*time.Second)
		if err != nil {
			s.registry.Unregister(id)
			s.completions.Post(ioqueue.Completion{HandleID: id, Err: classifyDialErr(err, addr)})
			return
		}
		s.mu.Lock()
		s.conns[id] = conn
		s.mu.Unlock()
		rec.State = core.TCPOpen

		s.completions.Post(ioqueue.Completion{HandleID: id, Result: ConnectResult{
			Conn:   conn,
			Local:  conn.LocalAddr().String(),
			Remote: conn.RemoteAddr().String(),
		}})
	}()
	return id
}

// Listen binds host:port and accepts connections in the background,
// posting an AcceptResult completion per connection. The backlog
// argument is ignored: net.Listen exposes no backlog knob and uses the
// OS default.
func (s *Subsystem) Listen(host string, port int, _ int) (int64, string, int, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return 0, "", 0, classifyListenErr(err, addr)
	}

	rec := &core.TCPListenerRecord{}
	id := s.registry.Register(rec)

	s.mu.Lock()
	s.lis[id] = ln
	stopCh := make(chan struct{})
	s.stop[id] = stopCh
	s.mu.Unlock()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				select {
				case <-stopCh:
					return // closed deliberately
				default:
				}
				s.completions.Post(ioqueue.Completion{HandleID: id, Err: err})
				return
			}
			host, portStr, _ := net.SplitHostPort(conn.RemoteAddr().String())
			s.completions.Post(ioqueue.Completion{HandleID: id, Result: AcceptResult{
				Conn:       conn,
				Remote:     host,
				RemotePort: mustAtoi(portStr),
			}})
		}
	}()

	tcpAddr := ln.Addr().(*net.TCPAddr)
	return id, tcpAddr.IP.String(), tcpAddr.Port, nil
}

// RegisterAccepted adopts a net.Conn obtained from an AcceptResult as a
// first-class TCP-stream handle so it can be read/written like any
// connected socket.
func (s *Subsystem) RegisterAccepted(conn net.Conn) int64 {
	rec := &core.TCPStreamRecord{State: core.TCPOpen}
	id := s.registry.Register(rec)
	s.mu.Lock()
	s.conns[id] = conn
	s.mu.Unlock()
	return id
}

// ReadStart begins background reads on id, posting a ReadResult
// completion per chunk (or an empty ReadResult on EOF, or an error
// completion) until Close stops it.
func (s *Subsystem) ReadStart(id int64) error {
	s.mu.Lock()
	conn, ok := s.conns[id]
	s.mu.Unlock()
	if !ok {
		return core.NewError(core.ErrArgument, "", "read-start: unknown socket")
	}

	stopCh := make(chan struct{})
	s.mu.Lock()
	s.stop[id] = stopCh
	s.mu.Unlock()

	go func() {
		buf := make([]byte, 4096)
		total := 0
		for {
			n, err := conn.Read(buf)
			if n > 0 {
				total += n
				if total > s.maxBuffer {
					s.completions.Post(ioqueue.Completion{HandleID: id, Err: core.NewError(core.ErrResource, "", "TCP read buffer exceeded limit")})
					return
				}
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				s.completions.Post(ioqueue.Completion{HandleID: id, Result: ReadResult{Bytes: chunk}})
			}
			if err != nil {
				select {
				case <-stopCh:
					return
				default:
				}
				s.completions.Post(ioqueue.Completion{HandleID: id, Result: ReadResult{Bytes: nil}})
				return
			}
		}
	}()
	return nil
}

// Write queues bytes for id and posts a WriteResult completion once the
// OS has accepted all of them (§4.D: "always equals the input length;
// partial writes are handled internally").
func (s *Subsystem) Write(id int64, data []byte) {
	s.mu.Lock()
	conn, ok := s.conns[id]
	s.mu.Unlock()
	if !ok {
		s.completions.Post(ioqueue.Completion{HandleID: id, Err: core.NewError(core.ErrArgument, "", "write: unknown socket")})
		return
	}
	go func() {
		total := 0
		for total < len(data) {
			n, err := conn.Write(data[total:])
			total += n
			if err != nil {
				s.completions.Post(ioqueue.Completion{HandleID: id, Err: err})
				return
			}
		}
		s.completions.Post(ioqueue.Completion{HandleID: id, Result: WriteResult{N: total}})
	}()
}

// Shutdown half-closes the write side of id.
func (s *Subsystem) Shutdown(id int64) error {
	s.mu.Lock()
	conn, ok := s.conns[id]
	s.mu.Unlock()
	if !ok {
		return core.NewError(core.ErrArgument, "", "shutdown: unknown socket")
	}
	if cw, ok := conn.(interface{ CloseWrite() error }); ok {
		return cw.CloseWrite()
	}
	return nil
}

// Close closes both sides of id (stream or listener) and schedules
// finalization to run in the close phase via scheduleClose.
func (s *Subsystem) Close(id int64, scheduleClose func(int64)) {
	s.mu.Lock()
	if stopCh, ok := s.stop[id]; ok {
		close(stopCh)
		delete(s.stop, id)
	}
	conn, hasConn := s.conns[id]
	ln, hasLn := s.lis[id]
	delete(s.conns, id)
	delete(s.lis, id)
	s.mu.Unlock()

	if hasConn {
		_ = conn.Close()
	}
	if hasLn {
		_ = ln.Close()
	}
	s.registry.Unregister(id)
	if scheduleClose != nil {
		scheduleClose(id)
	}
}

func classifyDialErr(err error, addr string) error {
	if ne, ok := err.(*net.OpError); ok {
		if ne.Timeout() {
			return core.ErrTimedOut(addr)
		}
	}
	return core.ErrConnRefused(addr)
}

func classifyListenErr(err error, addr string) error {
	return core.Wrap(core.ErrResource, "EADDRINUSE", err)
}

func mustAtoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
