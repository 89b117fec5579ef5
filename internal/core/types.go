package core

import "time"

// ModuleKind classifies a fetched module by extension/MIME (§4.K).
type ModuleKind int

const (
	ModuleESM ModuleKind = iota
	ModuleJSON
	ModuleWASM
	// ModuleBuiltin is a bare specifier resolved against §4.K's built-in
	// module table (fs, net, http, assert, stream, events, perf_hooks,
	// dns, sqlite, colors, test, util) rather than fetched from disk.
	ModuleBuiltin
)

// ModuleState is the lifecycle of a Module record (§3).
type ModuleState int

const (
	StateFetched ModuleState = iota
	StateParsed
	StateInstantiated
	StateEvaluated
	StateErrored
)

func (s ModuleState) String() string {
	switch s {
	case StateFetched:
		return "fetched"
	case StateParsed:
		return "parsed"
	case StateInstantiated:
		return "instantiated"
	case StateEvaluated:
		return "evaluated"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Module is the Module record of §3: shared by resolved URL, owned
// exclusively by the module loader, destroyed only at process exit.
type Module struct {
	ResolvedURL  string
	Source       []byte
	Kind         ModuleKind
	Dependencies []string // resolved URLs of static imports
	State        ModuleState
	Err          error

	// EngineRef is an opaque reference the engine backend attaches once
	// the module's factory function has been registered (§4.K addition:
	// engine-native module linking is unavailable, so this is the key
	// into the JS-side __modules table rather than a native module
	// object).
	EngineRef string
}

// TimerRecord is the §3 timer record. Created by the __timer_register
// binding (jsstdlib.SetupTimers); unregistered by __timer_clear or, for a
// one-shot timer, by the event loop's timers phase once it fires. The
// timer heap keeps its own deadline entry; replanting an interval does
// not update this record.
type TimerRecord struct {
	Deadline time.Time
	Period   time.Duration // zero means one-shot
	Callback string        // opaque JS callback reference (registry key)
	Params   []any
}

func (t *TimerRecord) Kind() Kind      { return KindTimer }
func (t *TimerRecord) KeepAlive() bool { return true }

// NewTimerRecord builds a timer record. Keep-alive per §3 defaults to true
// for every handle kind; Registry.Unref is how a caller opts out.
func NewTimerRecord(deadline time.Time, period time.Duration, callback string, params []any) *TimerRecord {
	return &TimerRecord{Deadline: deadline, Period: period, Callback: callback, Params: params}
}

// ImmediateRecord is the §3 immediate record: FIFO, drains fully each phase.
type ImmediateRecord struct {
	Callback string
	Params   []any
}

func (i *ImmediateRecord) Kind() Kind      { return KindImmediate }
func (i *ImmediateRecord) KeepAlive() bool { return true }

// SignalRecord is the §3 signal record.
type SignalRecord struct {
	Signo    string
	Callback string
}

func (s *SignalRecord) Kind() Kind      { return KindSignal }
func (s *SignalRecord) KeepAlive() bool { return true }

// TCPStreamState enumerates the §3 TCP-stream states.
type TCPStreamState int

const (
	TCPConnecting TCPStreamState = iota
	TCPOpen
	TCPHalfClosedWrite
	TCPClosed
)

// PendingWrite is one queued write awaiting OS acceptance.
type PendingWrite struct {
	Bytes    []byte
	Resolver string // opaque JS promise-resolver reference
}

// TCPStreamRecord is the §3 TCP-stream record.
type TCPStreamRecord struct {
	FD            int
	State         TCPStreamState
	ReadCallback  string // opaque JS callback ref, "" if read-start not called
	PendingWrites []PendingWrite
}

func (t *TCPStreamRecord) Kind() Kind      { return KindTCPStream }
func (t *TCPStreamRecord) KeepAlive() bool { return true }

// TCPListenerRecord is the §3 TCP-listener record.
type TCPListenerRecord struct {
	FD             int
	AcceptCallback string
}

func (t *TCPListenerRecord) Kind() Kind      { return KindTCPListener }
func (t *TCPListenerRecord) KeepAlive() bool { return true }

// FileRecord is the §3 file record.
type FileRecord struct {
	FD   int
	Path string
}

func (f *FileRecord) Kind() Kind      { return KindFile }
func (f *FileRecord) KeepAlive() bool { return false } // file handles never keep the loop alive

// DNSRequestRecord is the §3.1 addition: in-flight hostname lookup.
type DNSRequestRecord struct {
	Hostname string
	Cancel   func()
}

func (d *DNSRequestRecord) Kind() Kind      { return KindDNSRequest }
func (d *DNSRequestRecord) KeepAlive() bool { return true }

// ChildProcessRecord is the §3.1 addition backing process.kill/SIGCHLD.
type ChildProcessRecord struct {
	PID          int
	ExitCallback string
}

func (c *ChildProcessRecord) Kind() Kind      { return KindChildProcess }
func (c *ChildProcessRecord) KeepAlive() bool { return true }

// HTTPParserState enumerates the §3.1 HTTP-parser record states.
type HTTPParserState int

const (
	HTTPParsingHeaders HTTPParserState = iota
	HTTPParsingBody
	HTTPParsingChunkedTrailer
	HTTPParserDone
)

// HTTPParserRecord is the §3.1 addition backing component H.
type HTTPParserRecord struct {
	SocketHandle int64
	State        HTTPParserState
}

func (h *HTTPParserRecord) Kind() Kind      { return KindHTTPParser }
func (h *HTTPParserRecord) KeepAlive() bool { return false }
