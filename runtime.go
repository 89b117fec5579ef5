// Package jsrt wires the embedding core's components into one runnable
// process: a single JS engine instance, its event loop, the handle
// registry, timer heap, completion queue, and every native subsystem
// (TCP, filesystem, DNS, signals, SQLite, module loader, process object,
// console/perf/stream, binding registry).
//
// Grounded on the teacher's engine.go: one struct owning the VM/Isolate,
// the event loop, and every webapi Setup* call, generalized from "one
// pooled worker per HTTP request" to "one long-lived process running a
// single entry module" (this spec's Non-goals exclude the teacher's
// request-pool/per-site multi-tenancy machinery).
package jsrt

import (
	"context"
	"encoding/json"
	"fmt"

	"jsrt/internal/bridge"
	"jsrt/internal/console"
	"jsrt/internal/core"
	"jsrt/internal/dnsbind"
	"jsrt/internal/engine"
	"jsrt/internal/eventloop"
	"jsrt/internal/fsbind"
	"jsrt/internal/httpbind"
	"jsrt/internal/ioqueue"
	"jsrt/internal/jsstdlib"
	"jsrt/internal/moduleloader"
	"jsrt/internal/perfhooks"
	"jsrt/internal/process"
	"jsrt/internal/signals"
	"jsrt/internal/sqlitebind"
	"jsrt/internal/tcp"
	"jsrt/internal/timerheap"
)

// Version is this runtime's own version string, reported as
// process.version.
const Version = "0.1.0"

// Runtime is one fully-wired embedding instance: one engine, one loop,
// every native subsystem. Not safe for concurrent use from more than one
// goroutine — the loop thread owns it for its entire lifetime (§5).
type Runtime struct {
	Config core.Config
	Logger core.Logger
	Argv   []string

	rt       core.JSRuntime
	registry *core.Registry
	timers   *timerheap.Heap
	comps    *ioqueue.Queue
	loop     *eventloop.Loop

	tcpSub   *tcp.Subsystem
	fsPool   *fsbind.Pool
	sigSub   *signals.Subsystem
	httpDrv  *httpbind.Driver
	bridge   *bridge.Registry
	loader   *moduleloader.Loader
	process  *process.Process
}

// Option customizes New.
type Option func(*Runtime)

// WithLogger overrides the default no-op logger.
func WithLogger(logger core.Logger) Option {
	return func(r *Runtime) { r.Logger = logger }
}

// WithConfig overrides the resolved Config (already run through
// WithDefaults/LoadConfig by the caller — New doesn't re-resolve it).
func WithConfig(cfg core.Config) Option {
	return func(r *Runtime) { r.Config = cfg }
}

// WithArgv sets process.argv's tail (everything after argv[0]); cmd/jsrt
// passes the entry module path followed by the script's own arguments.
// Defaults to empty.
func WithArgv(argv []string) Option {
	return func(r *Runtime) { r.Argv = argv }
}

// New builds a Runtime: constructs the engine backend, every native
// subsystem, and installs the full JS-visible surface (timers, console,
// process, assert, stream, performance, sqlite/fs/net/dns bindings).
func New(opts ...Option) (*Runtime, error) {
	r := &Runtime{
		Config: core.DefaultConfig(),
		Logger: core.NopLogger{},
	}
	for _, opt := range opts {
		opt(r)
	}

	jsrt, err := engine.New(r.Config.MemoryLimitMB)
	if err != nil {
		return nil, fmt.Errorf("creating %s engine: %w", engine.Name, err)
	}
	r.rt = jsrt

	r.registry = core.NewRegistry()
	r.timers = timerheap.New()
	r.comps = ioqueue.New(256)

	r.tcpSub = tcp.New(r.comps, r.registry, r.Config.MaxTCPBufferBytes)
	r.fsPool = fsbind.NewPool(r.Config.IOWorkerPoolSize, r.comps, r.registry)
	r.sigSub = signals.New(r.comps)
	r.httpDrv = httpbind.New(r.registry, r.comps)
	r.bridge = bridge.New(r.rt)
	r.loader = moduleloader.New(r.rt)

	dispatch := eventloop.Dispatch{
		FireTimer: func(id int64, rec *core.TimerRecord) {
			_ = r.rt.Eval(fmt.Sprintf(`globalThis.__timerFire(%d, %t)`, id, rec.Period > 0))
		},
		FireImmediate: func(id int64, rec *core.ImmediateRecord) {
			_ = r.rt.Eval(fmt.Sprintf(`globalThis.__immediateFire(%d)`, id))
		},
		FireIO: func(c ioqueue.Completion) {
			r.dispatchCompletion(c)
		},
		FireClose: func(id int64) {
			_ = r.rt.Eval(fmt.Sprintf(`if (globalThis.__closeFire) globalThis.__closeFire(%d);`, id))
		},
	}
	r.loop = eventloop.New(r.registry, r.timers, r.comps, r.rt, dispatch, r.Logger)

	if err := r.installJSSurface(); err != nil {
		r.rt.Dispose()
		return nil, err
	}

	return r, nil
}

// dispatchCompletion routes a background completion to whichever
// subsystem owns the handle kind. process-owned signal records are
// checked first (cheap map lookup against a handful of handles). TCP and
// http_parser completions carry Go values (net.Conn, byte slices) that
// need subsystem-specific handling (registering a freshly accepted
// connection as its own handle, distinguishing EOF from data) before
// anything crosses into JS, so each gets its own case; fs and DNS
// completions are plain JSON-able values and share one generic path.
func (r *Runtime) dispatchCompletion(c ioqueue.Completion) {
	if r.process != nil && r.process.HandleCompletion(c) {
		return
	}

	switch ev := c.Result.(type) {
	case httpbind.HeadersEvent:
		headersJSON, _ := jsonMarshal(ev.Headers)
		_ = r.rt.Eval(fmt.Sprintf(`if (globalThis.__httpParserHeaders) globalThis.__httpParserHeaders(%d, %s);`, c.HandleID, headersJSON))
		return
	case httpbind.BodyChunkEvent:
		chunkJSON, _ := jsonMarshal(ev.Data)
		_ = r.rt.Eval(fmt.Sprintf(`if (globalThis.__httpParserBody) globalThis.__httpParserBody(%d, %s);`, c.HandleID, chunkJSON))
		return
	case httpbind.BodyEndEvent:
		_ = r.rt.Eval(fmt.Sprintf(`if (globalThis.__httpParserEnd) globalThis.__httpParserEnd(%d);`, c.HandleID))
		return
	case httpbind.ErrorEvent:
		_ = r.rt.Eval(fmt.Sprintf(`if (globalThis.__httpParserError) globalThis.__httpParserError(%d, %q);`, c.HandleID, ev.Err.Error()))
		return
	case tcp.ConnectResult:
		_ = r.rt.Eval(fmt.Sprintf(`if (globalThis.__tcpConnect) globalThis.__tcpConnect(%d, %q, %q);`, c.HandleID, ev.Local, ev.Remote))
		return
	case tcp.ReadResult:
		if ev.Bytes == nil {
			_ = r.rt.Eval(fmt.Sprintf(`if (globalThis.__tcpEnd) globalThis.__tcpEnd(%d);`, c.HandleID))
			return
		}
		chunkJSON, _ := jsonMarshal(ev.Bytes)
		_ = r.rt.Eval(fmt.Sprintf(`if (globalThis.__tcpData) globalThis.__tcpData(%d, %s);`, c.HandleID, chunkJSON))
		return
	case tcp.WriteResult:
		_ = r.rt.Eval(fmt.Sprintf(`if (globalThis.__tcpWriteDone) globalThis.__tcpWriteDone(%d, %d);`, c.HandleID, ev.N))
		return
	case tcp.AcceptResult:
		connID := r.tcpSub.RegisterAccepted(ev.Conn)
		_ = r.rt.Eval(fmt.Sprintf(`if (globalThis.__tcpAccept) globalThis.__tcpAccept(%d, %d, %q, %d);`, c.HandleID, connID, ev.Remote, ev.RemotePort))
		return
	}

	if c.Err != nil {
		_ = r.rt.Eval(fmt.Sprintf(`if (globalThis.__ioError) globalThis.__ioError(%d, %q);`, c.HandleID, c.Err.Error()))
		return
	}
	resultJSON, _ := jsonMarshal(c.Result)
	_ = r.rt.Eval(fmt.Sprintf(`if (globalThis.__ioComplete) globalThis.__ioComplete(%d, %s);`, c.HandleID, resultJSON))
}

func (r *Runtime) installJSSurface() error {
	if err := jsstdlib.SetupTimers(r.rt, r.loop, r.registry, r.timers); err != nil {
		return fmt.Errorf("installing timers: %w", err)
	}
	if err := jsstdlib.SetupAssert(r.rt); err != nil {
		return fmt.Errorf("installing assert: %w", err)
	}
	if err := jsstdlib.SetupStream(r.rt); err != nil {
		return fmt.Errorf("installing stream: %w", err)
	}
	if err := jsstdlib.SetupEncoding(r.rt); err != nil {
		return fmt.Errorf("installing encoding: %w", err)
	}
	if err := jsstdlib.SetupAbort(r.rt); err != nil {
		return fmt.Errorf("installing abort: %w", err)
	}

	clock := perfhooks.NewClock()
	if err := perfhooks.Setup(r.rt, clock); err != nil {
		return fmt.Errorf("installing perf_hooks: %w", err)
	}

	if err := console.Setup(r.rt, r.Logger); err != nil {
		return fmt.Errorf("installing console: %w", err)
	}

	hooks, _ := r.rt.(core.ExceptionHooks)
	proc, err := process.New(r.rt, r.loop, r.registry, r.sigSub, hooks, Version, process.Versions{
		Runtime: Version,
		Engine:  engine.Name,
	}, r.Argv, nil)
	if err != nil {
		return fmt.Errorf("installing process: %w", err)
	}
	r.process = proc

	if err := r.installFSBinding(); err != nil {
		return fmt.Errorf("installing fs binding: %w", err)
	}
	if err := r.installNetBinding(); err != nil {
		return fmt.Errorf("installing net binding: %w", err)
	}
	if err := r.installDNSBinding(); err != nil {
		return fmt.Errorf("installing dns binding: %w", err)
	}
	if err := r.installSQLiteBinding(); err != nil {
		return fmt.Errorf("installing sqlite binding: %w", err)
	}
	if err := r.installHTTPParserBinding(); err != nil {
		return fmt.Errorf("installing http_parser binding: %w", err)
	}

	if err := r.bridge.Install(); err != nil {
		return fmt.Errorf("installing bindings: %w", err)
	}

	// net/http/fs/dns are pure JS layered on process.binding(...) plus the
	// encoding helpers (atob/btoa/TextEncoder) installed above; must come
	// after bridge.Install so process.binding is live. fs and dns each
	// chain onto whatever __ioComplete/__ioError the others already
	// installed, so their relative order doesn't matter; http is layered
	// on net, so it must come after it.
	if err := jsstdlib.SetupNet(r.rt); err != nil {
		return fmt.Errorf("installing net: %w", err)
	}
	if err := jsstdlib.SetupHTTP(r.rt); err != nil {
		return fmt.Errorf("installing http: %w", err)
	}
	if err := jsstdlib.SetupFS(r.rt); err != nil {
		return fmt.Errorf("installing fs: %w", err)
	}
	if err := jsstdlib.SetupDNS(r.rt); err != nil {
		return fmt.Errorf("installing dns: %w", err)
	}

	return nil
}

// installHTTPParserBinding exposes the builtin "http_parser" module
// (§4.H): feed socket bytes in, headers/body/end/error events come back
// asynchronously through dispatchCompletion.
func (r *Runtime) installHTTPParserBinding() error {
	if err := r.bridge.Bind("http_parser", "newRequestParser", func(socketHandle int64) int64 {
		return r.httpDrv.NewRequestParser(socketHandle)
	}); err != nil {
		return err
	}
	if err := r.bridge.Bind("http_parser", "newResponseParser", func(socketHandle int64, method, url string) int64 {
		return r.httpDrv.NewResponseParser(socketHandle, method, url)
	}); err != nil {
		return err
	}
	if err := r.bridge.Bind("http_parser", "feed", func(id int64, chunk []byte) error {
		return r.httpDrv.Feed(id, chunk)
	}); err != nil {
		return err
	}
	return r.bridge.Bind("http_parser", "closeFeed", func(id int64) error {
		return r.httpDrv.CloseFeed(id)
	})
}

// installFSBinding exposes the builtin "fs" module's synchronous and
// async-via-callback surface (§4.I) through the binding registry. Async
// calls hand a handle ID back immediately; their completion arrives
// through dispatchCompletion -> globalThis.__ioComplete, the same path
// every other async binding uses.
func (r *Runtime) installFSBinding() error {
	if err := r.bridge.Bind("fs", "statSync", func(path string) (fsbind.StatResult, error) {
		return fsbind.StatSync(path)
	}); err != nil {
		return err
	}
	if err := r.bridge.Bind("fs", "readFileSync", func(path string) ([]byte, error) {
		return fsbind.ReadFileSync(path)
	}); err != nil {
		return err
	}
	if err := r.bridge.Bind("fs", "writeFileSync", func(path string, data []byte) error {
		return fsbind.WriteFileSync(path, data)
	}); err != nil {
		return err
	}
	if err := r.bridge.Bind("fs", "mkdirSync", func(path string, recursive bool) error {
		return fsbind.MkdirSync(path, recursive)
	}); err != nil {
		return err
	}
	if err := r.bridge.Bind("fs", "rmdirSync", func(path string, recursive bool) error {
		return fsbind.RmdirSync(path, recursive)
	}); err != nil {
		return err
	}
	if err := r.bridge.Bind("fs", "copyFileSync", func(src, dst string) error {
		return fsbind.CopyFileSync(src, dst)
	}); err != nil {
		return err
	}
	if err := r.bridge.Bind("fs", "readFile", func(path string) int64 {
		id := r.registry.Register(&fsHandle{})
		r.fsPool.ReadFileAsync(id, path)
		return id
	}); err != nil {
		return err
	}
	if err := r.bridge.Bind("fs", "writeFile", func(path string, data []byte) int64 {
		id := r.registry.Register(&fsHandle{})
		r.fsPool.WriteFileAsync(id, path, data)
		return id
	}); err != nil {
		return err
	}
	return r.bridge.Bind("fs", "stat", func(path string) int64 {
		id := r.registry.Register(&fsHandle{})
		r.fsPool.StatAsync(id, path)
		return id
	})
}

// fsHandle is the keep-alive record for an in-flight async fs operation;
// it never outlives the single completion it represents (§3: fs ops are
// one-shot handles, not long-lived streams).
type fsHandle struct{}

func (fsHandle) Kind() core.Kind { return core.KindFile }
func (fsHandle) KeepAlive() bool { return true }

// listenResult is the (T, error)-shaped return for net.listen, carrying
// the handle ID plus the actually-bound host/port back in one value —
// RegisterFunc's JS unwrapper only knows how to unpack a single result
// value alongside an error, not four positional returns.
type listenResult struct {
	HandleID int64  `json:"handleId"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
}

// installNetBinding exposes the builtin "net" module (§4.D/G) — TCP
// connect/listen/read/write/close — as native bindings returning handle
// IDs; JS-side net.Socket/net.Server wrappers drive these, and a Socket
// exposes Symbol.asyncIterator, which is what stream.pipeline consumes.
func (r *Runtime) installNetBinding() error {
	if err := r.bridge.Bind("net", "connect", func(host string, port int) int64 {
		return r.tcpSub.Connect(host, port)
	}); err != nil {
		return err
	}
	if err := r.bridge.Bind("net", "listen", func(host string, port int) (listenResult, error) {
		id, boundHost, boundPort, err := r.tcpSub.Listen(host, port, r.Config.TCPAcceptBacklog)
		if err != nil {
			return listenResult{}, err
		}
		return listenResult{HandleID: id, Host: boundHost, Port: boundPort}, nil
	}); err != nil {
		return err
	}
	if err := r.bridge.Bind("net", "readStart", func(id int64) error {
		return r.tcpSub.ReadStart(id)
	}); err != nil {
		return err
	}
	if err := r.bridge.Bind("net", "write", func(id int64, data []byte) {
		r.tcpSub.Write(id, data)
	}); err != nil {
		return err
	}
	if err := r.bridge.Bind("net", "shutdown", func(id int64) error {
		return r.tcpSub.Shutdown(id)
	}); err != nil {
		return err
	}
	return r.bridge.Bind("net", "close", func(id int64) {
		r.tcpSub.Close(id, func(closedID int64) {
			_ = r.rt.Eval(fmt.Sprintf(`if (globalThis.__closeFire) globalThis.__closeFire(%d);`, closedID))
		})
	})
}

// installDNSBinding exposes the builtin "dns" module (§4.J): a
// synchronous lookup for simple call sites and an async variant posting
// its result through the shared completion queue like every other
// background operation.
func (r *Runtime) installDNSBinding() error {
	if err := r.bridge.Bind("dns", "lookupSync", func(hostname string) (string, error) {
		answers, err := dnsbind.Lookup(context.Background(), hostname)
		if err != nil {
			return "", err
		}
		return jsonMarshal(answers)
	}); err != nil {
		return err
	}
	return r.bridge.Bind("dns", "lookup", func(hostname string) int64 {
		return dnsbind.LookupAsync(r.registry, r.comps, hostname, r.Config.DNSTimeout)
	})
}

// installSQLiteBinding exposes the builtin "sqlite" module (§4.F/§4.K)
// through the binding registry: open/close/exec, each opened database
// identified by a handle ID from the shared registry. The live *DB sits
// in this closure's map, not in the registry record — the record only
// needs to carry the handle's keep-alive bit.
func (r *Runtime) installSQLiteBinding() error {
	dbs := make(map[int64]*sqlitebind.DB)

	if err := r.bridge.Bind("sqlite", "open", func(path string) (int64, error) {
		db, err := sqlitebind.Open(path)
		if err != nil {
			return 0, err
		}
		id := r.registry.Register(&sqliteHandle{})
		dbs[id] = db
		return id, nil
	}); err != nil {
		return err
	}

	if err := r.bridge.Bind("sqlite", "close", func(id int64) error {
		db, ok := dbs[id]
		if !ok {
			return core.NewError(core.ErrArgument, "ERR_INVALID_HANDLE", "unknown sqlite handle")
		}
		delete(dbs, id)
		r.registry.Unregister(id)
		return db.Close()
	}); err != nil {
		return err
	}

	return r.bridge.Bind("sqlite", "exec", func(id int64, query string, bindingsJSON string) (string, error) {
		db, ok := dbs[id]
		if !ok {
			return "", core.NewError(core.ErrArgument, "ERR_INVALID_HANDLE", "unknown sqlite handle")
		}
		var params []any
		if bindingsJSON != "" && bindingsJSON != "null" {
			if err := json.Unmarshal([]byte(bindingsJSON), &params); err != nil {
				return "", core.Wrap(core.ErrArgument, "ERR_INVALID_ARG", err)
			}
		}
		res, err := db.Exec(query, params)
		if err != nil {
			return "", err
		}
		return jsonMarshal(res)
	})
}

func jsonMarshal(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// sqliteHandle is a keep-alive placeholder handle record for an open
// SQLite connection.
type sqliteHandle struct{}

func (sqliteHandle) Kind() core.Kind { return core.KindFile }
func (sqliteHandle) KeepAlive() bool { return true }

// Run loads entryPath as the program's entry module and drives the loop
// to completion (§4.E's termination rule), blocking until no keep-alive
// handle, pending immediate, next-tick entry, or microtask remains.
func (r *Runtime) Run(entryPath string) error {
	if _, err := r.loader.Load("file://./", entryPath); err != nil {
		return err
	}
	r.loop.Run()
	return nil
}

// Close disposes the engine and releases every native resource. Call
// only after Run returns.
func (r *Runtime) Close() {
	r.rt.Dispose()
}
