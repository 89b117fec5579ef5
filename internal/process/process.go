// Package process implements the §4.L process object: argv/env/cwd/pid/
// platform/version/versions/exit/memoryUsage/stdio streams/binding(name)/
// nextTick, plus the SIGINT/SIGTERM/... and uncaughtException/
// unhandledRejection event-emitter surface with its listener-count-gated
// hook lifecycle.
//
// Grounded on the teacher's signal subsystem idiom adapted to this repo's
// own internal/signals package (ref-counted install/teardown only at the
// 0→1/1→0 listener-count transition), and on internal/core.ExceptionHooks
// for the uncaughtException/unhandledRejection half of the same rule.
package process

import (
	"fmt"
	"os"
	"runtime"
	"sync"

	"jsrt/internal/core"
	"jsrt/internal/eventloop"
	"jsrt/internal/ioqueue"
	"jsrt/internal/signals"
)

// Versions mirrors Node's process.versions shape: the running engine's
// self-reported version plus this runtime's own version string.
type Versions struct {
	Runtime string
	Engine  string
}

// Process is the native half of globalThis.process. Exactly one exists
// per JSRuntime instance.
type Process struct {
	rt       core.JSRuntime
	loop     *eventloop.Loop
	registry *core.Registry
	signals  *signals.Subsystem
	hooks    core.ExceptionHooks // nil if the engine backend doesn't support it
	version  string
	versions Versions
	argv     []string
	exitFn   func(code int)

	mu              sync.Mutex
	signalListeners map[string]int   // signal name -> listener count
	signalHandles   map[string]int64 // signal name -> registered handle ID, while subscribed
	uncaughtCount   int
	rejectionCount  int
}

// New constructs a Process and installs globalThis.process on rt. argv
// is the module's own argument tail (process.argv[0] is always "jsrt";
// argv[1] is the entry module path the caller resolved, the rest follow
// as typed by the user). hooks may be nil for engine backends that don't
// implement core.ExceptionHooks (the hooks simply never fire in that
// case).
func New(rt core.JSRuntime, loop *eventloop.Loop, registry *core.Registry, sub *signals.Subsystem, hooks core.ExceptionHooks, version string, versions Versions, argv []string, exitFn func(code int)) (*Process, error) {
	if exitFn == nil {
		exitFn = os.Exit
	}
	p := &Process{
		rt:              rt,
		loop:            loop,
		registry:        registry,
		signals:         sub,
		hooks:           hooks,
		version:         version,
		versions:        versions,
		argv:            argv,
		exitFn:          exitFn,
		signalListeners: make(map[string]int),
		signalHandles:   make(map[string]int64),
	}
	if err := p.install(); err != nil {
		return nil, err
	}
	return p, nil
}

// HandleCompletion delivers a signal completion posted by the signals
// subsystem to the matching JS listener, returning true if c named a
// handle this Process owns (a SignalRecord). Callers wire this into the
// loop's Dispatch.FireIO ahead of any other subsystem's own completion
// handling.
func (p *Process) HandleCompletion(c ioqueue.Completion) bool {
	rec := p.registry.Lookup(c.HandleID)
	if rec == nil {
		return false
	}
	if _, ok := rec.(*core.SignalRecord); !ok {
		return false
	}
	signo, _ := c.Result.(string)
	_ = p.rt.Eval(fmt.Sprintf(`globalThis.__process_emit_signal(%q)`, signo))
	return true
}

func (p *Process) install() error {
	if err := p.rt.RegisterFunc("__process_cwd", func() (string, error) {
		wd, err := os.Getwd()
		if err != nil {
			return "", core.Wrap(core.ErrResource, "", err)
		}
		return wd, nil
	}); err != nil {
		return err
	}

	if err := p.rt.RegisterFunc("__process_exit", func(code int) {
		p.exitFn(code)
	}); err != nil {
		return err
	}

	if err := p.rt.RegisterFunc("__process_memory_usage", func() string {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		return fmt.Sprintf(`{"rss":%d,"heapTotal":%d,"heapUsed":%d,"external":0}`,
			m.Sys, m.HeapSys, m.HeapAlloc)
	}); err != nil {
		return err
	}

	if err := p.rt.RegisterFunc("__process_next_tick", func(token string) {
		p.loop.NextTick(func() {
			_ = p.rt.Eval(fmt.Sprintf(`globalThis.__process_run_next_tick(%q)`, token))
		})
	}); err != nil {
		return err
	}

	if err := p.rt.RegisterFunc("__process_kill", func(pid int, sig string) error {
		return signals.Kill(pid, sig)
	}); err != nil {
		return err
	}

	if err := p.rt.RegisterFunc("__process_signal_ref", func(sig string, subscribe bool) error {
		return p.refSignal(sig, subscribe)
	}); err != nil {
		return err
	}

	if err := p.rt.RegisterFunc("__process_exception_hook_ref", func(kind string, subscribe bool) {
		p.refExceptionHook(kind, subscribe)
	}); err != nil {
		return err
	}

	if err := p.rt.SetGlobal("__process_argv_tail", p.argv); err != nil {
		return err
	}
	if err := p.rt.SetGlobal("__process_env", envMap()); err != nil {
		return err
	}
	if err := p.rt.SetGlobal("__process_pid", os.Getpid()); err != nil {
		return err
	}
	if err := p.rt.SetGlobal("__process_platform", runtimePlatform()); err != nil {
		return err
	}
	if err := p.rt.SetGlobal("__process_version", p.version); err != nil {
		return err
	}
	if err := p.rt.SetGlobal("__process_versions", map[string]string{
		"runtime": p.versions.Runtime,
		"engine":  p.versions.Engine,
	}); err != nil {
		return err
	}

	return p.rt.Eval(processJS)
}

func envMap() map[string]string {
	env := os.Environ()
	out := make(map[string]string, len(env))
	for _, kv := range env {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				out[kv[:i]] = kv[i+1:]
				break
			}
		}
	}
	return out
}

func runtimePlatform() string {
	switch runtime.GOOS {
	case "darwin":
		return "darwin"
	case "windows":
		return "win32"
	default:
		return "linux"
	}
}

// refSignal installs or tears down the OS signal subscription for sig,
// only at the 0→1 / 1→0 transition of this process object's own listener
// count for that signal — the native half of the teacher's reference-
// counted signal lifecycle, generalized from "one fixed signal set" to
// "whatever process.on(signal, ...) names".
func (p *Process) refSignal(sig string, subscribe bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	count := p.signalListeners[sig]
	if subscribe {
		count++
		p.signalListeners[sig] = count
		if count == 1 {
			id := p.registry.Register(&core.SignalRecord{Signo: sig})
			if !p.signals.Subscribe(sig, id) {
				p.registry.Unregister(id)
				p.signalListeners[sig] = 0
				return core.NewError(core.ErrArgument, "", "unsupported signal: "+sig)
			}
			p.signalHandles[sig] = id
		}
		return nil
	}

	if count == 0 {
		return nil
	}
	count--
	p.signalListeners[sig] = count
	if count == 0 {
		p.signals.Unsubscribe(sig)
		if id, ok := p.signalHandles[sig]; ok {
			p.registry.Unregister(id)
			delete(p.signalHandles, sig)
		}
	}
	return nil
}

// refExceptionHook mirrors refSignal for uncaughtException/
// unhandledRejection: the engine-level hook is only installed while at
// least one JS listener exists.
func (p *Process) refExceptionHook(kind string, subscribe bool) {
	if p.hooks == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	switch kind {
	case "uncaughtException":
		if subscribe {
			p.uncaughtCount++
			if p.uncaughtCount == 1 {
				p.hooks.OnUncaughtException(func(message, stack string) {
					_ = p.rt.Eval(fmt.Sprintf(`globalThis.__process_emit_exception(%q, %q, %q)`, "uncaughtException", message, stack))
				})
			}
		} else if p.uncaughtCount > 0 {
			p.uncaughtCount--
			if p.uncaughtCount == 0 {
				p.hooks.OnUncaughtException(nil)
			}
		}
	case "unhandledRejection":
		if subscribe {
			p.rejectionCount++
			if p.rejectionCount == 1 {
				p.hooks.OnUnhandledRejection(func(message, stack string) {
					_ = p.rt.Eval(fmt.Sprintf(`globalThis.__process_emit_exception(%q, %q, %q)`, "unhandledRejection", message, stack))
				})
			}
		} else if p.rejectionCount > 0 {
			p.rejectionCount--
			if p.rejectionCount == 0 {
				p.hooks.OnUnhandledRejection(nil)
			}
		}
	}
}

// processJS builds globalThis.process as a small event emitter over the
// native hooks above, matching §4.L's stable surface.
const processJS = `
(function() {
	var listeners = Object.create(null);
	var nextTickCallbacks = Object.create(null);
	var nextTickSeq = 0;

	function on(name, fn) {
		listeners[name] = listeners[name] || [];
		var firstForName = listeners[name].length === 0;
		listeners[name].push(fn);
		if (name === 'uncaughtException' || name === 'unhandledRejection') {
			if (firstForName) __process_exception_hook_ref(name, true);
		} else {
			if (firstForName) __process_signal_ref(name, true);
		}
		return process;
	}
	function off(name, fn) {
		var arr = listeners[name] || [];
		var idx = arr.indexOf(fn);
		if (idx !== -1) arr.splice(idx, 1);
		if (arr.length === 0) {
			if (name === 'uncaughtException' || name === 'unhandledRejection') {
				__process_exception_hook_ref(name, false);
			} else {
				__process_signal_ref(name, false);
			}
		}
		return process;
	}
	function emit(name) {
		var args = Array.prototype.slice.call(arguments, 1);
		var arr = listeners[name] || [];
		for (var i = 0; i < arr.length; i++) {
			try { arr[i].apply(null, args); } catch (e) { /* listener errors don't break the emitter */ }
		}
	}

	globalThis.__process_emit_signal = function(sig) { emit(sig); };
	globalThis.__process_emit_exception = function(kind, message, stack) {
		var err = new Error(message);
		err.stack = stack || err.stack;
		emit(kind, err);
	};

	globalThis.__process_run_next_tick = function(token) {
		var entry = nextTickCallbacks[token];
		delete nextTickCallbacks[token];
		if (!entry) return;
		entry.fn.apply(null, entry.args);
	};

	var process = {
		argv: ['jsrt'].concat(__process_argv_tail),
		env: __process_env,
		pid: __process_pid,
		platform: __process_platform,
		version: __process_version,
		versions: __process_versions,
		cwd: function() { return __process_cwd(); },
		exit: function(code) { __process_exit(code || 0); },
		memoryUsage: function() { return JSON.parse(__process_memory_usage()); },
		binding: function(name) {
			if (!globalThis.__bindings || !globalThis.__bindings[name]) {
				throw new Error('No such binding: ' + name);
			}
			return globalThis.__bindings[name];
		},
		nextTick: function(fn) {
			var args = Array.prototype.slice.call(arguments, 1);
			var token = 'nt' + (nextTickSeq++);
			nextTickCallbacks[token] = { fn: fn, args: args };
			__process_next_tick(token);
		},
		kill: function(pid, sig) { return __process_kill(pid, sig || 'SIGTERM'); },
		on: on,
		addListener: on,
		off: off,
		removeListener: off,
		emit: emit,
		stdout: { write: function(s) { __console_write ? __console_write('info', String(s)) : undefined; return true; } },
		stderr: { write: function(s) { __console_write ? __console_write('error', String(s)) : undefined; return true; } },
		stdin: { on: function() { return process.stdin; } },
	};

	globalThis.process = process;
})();
`
