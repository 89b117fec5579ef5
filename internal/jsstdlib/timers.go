// Package jsstdlib holds the thin JS polyfills spec.md calls "plumbing,
// not core subjects" (timers, assert, stream, the process bootstrap):
// each wraps a handful of Go-registered native functions in the minimal
// JS needed to present the stable surface of §6.2.
//
// Timers are grounded directly on the teacher's timers.go: JS-side
// callback storage in a plain object keyed by timer ID, Go-side only
// tracks scheduling metadata. Generalized from setTimeout/setInterval to
// also cover setImmediate/clearImmediate (the §9-resolved "setImmediate
// is the true same-tick-deferral primitive" decision) and nextTick's 1ms
// floor for setTimeout(fn, 0).
package jsstdlib

import (
	"time"

	"jsrt/internal/core"
	"jsrt/internal/eventloop"
	"jsrt/internal/timerheap"
)

// minDelay is the 1ms floor setTimeout(fn, 0) keeps, per §9.
const minDelay = 1 * time.Millisecond

// maxDelayMs is the largest delay accepted as given; per §4.B, NaN or
// anything outside [1, 2^31-1] clamps down to 1ms, matching the
// platform's 32-bit signed delay representation.
const maxDelayMs = (1 << 31) - 1

// SetupTimers installs setTimeout/setInterval/clearTimeout/clearInterval/
// setImmediate/clearImmediate on rt, backed by timers (the shared heap)
// and loop (for setImmediate's FIFO and the alive-count termination rule).
func SetupTimers(rt core.JSRuntime, loop *eventloop.Loop, registry *core.Registry, timers *timerheap.Heap) error {
	if err := rt.RegisterFunc("__timer_register", func(delayMs int, periodic bool) int64 {
		if delayMs < 1 || delayMs > maxDelayMs {
			delayMs = 1
		}
		delay := time.Duration(delayMs) * time.Millisecond
		if delay < minDelay {
			delay = minDelay
		}
		deadline := time.Now().Add(delay)
		period := time.Duration(0)
		if periodic {
			period = delay
		}
		rec := core.NewTimerRecord(deadline, period, "", nil)
		id := registry.Register(rec)
		timers.Insert(id, deadline, period)
		return id
	}); err != nil {
		return err
	}

	if err := rt.RegisterFunc("__timer_clear", func(id int64) {
		timers.RemoveByID(id)
		registry.Unregister(id)
	}); err != nil {
		return err
	}

	if err := rt.RegisterFunc("__immediate_register", func() int64 {
		id := registry.Register(&core.ImmediateRecord{})
		loop.ScheduleImmediate(id, false)
		return id
	}); err != nil {
		return err
	}

	if err := rt.RegisterFunc("__immediate_clear", func(id int64) {
		registry.Unregister(id)
	}); err != nil {
		return err
	}

	if err := rt.RegisterFunc("__timer_ref", func(id int64) {
		registry.Ref(id)
	}); err != nil {
		return err
	}

	if err := rt.RegisterFunc("__timer_unref", func(id int64) {
		registry.Unref(id)
	}); err != nil {
		return err
	}

	return rt.Eval(timersJS)
}

const timersJS = `
(function() {
	globalThis.__timerCallbacks = globalThis.__timerCallbacks || {};
	globalThis.__immediateCallbacks = globalThis.__immediateCallbacks || {};

	globalThis.__timerFire = function(id, periodic) {
		var entry = globalThis.__timerCallbacks[id];
		if (!entry) return;
		if (!periodic) delete globalThis.__timerCallbacks[id];
		try { entry.fn.apply(null, entry.args); } catch (e) {
			if (globalThis.__process_emit_exception) {
				globalThis.__process_emit_exception('uncaughtException', String(e && e.message || e), e && e.stack);
			}
		}
	};

	globalThis.__immediateFire = function(id) {
		var entry = globalThis.__immediateCallbacks[id];
		delete globalThis.__immediateCallbacks[id];
		if (!entry) return;
		try { entry.fn.apply(null, entry.args); } catch (e) {
			if (globalThis.__process_emit_exception) {
				globalThis.__process_emit_exception('uncaughtException', String(e && e.message || e), e && e.stack);
			}
		}
	};

	// A Timeout/Interval handle: numerically coercible (so comparisons and
	// arithmetic on the return value keep working) but also ref/unref-able
	// per §3's "keep-alive flag, true unless explicitly unref'd".
	function Timeout(id) {
		this.id = id;
	}
	Timeout.prototype.ref = function() { __timer_ref(this.id); return this; };
	Timeout.prototype.unref = function() { __timer_unref(this.id); return this; };
	Timeout.prototype.hasRef = function() { return true; };
	Timeout.prototype[Symbol.toPrimitive] = function() { return this.id; };
	Timeout.prototype.valueOf = function() { return this.id; };

	function timerID(handle) {
		return (handle instanceof Timeout) ? handle.id : handle;
	}

	globalThis.setTimeout = function(fn, delay) {
		if (typeof fn !== 'function') return new Timeout(0);
		var args = Array.prototype.slice.call(arguments, 2);
		var id = __timer_register(delay || 0, false);
		globalThis.__timerCallbacks[id] = { fn: fn, args: args };
		return new Timeout(id);
	};
	globalThis.setInterval = function(fn, interval) {
		if (typeof fn !== 'function') return new Timeout(0);
		var args = Array.prototype.slice.call(arguments, 2);
		var id = __timer_register(interval || 0, true);
		globalThis.__timerCallbacks[id] = { fn: fn, args: args, periodic: true };
		return new Timeout(id);
	};
	globalThis.clearTimeout = globalThis.clearInterval = function(handle) {
		var id = timerID(handle);
		if (typeof id !== 'number') return;
		__timer_clear(id);
		delete globalThis.__timerCallbacks[id];
	};
	globalThis.setImmediate = function(fn) {
		if (typeof fn !== 'function') return 0;
		var args = Array.prototype.slice.call(arguments, 1);
		var id = __immediate_register();
		globalThis.__immediateCallbacks[id] = { fn: fn, args: args };
		return id;
	};
	globalThis.clearImmediate = function(id) {
		if (typeof id !== 'number') return;
		__immediate_clear(id);
		delete globalThis.__immediateCallbacks[id];
	};
})();
`
