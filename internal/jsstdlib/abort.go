package jsstdlib

import "jsrt/internal/core"

// SetupAbort installs the §6.2 AbortController/AbortSignal surface as
// pure JS. Neither engine backend has a native equivalent, so — same as
// atob/btoa and TextEncoder — this is expressed directly as JS layered
// on EventTarget-style listener bookkeeping, grounded on the event-
// emitter shape already established in net.go (on/off/emit), rather
// than introducing a second listener convention.
func SetupAbort(rt core.JSRuntime) error {
	return rt.Eval(abortJS)
}

const abortJS = `
(function() {
	function AbortSignal() {
		this.aborted = false;
		this.reason = undefined;
		this._listeners = Object.create(null);
	}
	AbortSignal.prototype.addEventListener = function(name, fn) {
		(this._listeners[name] = this._listeners[name] || []).push(fn);
	};
	AbortSignal.prototype.removeEventListener = function(name, fn) {
		var arr = this._listeners[name] || [];
		var idx = arr.indexOf(fn);
		if (idx !== -1) arr.splice(idx, 1);
	};
	AbortSignal.prototype._fire = function(name) {
		var arr = this._listeners[name] || [];
		for (var i = 0; i < arr.length; i++) {
			try { arr[i].call(this, { type: name, target: this }); } catch (e) { /* listener errors isolated */ }
		}
		var prop = 'on' + name;
		if (typeof this[prop] === 'function') {
			try { this[prop]({ type: name, target: this }); } catch (e) { /* listener errors isolated */ }
		}
	};
	AbortSignal.prototype.throwIfAborted = function() {
		if (this.aborted) throw this.reason;
	};

	AbortSignal.abort = function(reason) {
		var s = new AbortSignal();
		s.aborted = true;
		s.reason = reason !== undefined ? reason : new Error('This operation was aborted');
		return s;
	};
	AbortSignal.timeout = function(ms) {
		var s = new AbortSignal();
		setTimeout(function() {
			if (s.aborted) return;
			s.aborted = true;
			s.reason = new Error('signal timed out');
			s._fire('abort');
		}, ms);
		return s;
	};

	function AbortController() {
		this.signal = new AbortSignal();
	}
	AbortController.prototype.abort = function(reason) {
		var s = this.signal;
		if (s.aborted) return;
		s.aborted = true;
		s.reason = reason !== undefined ? reason : new Error('This operation was aborted');
		s._fire('abort');
	};

	globalThis.AbortSignal = AbortSignal;
	globalThis.AbortController = AbortController;
})();
`
