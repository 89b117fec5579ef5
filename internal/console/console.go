// Package console wires globalThis.console to the process's logger, using
// the teacher's "thin JS shim calling a Go-registered sink" idiom
// (internal/webapi/console.go: SetupConsole/SetupConsoleExt) generalized
// from per-request log buffering to this spec's single Logger sink.
//
// The recursive pretty-printer (stringifyObject) stays on the JS side,
// same as the teacher's console.table/console.dir fallback to
// JSON.stringify, because only JS-side code can walk live object
// references and detect cycles through them; Go only ever sees the
// already-formatted string. This fixes the cycle-detection bug called
// out in the design notes: `seen` is keyed on the value about to be
// recursed *into* (the child), not the parent doing the recursing, so a
// value that legitimately appears twice at the same level (but isn't
// actually cyclic) doesn't get misreported as "[Circular]".
package console

import (
	"jsrt/internal/core"
)

// Setup installs console.{log,info,warn,error,debug} plus the extended
// methods (time/timeEnd/count/assert/group/dir/table/trace) on rt,
// writing formatted lines through logger.
func Setup(rt core.JSRuntime, logger core.Logger) error {
	if err := rt.RegisterFunc("__console_write", func(level, message string) {
		writeToLogger(logger, level, message)
	}); err != nil {
		return err
	}
	if err := rt.Eval(stringifyJS); err != nil {
		return err
	}
	if err := rt.Eval(consoleCoreJS); err != nil {
		return err
	}
	return rt.Eval(consoleExtJS)
}

func writeToLogger(logger core.Logger, level, message string) {
	switch level {
	case "error":
		logger.Error(message)
	case "warn":
		logger.Warn(message)
	case "debug":
		logger.Debug(message)
	default:
		logger.Info(message)
	}
}

// stringifyJS implements the recursive formatter. Grounded on the
// teacher's inline JSON.stringify(data, null, 2) fallback in
// console.table/console.dir, generalized into a full node-util-inspect-
// style formatter with correct cycle detection.
const stringifyJS = `
(function() {
	function stringifyValue(value, seen, depth) {
		if (value === null) return 'null';
		var t = typeof value;
		if (t === 'undefined') return 'undefined';
		if (t === 'string') return depth === 0 ? value : JSON.stringify(value);
		if (t === 'number' || t === 'boolean') return String(value);
		if (t === 'function') return '[Function: ' + (value.name || 'anonymous') + ']';
		if (t !== 'object') return String(value);

		// Cycle detection keys on the child value being recursed into, not
		// the parent doing the recursing: a value referenced twice from two
		// different, non-overlapping branches is not circular, only a value
		// that recurs into one of its own ancestors is.
		if (seen.indexOf(value) !== -1) return '[Circular]';
		var nextSeen = seen.concat([value]);

		if (Array.isArray(value)) {
			var items = value.map(function(v) { return stringifyValue(v, nextSeen, depth + 1); });
			return '[ ' + items.join(', ') + ' ]';
		}
		if (value instanceof Error) {
			return value.stack || (value.name + ': ' + value.message);
		}
		var keys = Object.keys(value);
		if (keys.length === 0) return '{}';
		var parts = keys.map(function(k) {
			return k + ': ' + stringifyValue(value[k], nextSeen, depth + 1);
		});
		return '{ ' + parts.join(', ') + ' }';
	}

	globalThis.__stringifyObject = function(value) {
		return stringifyValue(value, [], 0);
	};
})();
`

const consoleCoreJS = `
(function() {
	var levels = ['log', 'info', 'warn', 'error', 'debug'];
	var levelMap = { log: 'info', info: 'info', warn: 'warn', error: 'error', debug: 'debug' };
	var con = {};
	for (var i = 0; i < levels.length; i++) {
		(function(lvl) {
			con[lvl] = function() {
				var parts = [];
				for (var j = 0; j < arguments.length; j++) {
					parts.push(__stringifyObject(arguments[j]));
				}
				__console_write(levelMap[lvl], parts.join(' '));
			};
		})(levels[i]);
	}
	globalThis.console = con;
})();
`

const consoleExtJS = `
(function() {
var __timers = {};
var __counters = {};
var __groupDepth = 0;
function indent(s) {
	var pad = '  '.repeat(__groupDepth);
	return pad + s;
}
console.time = function(label) {
	__timers[label || 'default'] = performance.now();
};
console.timeEnd = function(label) {
	var l = label || 'default';
	var start = __timers[l];
	if (start === undefined) { console.warn('Timer "' + l + '" does not exist'); return; }
	var elapsed = performance.now() - start;
	delete __timers[l];
	console.log(indent(l + ': ' + elapsed.toFixed(3) + 'ms'));
};
console.timeLog = function(label) {
	var l = label || 'default';
	var start = __timers[l];
	if (start === undefined) { console.warn('Timer "' + l + '" does not exist'); return; }
	var elapsed = performance.now() - start;
	var args = Array.prototype.slice.call(arguments, 1);
	console.log.apply(console, [indent(l + ': ' + elapsed.toFixed(3) + 'ms')].concat(args));
};
console.count = function(label) {
	var l = label || 'default';
	__counters[l] = (__counters[l] || 0) + 1;
	console.log(indent(l + ': ' + __counters[l]));
};
console.countReset = function(label) {
	__counters[label || 'default'] = 0;
};
console.assert = function(cond) {
	if (!cond) {
		var args = Array.prototype.slice.call(arguments, 1);
		console.error.apply(console, ['Assertion failed' + (args.length ? ':' : '')].concat(args));
	}
};
console.table = function(data) {
	console.log(__stringifyObject(data));
};
console.dir = function(obj) {
	console.log(__stringifyObject(obj));
};
console.trace = function() {
	var args = Array.prototype.slice.call(arguments);
	console.log.apply(console, ['Trace:'].concat(args));
};
console.group = function(label) {
	if (label) console.log(indent(label));
	__groupDepth++;
};
console.groupEnd = function() {
	if (__groupDepth > 0) __groupDepth--;
};
// clear is a no-op: the structured-logger sink this runtime writes
// through is never a TTY, and Node's own console.clear() documents
// exactly that as its non-TTY behavior.
console.clear = function() {};
})();
`
