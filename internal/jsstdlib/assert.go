package jsstdlib

import "jsrt/internal/core"

// SetupAssert installs the assert module's stable surface (§6.2): a
// callable assert(value, message) plus assert.ok/equal/strictEqual/
// deepEqual/throws, each throwing an AssertionError-shaped JS error on
// failure so it round-trips through the §7 error taxonomy.
func SetupAssert(rt core.JSRuntime) error {
	return rt.Eval(assertJS)
}

const assertJS = `
(function() {
	function AssertionError(message) {
		var e = new Error(message);
		e.name = 'AssertionError';
		e.code = 'ERR_ASSERTION';
		return e;
	}

	function deepEqual(a, b) {
		if (a === b) return true;
		if (typeof a !== typeof b) return false;
		if (a === null || b === null) return a === b;
		if (typeof a !== 'object') return false;
		var ak = Object.keys(a), bk = Object.keys(b);
		if (ak.length !== bk.length) return false;
		for (var i = 0; i < ak.length; i++) {
			if (!deepEqual(a[ak[i]], b[ak[i]])) return false;
		}
		return true;
	}

	function assert(value, message) {
		if (!value) throw AssertionError(message || (String(value) + ' == true'));
	}
	assert.ok = assert;
	assert.equal = function(a, b, message) {
		if (a != b) throw AssertionError(message || (String(a) + ' == ' + String(b)));
	};
	assert.strictEqual = function(a, b, message) {
		if (a !== b) throw AssertionError(message || (String(a) + ' === ' + String(b)));
	};
	assert.deepEqual = function(a, b, message) {
		if (!deepEqual(a, b)) throw AssertionError(message || 'deepEqual failed');
	};
	assert.notEqual = function(a, b, message) {
		if (a == b) throw AssertionError(message || (String(a) + ' != ' + String(b)));
	};
	assert.throws = function(fn, message) {
		var threw = false;
		try { fn(); } catch (e) { threw = true; }
		if (!threw) throw AssertionError(message || 'expected function to throw');
	};
	assert.fail = function(message) { throw AssertionError(message || 'failed'); };

	globalThis.assert = assert;
})();
`
