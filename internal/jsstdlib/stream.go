package jsstdlib

import "jsrt/internal/core"

// SetupStream installs stream.pipeline/stream.compose (§6.2). Both drive
// any source exposing an async iterator (Symbol.asyncIterator yielding
// Uint8Array-ish chunks) into any sink exposing write(chunk)/end(), so
// this generic driver never needs to special-case a stream's origin. A
// net Socket is such a source (its JS wrapper defines
// Symbol.asyncIterator); the driver is pure JS and does not use
// internal/streamglue.
func SetupStream(rt core.JSRuntime) error {
	return rt.Eval(streamJS)
}

const streamJS = `
(function() {
	async function pipeline() {
		var streams = Array.prototype.slice.call(arguments);
		var callback = null;
		if (typeof streams[streams.length - 1] === 'function') {
			callback = streams.pop();
		}
		var src = streams[0];
		var dst = streams[streams.length - 1];
		var err = null;
		try {
			for await (var chunk of src) {
				await dst.write(chunk);
			}
			if (typeof dst.end === 'function') await dst.end();
		} catch (e) {
			err = e;
		}
		if (callback) { callback(err); return; }
		if (err) throw err;
	}

	function compose() {
		var stages = Array.prototype.slice.call(arguments);
		return {
			[Symbol.asyncIterator]: async function*() {
				var src = stages[0];
				for (var i = 1; i < stages.length; i++) {
					src = stages[i](src);
				}
				for await (var chunk of src) {
					yield chunk;
				}
			}
		};
	}

	globalThis.stream = { pipeline: pipeline, compose: compose };
})();
`
