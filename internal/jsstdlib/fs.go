package jsstdlib

import "jsrt/internal/core"

// SetupFS installs the §4.I/§6.2 "fs" module as globalThis.fs, the same
// way SetupNet/SetupHTTP layer a JS-visible object over a native binding
// table: the synchronous calls (statSync/readFileSync/writeFileSync/
// mkdirSync/rmdirSync/copyFileSync) pass straight through to
// process.binding('fs'), and the async calls (readFile/writeFile/stat)
// wrap a handle-ID-returning native call in a Promise settled by the
// generic __ioComplete/__ioError completion hooks dispatchCompletion
// drives for every fs.Pool background operation.
//
// Must be installed after bridge.Install (process.binding('fs') must be
// live). It chains onto any already-installed __ioComplete/__ioError
// rather than assuming it's first, as SetupNet does, so its order
// relative to SetupNet does not matter.
func SetupFS(rt core.JSRuntime) error {
	return rt.Eval(fsJS)
}

const fsJS = `
(function() {
	var binding = null;
	function b() { return binding || (binding = process.binding('fs')); }

	var pending = Object.create(null); // handle id -> { resolve, reject }

	var prevIoComplete = globalThis.__ioComplete;
	globalThis.__ioComplete = function(id, result) {
		var p = pending[id];
		if (p) { delete pending[id]; p.resolve(result); return; }
		if (prevIoComplete) prevIoComplete(id, result);
	};
	var prevIoError = globalThis.__ioError;
	globalThis.__ioError = function(id, message) {
		var p = pending[id];
		if (p) { delete pending[id]; p.reject(new Error(message)); return; }
		if (prevIoError) prevIoError(id, message);
	};

	function asyncCall(nativeFn, args) {
		return new Promise(function(resolve, reject) {
			var id = nativeFn.apply(null, args);
			pending[id] = { resolve: resolve, reject: reject };
		});
	}

	function readFile(path) { return asyncCall(b().readFile, [path]); }
	function writeFile(path, data) { return asyncCall(b().writeFile, [path, data]); }
	function stat(path) { return asyncCall(b().stat, [path]); }

	globalThis.fs = {
		statSync: function(path) { return b().statSync(path); },
		readFileSync: function(path) { return b().readFileSync(path); },
		writeFileSync: function(path, data) { return b().writeFileSync(path, data); },
		mkdirSync: function(path, recursive) { return b().mkdirSync(path, !!recursive); },
		rmdirSync: function(path, recursive) { return b().rmdirSync(path, !!recursive); },
		copyFileSync: function(src, dst) { return b().copyFileSync(src, dst); },
		readFile: readFile,
		writeFile: writeFile,
		stat: stat,
		promises: {
			readFile: readFile,
			writeFile: writeFile,
			stat: stat,
		}
	};
})();
`
