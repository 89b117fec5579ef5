package jsstdlib

import "jsrt/internal/core"

// SetupDNS installs the §4.J/§6.2 "dns" module as globalThis.dns:
// dns.lookup(hostname) -> promise<[{family, address}, ...]>, layered on
// process.binding('dns')'s lookup (async, handle-ID-returning, completed
// through the shared __ioComplete/__ioError hooks) and lookupSync (a
// JSON-string result, parsed here, for the rare synchronous call site).
//
// Must be installed after bridge.Install and chains onto whatever
// __ioComplete/__ioError SetupFS/SetupNet already installed, the same
// way those two chain onto each other — order between SetupFS and
// SetupDNS does not matter.
func SetupDNS(rt core.JSRuntime) error {
	return rt.Eval(dnsJS)
}

const dnsJS = `
(function() {
	var binding = null;
	function b() { return binding || (binding = process.binding('dns')); }

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

	function lookup(hostname) {
		return new Promise(function(resolve, reject) {
			var id = b().lookup(hostname);
			pending[id] = { resolve: resolve, reject: reject };
		});
	}

	function lookupSync(hostname) {
		return JSON.parse(b().lookupSync(hostname));
	}

	globalThis.dns = {
		lookup: lookup,
		lookupSync: lookupSync,
	};
})();
`
