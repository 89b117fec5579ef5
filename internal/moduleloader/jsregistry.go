package moduleloader

// registryJS bootstraps the JS-side module table described by §4.K's
// engine-native-linking workaround: since neither Go engine binding
// exposes a real ES-module graph, each transformed module is installed as
// a CommonJS-shaped factory keyed by its resolved URL, and __require
// walks the graph eagerly the first time it's asked for a given URL,
// matching the teacher's wrapESModule/__worker_module__ convention
// (pool.go) generalized from "one entry script" to "a graph of modules".
const registryJS = `
(function() {
	if (globalThis.__modules) return;
	globalThis.__modules = Object.create(null);
	globalThis.__moduleExports = Object.create(null);
	globalThis.__moduleInFlight = Object.create(null);

	globalThis.__require = function(url) {
		if (Object.prototype.hasOwnProperty.call(globalThis.__moduleExports, url)) {
			return globalThis.__moduleExports[url];
		}
		if (globalThis.__moduleInFlight[url]) {
			// Circular require: return the partial exports object, Node-style.
			return globalThis.__moduleInFlight[url].exports;
		}
		var entry = globalThis.__modules[url];
		if (!entry) {
			throw new Error("module not instantiated: " + url);
		}
		var mod = { exports: {} };
		globalThis.__moduleInFlight[url] = mod;
		try {
			entry.factory(mod, mod.exports, globalThis.__require, url);
		} finally {
			delete globalThis.__moduleInFlight[url];
		}
		globalThis.__moduleExports[url] = mod.exports;
		return mod.exports;
	};
})();
`
