// Package bridge implements the §4.F JS↔native bridge's binding registry:
// a mapping from module name ("timers", "fs", "net", "stdio",
// "http_parser", "sqlite", "dns", "perf_hooks", "signals", "exceptions",
// "promise") to a table of named native functions, reachable from JS via
// process.binding(name) and memoized (the same table object is returned
// on every call for a given name).
//
// Grounded on the teacher's RegisterFunc-per-global idiom (every engine
// backend's RegisterFunc installs one flat globalThis[name] function;
// see internal/v8engine and internal/quickjs runtime.go), generalized
// here into namespaced tables instead of one flat global per function.
package bridge

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"jsrt/internal/core"
)

// Registry accumulates native functions under (module, name) pairs before
// Install assembles them into globalThis.__bindings.
type Registry struct {
	mu      sync.Mutex
	rt      core.JSRuntime
	modules map[string]map[string]string // module -> name -> flat global name
	seq     int
}

// New creates a Registry bound to rt.
func New(rt core.JSRuntime) *Registry {
	return &Registry{rt: rt, modules: make(map[string]map[string]string)}
}

// Bind registers fn as the native implementation of module.name. fn is
// installed under an internal flat global name (globalThis.__binding_N),
// which stays defined after Install; Install also exposes it as
// globalThis.__bindings[module][name].
func (b *Registry) Bind(module, name string, fn any) error {
	b.mu.Lock()
	b.seq++
	flat := fmt.Sprintf("__binding_%d", b.seq)
	if b.modules[module] == nil {
		b.modules[module] = make(map[string]string)
	}
	b.modules[module][name] = flat
	b.mu.Unlock()

	return b.rt.RegisterFunc(flat, fn)
}

// Install builds globalThis.__bindings from every Bind call so far. It
// must run once, after all Bind calls, before JS code calls
// process.binding(name) — matching §4.F's "tables are memoized" rule:
// binding() never constructs a table on demand, it only indexes into the
// one built here.
func (b *Registry) Install() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	names := make([]string, 0, len(b.modules))
	for m := range b.modules {
		names = append(names, m)
	}
	sort.Strings(names)

	var js strings.Builder
	js.WriteString("(function(){ globalThis.__bindings = globalThis.__bindings || {};\n")
	for _, module := range names {
		js.WriteString(fmt.Sprintf("globalThis.__bindings[%q] = {};\n", module))
		fnNames := make([]string, 0, len(b.modules[module]))
		for n := range b.modules[module] {
			fnNames = append(fnNames, n)
		}
		sort.Strings(fnNames)
		for _, n := range fnNames {
			flat := b.modules[module][n]
			js.WriteString(fmt.Sprintf("globalThis.__bindings[%q][%q] = globalThis[%q];\n", module, n, flat))
		}
	}
	js.WriteString("})();")

	return b.rt.Eval(js.String())
}

// Modules returns the sorted list of module names registered so far, for
// diagnostics and tests.
func (b *Registry) Modules() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, 0, len(b.modules))
	for m := range b.modules {
		names = append(names, m)
	}
	sort.Strings(names)
	return names
}
