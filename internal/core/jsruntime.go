package core

// JSRuntime abstracts the JavaScript engine (V8 or QuickJS) behind a
// common interface used by the event loop, the bridge, and the module
// loader. This is the §6.1 "engine embedding contract" collaborator: the
// runtime treats bytecode execution and GC as a black box and only relies
// on the operations below.
//
// Grounded on the teacher's internal/core.JSRuntime (cryguy-worker), which
// abstracts the same V8/QuickJS split via eval-string plumbing because
// neither Go binding exposes the engine's native ES-module graph API.
type JSRuntime interface {
	// Eval evaluates JavaScript source and discards the result.
	Eval(js string) error

	// EvalString evaluates JavaScript and returns the result as a Go string.
	EvalString(js string) (string, error)

	// EvalBool evaluates JavaScript and returns the result as a Go bool.
	EvalBool(js string) (bool, error)

	// EvalInt evaluates JavaScript and returns the result as a Go int.
	EvalInt(js string) (int, error)

	// RegisterFunc registers a Go function as a global JavaScript
	// function, reachable from JS as globalThis[name]. Go-side errors
	// are thrown into JS: as a TypeError by the QuickJS backend, as the
	// plain message string by the V8 backend.
	RegisterFunc(name string, fn any) error

	// SetGlobal sets a global variable; basic Go types (string, int,
	// float64, bool) are converted to their JS equivalents.
	SetGlobal(name string, value any) error

	// RunMicrotasks drains the engine's microtask queue to empty. Must be
	// called by the loop after every callback invocation (§4.E step 1).
	RunMicrotasks()

	// Dispose releases the underlying isolate/context. No further calls
	// are valid afterward.
	Dispose()
}

// PromiseSettler is implemented by runtimes that can construct and settle
// a JS Promise from native code (§6.1(c), the "Promise contract" of
// §4.F). The loop calls Resolve/Reject from the poll or timer phase once
// a background completion arrives.
type PromiseSettler interface {
	// NewPendingPromise returns a JS expression string that evaluates to
	// a new Promise, plus an opaque token used to settle it later.
	NewPendingPromise() (expr string, token string)
	ResolvePromise(token string, resultJSON string) error
	RejectPromise(token string, errJSON string) error
}

// ExceptionHooks is implemented by runtimes that can install the
// engine-level uncaught-exception / unhandled-rejection capture hooks
// referenced by §4.L. Installing a hook is only meaningful while at
// least one JS-side listener is registered; process.go manages that
// reference count and calls these only at the 0→1 / 1→0 transitions,
// passing a nil fn at 1→0 to remove the hook.
type ExceptionHooks interface {
	OnUncaughtException(fn func(message, stack string))
	OnUnhandledRejection(fn func(message, stack string))
}
