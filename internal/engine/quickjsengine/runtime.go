//go:build !v8

// Package quickjsengine implements core.JSRuntime on top of QuickJS via
// modernc.org/quickjs. This is the default backend (no build tag
// required); internal/engine/v8engine takes over under the "v8" tag.
//
// Grounded directly on the teacher's internal/quickjs/runtime.go and
// jobpump.go (cryguy-worker), including its RegisterFunc "raw function
// plus JS unwrapper" trick (the Go wrapper returns (T, error) pairs as a
// two-element JS array, never as a thrown exception) and its
// reflection-based executePendingJobs, needed because the Go binding
// never calls JS_ExecutePendingJob on its own.
package quickjsengine

import (
	"encoding/base64"
	"fmt"
	"reflect"
	"unsafe"

	"modernc.org/libc"
	lib "modernc.org/libquickjs"
	"modernc.org/quickjs"

	"jsrt/internal/core"
)

// Runtime implements core.JSRuntime for QuickJS.
type Runtime struct {
	vm *quickjs.VM
}

var _ core.JSRuntime = (*Runtime)(nil)

// New creates a fresh QuickJS VM, applying memoryLimitMB if positive.
func New(memoryLimitMB int) (*Runtime, error) {
	vm, err := quickjs.NewVM()
	if err != nil {
		return nil, fmt.Errorf("creating QuickJS VM: %w", err)
	}
	if memoryLimitMB > 0 {
		vm.SetMemoryLimit(uintptr(memoryLimitMB) * 1024 * 1024)
	}
	return &Runtime{vm: vm}, nil
}

func (r *Runtime) Eval(js string) error {
	v, err := r.vm.EvalValue(js, quickjs.EvalGlobal)
	if err != nil {
		return err
	}
	v.Free()
	return nil
}

func (r *Runtime) EvalString(js string) (string, error) {
	result, err := r.vm.Eval(js, quickjs.EvalGlobal)
	if err != nil {
		return "", err
	}
	if result == nil {
		return "", nil
	}
	return fmt.Sprint(result), nil
}

func (r *Runtime) EvalBool(js string) (bool, error) {
	result, err := r.vm.Eval(js, quickjs.EvalGlobal)
	if err != nil {
		return false, err
	}
	b, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("expected bool, got %T", result)
	}
	return b, nil
}

func (r *Runtime) EvalInt(js string) (int, error) {
	result, err := r.vm.Eval(js, quickjs.EvalGlobal)
	if err != nil {
		return 0, err
	}
	switch v := result.(type) {
	case int:
		return v, nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("expected int, got %T", result)
	}
}

// RegisterFunc registers fn under a "__raw_" prefixed name, then installs
// a thin JS wrapper at name that unpacks the Go wrapper's (T, error) array
// convention into either a return value or a thrown TypeError — the same
// two-step dance the teacher uses, since modernc.org/quickjs's
// RegisterFunc has no way to throw from Go directly.
func (r *Runtime) RegisterFunc(name string, fn any) error {
	rawName := "__raw_" + name
	if err := r.vm.RegisterFunc(rawName, fn, false); err != nil {
		return err
	}
	wrapJS := fmt.Sprintf(`(function() {
		var raw = globalThis[%q];
		globalThis[%q] = function() {
			var r = raw.apply(this, arguments);
			if (Array.isArray(r)) {
				if (r[1] !== null && r[1] !== undefined) throw new TypeError("calling %s: " + r[1]);
				return r[0];
			}
			return r;
		};
		delete globalThis[%q];
	})()`, rawName, name, name, rawName)
	return r.Eval(wrapJS)
}

func (r *Runtime) SetGlobal(name string, value any) error {
	atom, err := r.vm.NewAtom(name)
	if err != nil {
		return fmt.Errorf("creating atom %q: %w", name, err)
	}
	glob := r.vm.GlobalObject()
	defer glob.Free()
	return glob.SetProperty(atom, value)
}

// RunMicrotasks drains the QuickJS job queue via XJS_ExecutePendingJob,
// which the Go binding never calls on its own.
func (r *Runtime) RunMicrotasks() {
	executePendingJobs(r.vm)
}

func (r *Runtime) Dispose() {
	r.vm.Close()
}

// BinaryMode reports "ab": QuickJS binds binary payloads as ArrayBuffer
// globals rather than through a shared-memory bridge.
func (r *Runtime) BinaryMode() string { return "ab" }

// WriteBinaryToJS installs data as an ArrayBuffer at globalThis[globalName]
// using a base64 round-trip: one atob call over the whole payload, copied
// into a Uint8Array view. The teacher's
// direct-C-API fast path (JS_NewArrayBufferCopy via reflected TLS/JSContext
// pointers) depends on modernc.org/quickjs's internal VM struct layout and
// is Workers-scale request-body plumbing this spec's module/FS/TCP byte
// payloads don't need at that volume; the portable path below is
// grounded on the teacher's own fallback implementation.
func (r *Runtime) WriteBinaryToJS(globalName string, data []byte) error {
	if len(data) == 0 {
		return r.Eval(fmt.Sprintf("globalThis[%q] = new ArrayBuffer(0);", globalName))
	}
	rawName := "__qjs_bt_src"
	if err := r.vm.RegisterFunc(rawName, func() string {
		return base64.StdEncoding.EncodeToString(data)
	}, false); err != nil {
		return fmt.Errorf("registering binary source: %w", err)
	}
	defer r.Eval(fmt.Sprintf("delete globalThis[%q];", rawName))

	return r.Eval(fmt.Sprintf(`(function() {
		var raw = atob(%s());
		var buf = new ArrayBuffer(raw.length);
		var view = new Uint8Array(buf);
		for (var i = 0; i < raw.length; i++) view[i] = raw.charCodeAt(i);
		globalThis[%q] = buf;
	})()`, rawName, globalName))
}

// ReadBinaryFromJS reads the ArrayBuffer at globalThis[globalName] back
// into Go bytes and deletes the global, mirroring WriteBinaryToJS.
func (r *Runtime) ReadBinaryFromJS(globalName string) ([]byte, error) {
	var collected string
	rawName := "__qjs_bt_sink"
	if err := r.vm.RegisterFunc(rawName, func(chunk string) {
		collected += chunk
	}, false); err != nil {
		return nil, fmt.Errorf("registering binary sink: %w", err)
	}
	defer r.Eval(fmt.Sprintf("delete globalThis[%q];", rawName))

	if err := r.Eval(fmt.Sprintf(`(function() {
		var buf = globalThis[%q];
		delete globalThis[%q];
		if (!buf) { %s(""); return; }
		var view = new Uint8Array(buf);
		var parts = [];
		for (var i = 0; i < view.length; i += 8192) {
			parts.push(String.fromCharCode.apply(null, view.subarray(i, Math.min(i + 8192, view.length))));
		}
		%s(btoa(parts.join('')));
	})()`, globalName, globalName, rawName, rawName)); err != nil {
		return nil, fmt.Errorf("reading binary from JS: %w", err)
	}
	if collected == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(collected)
}

// executePendingJobs pumps QuickJS's internal job queue, the same
// reflection-based extraction the teacher's jobpump.go uses because
// modernc.org/quickjs exposes no public method for it.
func executePendingJobs(vm *quickjs.VM) int {
	rt, tls, ok := extractRuntime(vm)
	if !ok {
		return 0
	}
	count := 0
	for {
		ret := lib.XJS_ExecutePendingJob(tls, rt, 0)
		if ret <= 0 {
			break
		}
		count++
	}
	return count
}

func extractRuntime(vm *quickjs.VM) (cRuntime uintptr, tls *libc.TLS, ok bool) {
	vmVal := reflect.ValueOf(vm).Elem()

	rtField := vmVal.FieldByName("runtime")
	if !rtField.IsValid() || rtField.IsNil() {
		return 0, nil, false
	}

	rtPtr := unsafe.Pointer(rtField.Pointer())
	rtVal := reflect.NewAt(rtField.Type().Elem(), rtPtr).Elem()

	cRuntimeField := rtVal.FieldByName("cRuntime")
	if !cRuntimeField.IsValid() {
		return 0, nil, false
	}
	cRuntime = uintptr(cRuntimeField.Uint())

	tlsField := rtVal.FieldByName("tls")
	if !tlsField.IsValid() || tlsField.IsNil() {
		return 0, nil, false
	}
	tls = (*libc.TLS)(unsafe.Pointer(tlsField.Pointer()))

	return cRuntime, tls, true
}
