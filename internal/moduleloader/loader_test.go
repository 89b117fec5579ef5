package moduleloader

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"jsrt/internal/core"
)

// fakeRuntime is a minimal in-process core.JSRuntime: it interprets only
// the tiny subset of Eval calls this package itself produces, by keeping
// a simple string-keyed side table instead of a real engine. It exists so
// loader_test.go exercises Loader's Go-side state machine and dedup logic
// without depending on either engine backend build.
type fakeRuntime struct {
	mu         sync.Mutex
	evalCount  int
	registered map[string]bool
}

func newFakeRuntime() *fakeRuntime { return &fakeRuntime{registered: make(map[string]bool)} }

func (r *fakeRuntime) Eval(js string) error {
	r.mu.Lock()
	r.evalCount++
	r.mu.Unlock()
	return nil
}
func (r *fakeRuntime) EvalString(js string) (string, error) { return "", nil }
func (r *fakeRuntime) EvalBool(js string) (bool, error)     { return false, nil }
func (r *fakeRuntime) EvalInt(js string) (int, error)       { return 0, nil }
func (r *fakeRuntime) RegisterFunc(name string, fn any) error {
	r.registered[name] = true
	return nil
}
func (r *fakeRuntime) SetGlobal(name string, value any) error { return nil }
func (r *fakeRuntime) RunMicrotasks()                         {}
func (r *fakeRuntime) Dispose()                               {}

func writeModule(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return "file://" + p
}

func TestResolveRelativeAndAbsolute(t *testing.T) {
	base := "file:///project/src/main.js"

	got, err := Resolve(base, "./util.js")
	require.NoError(t, err)
	require.Equal(t, "file:///project/src/util.js", got)

	got, err = Resolve(base, "../lib/shared.js")
	require.NoError(t, err)
	require.Equal(t, "file:///project/lib/shared.js", got)

	_, err = Resolve(base, "left-pad")
	require.Error(t, err, "bare specifiers with no built-in entry and no package resolution must error")
}

func TestResolveBuiltinModuleNames(t *testing.T) {
	base := "file:///project/src/main.js"

	for _, name := range []string{"fs", "net", "http", "assert", "stream", "events", "perf_hooks", "dns", "sqlite", "colors", "test", "util"} {
		got, err := Resolve(base, name)
		require.NoError(t, err, "%q is in the built-in module table and must resolve", name)
		require.Equal(t, "builtin:"+name, got)
	}
}

func TestClassifyByExtension(t *testing.T) {
	require.Equal(t, 1, int(classify("file:///x/data.json")))
	require.Equal(t, 2, int(classify("file:///x/mod.wasm")))
	require.Equal(t, 0, int(classify("file:///x/mod.js")))
	require.Equal(t, 3, int(classify("builtin:fs")))
}

func TestScanStaticImportsFindsStaticAndDynamic(t *testing.T) {
	src := `
import foo from "./foo.js";
import { a, b } from "../bar.js";
export * from "./reexport.js";
const lazy = await import("./lazy.js");
`
	specs := scanStaticImports(src)
	require.Contains(t, specs, "./foo.js")
	require.Contains(t, specs, "../bar.js")
	require.Contains(t, specs, "./reexport.js")
	require.Contains(t, specs, "./lazy.js")
}

func TestLoadJSONModuleInstantiatesAndEvaluates(t *testing.T) {
	dir := t.TempDir()
	url := writeModule(t, dir, "data.json", `{"ok":true}`)

	rt := newFakeRuntime()
	l := New(rt)

	resolved, err := l.Load("file://"+dir+"/entry.js", url)
	require.NoError(t, err)
	require.Equal(t, url, resolved)

	mod := l.Get(url)
	require.NotNil(t, mod)
	require.Equal(t, 1, int(mod.Kind))
}

func TestLoadBuiltinModuleInstantiatesWithoutFetching(t *testing.T) {
	rt := newFakeRuntime()
	l := New(rt)

	entryURL := "file:///project/src/main.js"
	resolved, err := l.Load(entryURL, "fs")
	require.NoError(t, err)
	require.Equal(t, "builtin:fs", resolved)

	mod := l.Get(resolved)
	require.NotNil(t, mod)
	require.Equal(t, core.ModuleBuiltin, mod.Kind)
	require.Equal(t, core.StateEvaluated, mod.State)
}

// TestConcurrentImportDedupsByURL is Scenario S6: importing the same
// specifier from N concurrent goroutines must fetch/transform/evaluate it
// exactly once.
func TestConcurrentImportDedupsByURL(t *testing.T) {
	dir := t.TempDir()
	depURL := writeModule(t, dir, "shared.js", `export const value = 1;`)
	entryURL := "file://" + filepath.Join(dir, "entry.js")

	rt := newFakeRuntime()
	l := New(rt)

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := l.Load(entryURL, depURL)
			errs[i] = err
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, fmt.Sprintf("goroutine %d", i))
	}
	require.Equal(t, 1, l.Count(), "shared.js must be loaded exactly once")
}
