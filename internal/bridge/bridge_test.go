package bridge

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeRuntime struct {
	registered []string
	evals      []string
}

func (f *fakeRuntime) Eval(js string) error {
	f.evals = append(f.evals, js)
	return nil
}
func (f *fakeRuntime) EvalString(string) (string, error) { return "", nil }
func (f *fakeRuntime) EvalBool(string) (bool, error)     { return false, nil }
func (f *fakeRuntime) EvalInt(string) (int, error)       { return 0, nil }
func (f *fakeRuntime) RegisterFunc(name string, fn any) error {
	f.registered = append(f.registered, name)
	return nil
}
func (f *fakeRuntime) SetGlobal(string, any) error { return nil }
func (f *fakeRuntime) RunMicrotasks()              {}
func (f *fakeRuntime) Dispose()                    {}

func TestBindAccumulatesModulesAndInstallBuildsTable(t *testing.T) {
	rt := &fakeRuntime{}
	reg := New(rt)

	require.NoError(t, reg.Bind("fs", "readFileSync", func() {}))
	require.NoError(t, reg.Bind("fs", "writeFileSync", func() {}))
	require.NoError(t, reg.Bind("dns", "lookup", func() {}))

	require.Equal(t, []string{"dns", "fs"}, reg.Modules())
	require.Len(t, rt.registered, 3)

	require.NoError(t, reg.Install())
	require.Len(t, rt.evals, 1)
	require.Contains(t, rt.evals[0], `globalThis.__bindings["fs"]`)
	require.Contains(t, rt.evals[0], `globalThis.__bindings["dns"]`)
}
