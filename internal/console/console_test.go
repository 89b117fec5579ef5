package console

import (
	"testing"

	"github.com/stretchr/testify/require"

	"jsrt/internal/core"
)

type fakeRuntime struct {
	evals      []string
	registered map[string]any
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{registered: make(map[string]any)}
}
func (f *fakeRuntime) Eval(js string) error {
	f.evals = append(f.evals, js)
	return nil
}
func (f *fakeRuntime) EvalString(string) (string, error) { return "", nil }
func (f *fakeRuntime) EvalBool(string) (bool, error)     { return false, nil }
func (f *fakeRuntime) EvalInt(string) (int, error)       { return 0, nil }
func (f *fakeRuntime) RegisterFunc(name string, fn any) error {
	f.registered[name] = fn
	return nil
}
func (f *fakeRuntime) SetGlobal(string, any) error { return nil }
func (f *fakeRuntime) RunMicrotasks()              {}
func (f *fakeRuntime) Dispose()                    {}

var _ core.JSRuntime = (*fakeRuntime)(nil)

func TestSetupInstallsTimeLogAndClear(t *testing.T) {
	rt := newFakeRuntime()
	require.NoError(t, Setup(rt, &recordingLogger{}))
	last := rt.evals[len(rt.evals)-1]
	require.Contains(t, last, "console.timeLog")
	require.Contains(t, last, "console.clear")
}

type recordingLogger struct {
	debug, info, warn, error []string
}

func (r *recordingLogger) Debug(msg string, args ...any) { r.debug = append(r.debug, msg) }
func (r *recordingLogger) Info(msg string, args ...any)  { r.info = append(r.info, msg) }
func (r *recordingLogger) Warn(msg string, args ...any)  { r.warn = append(r.warn, msg) }
func (r *recordingLogger) Error(msg string, args ...any) { r.error = append(r.error, msg) }

func TestWriteToLoggerDispatchesByLevel(t *testing.T) {
	rec := &recordingLogger{}

	writeToLogger(rec, "error", "boom")
	writeToLogger(rec, "warn", "careful")
	writeToLogger(rec, "debug", "detail")
	writeToLogger(rec, "info", "hello")
	writeToLogger(rec, "log", "treated as info")

	require.Equal(t, []string{"boom"}, rec.error)
	require.Equal(t, []string{"careful"}, rec.warn)
	require.Equal(t, []string{"detail"}, rec.debug)
	require.Equal(t, []string{"hello", "treated as info"}, rec.info)
}
