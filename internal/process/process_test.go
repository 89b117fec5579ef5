package process

import (
	"testing"

	"github.com/stretchr/testify/require"

	"jsrt/internal/core"
	"jsrt/internal/eventloop"
	"jsrt/internal/ioqueue"
	"jsrt/internal/signals"
	"jsrt/internal/timerheap"
)

type fakeRuntime struct {
	evals     []string
	funcs     map[string]any
	exitCalls []int
}

func newFakeRuntime() *fakeRuntime { return &fakeRuntime{funcs: make(map[string]any)} }

func (f *fakeRuntime) Eval(js string) error {
	f.evals = append(f.evals, js)
	return nil
}
func (f *fakeRuntime) EvalString(string) (string, error) { return "", nil }
func (f *fakeRuntime) EvalBool(string) (bool, error)     { return false, nil }
func (f *fakeRuntime) EvalInt(string) (int, error)       { return 0, nil }
func (f *fakeRuntime) RegisterFunc(name string, fn any) error {
	f.funcs[name] = fn
	return nil
}
func (f *fakeRuntime) SetGlobal(string, any) error { return nil }
func (f *fakeRuntime) RunMicrotasks()              {}
func (f *fakeRuntime) Dispose()                    {}

func newTestProcess(t *testing.T) (*Process, *fakeRuntime, *core.Registry) {
	t.Helper()
	rt := newFakeRuntime()
	registry := core.NewRegistry()
	timers := timerheap.New()
	completions := ioqueue.New(8)
	loop := eventloop.New(registry, timers, completions, rt, eventloop.Dispatch{}, nil)
	sub := signals.New(completions)

	p, err := New(rt, loop, registry, sub, nil, "1.0.0-test", Versions{Runtime: "jsrt", Engine: "fake"}, nil, func(int) {})
	require.NoError(t, err)
	return p, rt, registry
}

func TestRefSignalInstallsOnlyOnFirstListener(t *testing.T) {
	p, _, registry := newTestProcess(t)

	require.NoError(t, p.refSignal("SIGUSR1", true))
	require.Equal(t, 1, registry.AliveCount())

	require.NoError(t, p.refSignal("SIGUSR1", true))
	require.Equal(t, 1, registry.AliveCount(), "second listener shares the same handle")

	require.NoError(t, p.refSignal("SIGUSR1", false))
	require.Equal(t, 1, registry.AliveCount(), "one listener remains")

	require.NoError(t, p.refSignal("SIGUSR1", false))
	require.Equal(t, 0, registry.AliveCount(), "last unsubscribe releases the handle")
}

func TestHandleCompletionDeliversSignalAndIgnoresOthers(t *testing.T) {
	p, rt, registry := newTestProcess(t)
	require.NoError(t, p.refSignal("SIGUSR1", true))

	var handleID int64
	registry.Each(func(id int64, rec core.Record) { handleID = id })

	handled := p.HandleCompletion(ioqueue.Completion{HandleID: handleID, Result: "SIGUSR1"})
	require.True(t, handled)
	require.Contains(t, rt.evals[len(rt.evals)-1], "SIGUSR1")

	unrelated := p.HandleCompletion(ioqueue.Completion{HandleID: 99999})
	require.False(t, unrelated)
}
