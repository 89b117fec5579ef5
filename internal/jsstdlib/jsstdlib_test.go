package jsstdlib

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"jsrt/internal/core"
	"jsrt/internal/eventloop"
	"jsrt/internal/ioqueue"
	"jsrt/internal/timerheap"
)

type fakeRuntime struct {
	registered map[string]any
	evals      []string
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

func TestSetupTimersRegistersNativesAndInstallsJS(t *testing.T) {
	rt := newFakeRuntime()
	registry := core.NewRegistry()
	timers := timerheap.New()
	loop := eventloop.New(registry, timers, ioqueue.New(4), rt, eventloop.Dispatch{}, nil)

	require.NoError(t, SetupTimers(rt, loop, registry, timers))

	for _, name := range []string{"__timer_register", "__timer_clear", "__immediate_register", "__immediate_clear"} {
		require.Contains(t, rt.registered, name)
	}
	require.Contains(t, rt.evals[len(rt.evals)-1], "globalThis.setTimeout")
}

func TestTimerRegisterInsertsIntoHeapWithMillisecondFloor(t *testing.T) {
	rt := newFakeRuntime()
	registry := core.NewRegistry()
	timers := timerheap.New()
	loop := eventloop.New(registry, timers, ioqueue.New(4), rt, eventloop.Dispatch{}, nil)
	require.NoError(t, SetupTimers(rt, loop, registry, timers))

	register := rt.registered["__timer_register"].(func(int, bool) int64)
	before := time.Now()
	id := register(0, false)
	require.Equal(t, 1, registry.AliveCount())
	e, ok := timers.Peek()
	require.True(t, ok)
	require.Equal(t, id, e.ID)
	require.WithinDuration(t, before.Add(minDelay), e.Deadline, 50*time.Millisecond)

	clear := rt.registered["__timer_clear"].(func(int64))
	clear(id)
	require.Equal(t, 0, registry.AliveCount())
}

func TestTimerDelayClampsOutOfRangeToOneMillisecond(t *testing.T) {
	rt := newFakeRuntime()
	registry := core.NewRegistry()
	timers := timerheap.New()
	loop := eventloop.New(registry, timers, ioqueue.New(4), rt, eventloop.Dispatch{}, nil)
	require.NoError(t, SetupTimers(rt, loop, registry, timers))

	register := rt.registered["__timer_register"].(func(int, bool) int64)
	before := time.Now()
	register(maxDelayMs+1, false)
	e, ok := timers.Peek()
	require.True(t, ok)
	require.WithinDuration(t, before.Add(minDelay), e.Deadline, 50*time.Millisecond)
}

func TestTimerRefUnrefRouteThroughRegistry(t *testing.T) {
	rt := newFakeRuntime()
	registry := core.NewRegistry()
	timers := timerheap.New()
	loop := eventloop.New(registry, timers, ioqueue.New(4), rt, eventloop.Dispatch{}, nil)
	require.NoError(t, SetupTimers(rt, loop, registry, timers))

	register := rt.registered["__timer_register"].(func(int, bool) int64)
	id := register(0, false)
	require.Equal(t, 1, registry.AliveCount())

	unref := rt.registered["__timer_unref"].(func(int64))
	unref(id)
	require.Equal(t, 0, registry.AliveCount())

	ref := rt.registered["__timer_ref"].(func(int64))
	ref(id)
	require.Equal(t, 1, registry.AliveCount())
}

func TestSetupAssertAndStreamInstallJS(t *testing.T) {
	rt := newFakeRuntime()
	require.NoError(t, SetupAssert(rt))
	require.Contains(t, rt.evals[len(rt.evals)-1], "globalThis.assert")

	require.NoError(t, SetupStream(rt))
	require.Contains(t, rt.evals[len(rt.evals)-1], "globalThis.stream")
}
