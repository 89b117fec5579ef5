package eventloop

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"jsrt/internal/core"
	"jsrt/internal/ioqueue"
	"jsrt/internal/timerheap"
)

// fakeRuntime counts RunMicrotasks calls; no JS engine is needed to test
// phase ordering.
type fakeRuntime struct{ microtaskRuns int }

func (f *fakeRuntime) Eval(string) error                  { return nil }
func (f *fakeRuntime) EvalString(string) (string, error)  { return "", nil }
func (f *fakeRuntime) EvalBool(string) (bool, error)       { return false, nil }
func (f *fakeRuntime) EvalInt(string) (int, error)         { return 0, nil }
func (f *fakeRuntime) RegisterFunc(string, any) error      { return nil }
func (f *fakeRuntime) SetGlobal(string, any) error         { return nil }
func (f *fakeRuntime) RunMicrotasks()                      { f.microtaskRuns++ }
func (f *fakeRuntime) Dispose()                            {}

func newTestLoop() (*Loop, *fakeRuntime, *core.Registry, *timerheap.Heap, *ioqueue.Queue, *[]string) {
	registry := core.NewRegistry()
	timers := timerheap.New()
	completions := ioqueue.New(8)
	rt := &fakeRuntime{}
	var events []string

	dispatch := Dispatch{
		FireTimer: func(id int64, rec *core.TimerRecord) {
			events = append(events, "timer:"+rec.Callback)
		},
		FireImmediate: func(id int64, rec *core.ImmediateRecord) {
			events = append(events, "immediate:"+rec.Callback)
		},
		FireIO: func(c ioqueue.Completion) {
			events = append(events, "io")
		},
		FireClose: func(id int64) {
			events = append(events, "close")
		},
	}
	l := New(registry, timers, completions, rt, dispatch, nil)
	return l, rt, registry, timers, completions, &events
}

func TestS1TimerImmediateNextTickOrdering(t *testing.T) {
	// S1: setTimeout(A, 50), setImmediate(B), nextTick(D) scheduled at
	// t=0. nextTick must run before the immediate (same tick); the timer
	// must not run until a later tick.
	l, _, registry, timers, _, events := newTestLoop()

	immID := registry.Register(&core.ImmediateRecord{Callback: "B"})
	l.ScheduleImmediate(immID, false)

	l.NextTick(func() { *events = append(*events, "nextTick:D") })

	timerID := registry.Register(core.NewTimerRecord(time.Now().Add(50*time.Millisecond), 0, "A", nil))
	timers.Insert(timerID, time.Now().Add(50*time.Millisecond), 0)

	l.Tick()

	require.Equal(t, []string{"nextTick:D", "immediate:B"}, *events, "timer A must not fire in this tick")
}

func TestImmediateScheduledDuringPhase5RunsNextTick(t *testing.T) {
	l, _, registry, _, _, events := newTestLoop()

	firstID := registry.Register(&core.ImmediateRecord{Callback: "first"})
	l.ScheduleImmediate(firstID, false)

	l.dispatch.FireImmediate = func(id int64, rec *core.ImmediateRecord) {
		*events = append(*events, "immediate:"+rec.Callback)
		if rec.Callback == "first" {
			secondID := registry.Register(&core.ImmediateRecord{Callback: "second"})
			l.ScheduleImmediate(secondID, true)
		}
	}

	l.Tick()
	require.Equal(t, []string{"immediate:first"}, *events, "second must not run in the same tick")

	l.Tick()
	require.Equal(t, []string{"immediate:first", "immediate:second"}, *events)
}

func TestTimerOrderingAcrossDeadlines(t *testing.T) {
	l, _, registry, timers, _, events := newTestLoop()

	base := time.Now().Add(-50 * time.Millisecond) // already due
	idLate := registry.Register(core.NewTimerRecord(base.Add(20*time.Millisecond), 0, "late", nil))
	idEarly := registry.Register(core.NewTimerRecord(base.Add(5*time.Millisecond), 0, "early", nil))
	timers.Insert(idLate, base.Add(20*time.Millisecond), 0)
	timers.Insert(idEarly, base.Add(5*time.Millisecond), 0)

	l.phaseTimers()
	require.Equal(t, []string{"timer:early", "timer:late"}, *events)
}

func TestS2IntervalCancellationStopsFiring(t *testing.T) {
	// S2: setInterval(f, 10); setTimeout(() => clearInterval(id), 35); f
	// runs exactly 3 times.
	l, _, registry, timers, _, events := newTestLoop()

	var fireCount int
	l.dispatch.FireTimer = func(id int64, rec *core.TimerRecord) {
		if rec.Callback == "f" {
			fireCount++
		}
	}

	base := time.Now()
	intervalID := registry.Register(core.NewTimerRecord(base, 10*time.Millisecond, "f", nil))
	timers.Insert(intervalID, base, 10*time.Millisecond)

	// Simulate three fires by advancing a fake clock and ticking.
	cur := base
	l.now = func() time.Time { return cur }
	for i := 0; i < 3; i++ {
		cur = cur.Add(10 * time.Millisecond)
		l.phaseTimers()
	}
	timers.RemoveByID(intervalID)
	registry.Unregister(intervalID)

	cur = cur.Add(100 * time.Millisecond)
	l.phaseTimers()

	require.Equal(t, 3, fireCount)
	_ = events
}

func TestAliveFalseWhenNothingPending(t *testing.T) {
	l, _, _, _, _, _ := newTestLoop()
	require.False(t, l.Alive())
}

func TestAliveTrueWithKeepAliveHandle(t *testing.T) {
	l, _, registry, timers, _, _ := newTestLoop()
	id := registry.Register(core.NewTimerRecord(time.Now().Add(time.Hour), 0, "x", nil))
	timers.Insert(id, time.Now().Add(time.Hour), 0)
	require.True(t, l.Alive())
}

func TestPhaseCloseFiresForScheduledHandles(t *testing.T) {
	l, _, _, _, _, events := newTestLoop()
	l.ScheduleClose(42)
	l.phaseClose()
	require.Equal(t, []string{"close"}, *events)
}
