// Package eventloop drives the six ordered phases of §4.E: microtasks,
// next-tick, timers, poll (I/O), immediates, close callbacks. One tick
// completes a phase fully before the next begins; the loop terminates
// when no keep-alive handle, pending immediate, next-tick entry, or
// microtask remains.
//
// Grounded on the teacher's internal/eventloop.EventLoop (cryguy-worker),
// generalized from "timers + pending fetches" to the full phase list this
// spec requires, and rebuilt on a real min-heap (internal/timerheap)
// instead of a linear scan, and a completion queue (internal/ioqueue)
// instead of ad hoc per-fetch channels.
package eventloop

import (
	"time"

	"jsrt/internal/core"
	"jsrt/internal/ioqueue"
	"jsrt/internal/timerheap"
)

// Dispatch is how the loop invokes JS-visible callbacks. The loop itself
// never touches engine values; it hands handle IDs and plain Go data to
// these hooks, which live in the bridge package and know how to reach
// into the engine.
type Dispatch struct {
	// FireTimer invokes a timer's JS callback. Called with the handle
	// registered for a TimerRecord.
	FireTimer func(id int64, rec *core.TimerRecord)

	// FireImmediate invokes an immediate's JS callback.
	FireImmediate func(id int64, rec *core.ImmediateRecord)

	// FireIO invokes the JS completion callback tied to a handle once a
	// background goroutine posts a result via the completion queue.
	FireIO func(c ioqueue.Completion)

	// FireClose runs finalization for a handle that was closed during
	// the tick.
	FireClose func(id int64)
}

// Loop is the single-threaded cooperative scheduler of §4.E. All of its
// exported methods except Post-ish helpers used by background goroutines
// are meant to be called only from the one OS thread that also drives
// the JS engine (§5).
type Loop struct {
	registry    *core.Registry
	timers      *timerheap.Heap
	completions *ioqueue.Queue
	rt          core.JSRuntime
	dispatch    Dispatch
	logger      core.Logger

	nextTick        []func()
	immediateFIFO   []int64 // drains fully this tick
	immediateNext   []int64 // scheduled during this tick's immediate phase; runs next tick
	pendingClose    []int64

	now func() time.Time // injected for deterministic tests
}

// New creates a Loop wired to registry (handle identity/keep-alive),
// timers (the timer heap), completions (the shared I/O completion
// queue), rt (the engine), and dispatch (the JS-invocation callbacks).
func New(registry *core.Registry, timers *timerheap.Heap, completions *ioqueue.Queue, rt core.JSRuntime, dispatch Dispatch, logger core.Logger) *Loop {
	if logger == nil {
		logger = core.NopLogger{}
	}
	return &Loop{
		registry:    registry,
		timers:      timers,
		completions: completions,
		rt:          rt,
		dispatch:    dispatch,
		logger:      logger,
		now:         time.Now,
	}
}

// NextTick enqueues a callback for the next-tick phase (§4.E step 2).
// Safe to call only from the loop thread (process.nextTick is itself a
// loop-thread-only binding).
func (l *Loop) NextTick(fn func()) {
	l.nextTick = append(l.nextTick, fn)
}

// ScheduleImmediate enqueues a handle for the immediate phase. duringPhase5
// is true when called from within the current tick's own immediate
// phase, which defers the callback to the *next* tick's immediate phase
// instead of running it again in this one (§4.E: "scheduled during this
// phase execute in the next tick's immediate phase, not recursively").
func (l *Loop) ScheduleImmediate(id int64, duringPhase5 bool) {
	if duringPhase5 {
		l.immediateNext = append(l.immediateNext, id)
	} else {
		l.immediateFIFO = append(l.immediateFIFO, id)
	}
}

// ScheduleClose marks a handle for close-callback delivery at the end of
// the current tick (§4.E step 6).
func (l *Loop) ScheduleClose(id int64) {
	l.pendingClose = append(l.pendingClose, id)
}

// Alive reports whether the loop should keep running: the termination
// rule of §4.E ("no keep-alive handles, no pending immediates, no
// next-tick entries, and no microtasks" — microtasks are drained to
// empty by RunMicrotasks before this is ever checked, so they need no
// separate accounting here).
func (l *Loop) Alive() bool {
	return l.registry.AliveCount() > 0 ||
		len(l.immediateFIFO) > 0 ||
		len(l.immediateNext) > 0 ||
		len(l.nextTick) > 0
}

// Run drives ticks until Alive() is false.
func (l *Loop) Run() {
	for l.Alive() {
		l.Tick()
	}
}

// Tick executes the six phases of §4.E exactly once, in order.
func (l *Loop) Tick() {
	l.phaseMicrotasks()
	l.phaseNextTick()
	l.phaseTimers()
	l.phasePoll()
	l.phaseImmediates()
	l.phaseClose()
}

// phaseMicrotasks drains the engine's microtask queue to empty. The
// engine is expected to do this as part of RunMicrotasks regardless of
// which phase calls it; every other phase below also calls it after each
// individual callback, per §4.E's "drained after every callback
// invocation in any other phase as well".
func (l *Loop) phaseMicrotasks() {
	l.rt.RunMicrotasks()
}

// phaseNextTick drains the next-tick FIFO to empty, including entries
// enqueued by callbacks run during this same phase (§4.E step 2).
func (l *Loop) phaseNextTick() {
	for len(l.nextTick) > 0 {
		fn := l.nextTick[0]
		l.nextTick = l.nextTick[1:]
		fn()
		l.rt.RunMicrotasks()
	}
}

// phaseTimers pops every heap entry whose deadline has passed and fires
// it; periodic timers are replanted (§4.E step 3, §3 timer record).
func (l *Loop) phaseTimers() {
	now := l.now()
	for {
		e, ok := l.timers.Peek()
		if !ok || e.Deadline.After(now) {
			return
		}
		e, _ = l.timers.Pop()

		rec, _ := l.registry.Lookup(e.ID).(*core.TimerRecord)
		if rec == nil {
			continue // cancelled/unregistered between peek and pop
		}

		if e.Period > 0 {
			l.timers.Replant(e.ID, now.Add(e.Period), e.Period)
		} else {
			l.registry.Unregister(e.ID)
		}

		if l.dispatch.FireTimer != nil {
			l.dispatch.FireTimer(e.ID, rec)
		}
		l.rt.RunMicrotasks()
	}
}

// phasePoll blocks on the completion queue until either the next timer
// deadline, a completion arrives, or (with nothing registered and no
// immediates pending) returns immediately (§4.E step 4).
func (l *Loop) phasePoll() {
	deadline := l.pollDeadline()

	if l.registry.AliveCount() == 0 && len(l.immediateFIFO) == 0 && len(l.immediateNext) == 0 {
		// Nothing registered and nothing pending: don't block.
		l.completions.TryDrain(l.handleCompletion)
		return
	}

	if l.completions.WaitOne(deadline, l.handleCompletion) {
		// Pick up any further completions that arrived in the meantime
		// without blocking again.
		l.completions.TryDrain(l.handleCompletion)
	}
}

func (l *Loop) handleCompletion(c ioqueue.Completion) {
	if l.dispatch.FireIO != nil {
		l.dispatch.FireIO(c)
	}
	l.rt.RunMicrotasks()
}

// pollDeadline returns the time the poll phase should stop waiting: the
// next timer's deadline, or a short poll interval if only I/O is
// pending, or "now" if there is nothing to wait for.
func (l *Loop) pollDeadline() time.Time {
	if e, ok := l.timers.Peek(); ok {
		return e.Deadline
	}
	// No timers: still give I/O a bounded slice so close/immediate
	// phases aren't starved by a registered-but-quiet handle.
	return l.now().Add(50 * time.Millisecond)
}

// phaseImmediates drains the current tick's immediate FIFO fully. Any
// immediate scheduled from within this phase was already routed to
// immediateNext by ScheduleImmediate(duringPhase5=true) and runs in the
// next tick's immediate phase instead (§4.E step 5).
func (l *Loop) phaseImmediates() {
	fifo := l.immediateFIFO
	l.immediateFIFO = nil
	for _, id := range fifo {
		rec, _ := l.registry.Lookup(id).(*core.ImmediateRecord)
		l.registry.Unregister(id)
		if rec == nil {
			continue
		}
		if l.dispatch.FireImmediate != nil {
			l.dispatch.FireImmediate(id, rec)
		}
		l.rt.RunMicrotasks()
	}
	// Promote next-tick's queue to this tick's FIFO for the *following* Tick.
	l.immediateFIFO = l.immediateNext
	l.immediateNext = nil
}

// phaseClose invokes finalization callbacks for handles closed during the
// tick (§4.E step 6).
func (l *Loop) phaseClose() {
	pending := l.pendingClose
	l.pendingClose = nil
	for _, id := range pending {
		if l.dispatch.FireClose != nil {
			l.dispatch.FireClose(id)
		}
	}
}
