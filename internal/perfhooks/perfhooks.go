// Package perfhooks backs performance.now() with a monotonic clock
// measured from process start, per §4.M.
//
// This is one of the few components left on the standard library rather
// than a pack dependency: time.Since (and time.Now subtraction) is
// monotonic by construction on every platform Go supports, so there is no
// wall-clock-adjustment hazard a third-party high-resolution-timer
// library would need to guard against, and nothing in the retrieval pack
// ships a monotonic-clock wrapper with more to offer than that guarantee.
package perfhooks

import (
	"time"

	"jsrt/internal/core"
)

// Clock measures elapsed milliseconds since it was created, with
// sub-millisecond precision, matching the Performance.now() contract.
type Clock struct {
	start time.Time
}

// NewClock captures the current instant as time zero.
func NewClock() *Clock {
	return &Clock{start: time.Now()}
}

// NowMillis returns milliseconds elapsed since the clock was created.
func (c *Clock) NowMillis() float64 {
	return float64(time.Since(c.start)) / float64(time.Millisecond)
}

// Setup registers performance.now()/performance.timeOrigin on rt.
func Setup(rt core.JSRuntime, clock *Clock) error {
	if err := rt.RegisterFunc("__perf_now", func() float64 {
		return clock.NowMillis()
	}); err != nil {
		return err
	}
	return rt.Eval(`
(function() {
	globalThis.performance = globalThis.performance || {};
	globalThis.performance.now = function() { return __perf_now(); };
	globalThis.performance.timeOrigin = Date.now() - __perf_now();
})();
`)
}
