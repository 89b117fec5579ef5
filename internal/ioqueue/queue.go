// Package ioqueue implements the single completion queue that every
// blocking-OS-call goroutine (TCP accept/read/write, DNS lookup, file
// I/O) posts to, and that the event loop's poll phase drains (§4.D
// addition, §5's "background threads communicate via a single SPSC/MPSC
// completion queue drained in the poll phase").
//
// Grounded on the teacher's eventloop.PendingFetch/FetchResult pattern
// (cryguy-worker/internal/eventloop/eventloop.go), generalized from
// fetch-only to every async primitive in this core.
package ioqueue

import "time"

// Completion is one finished (or failed) background operation. HandleID
// identifies which registered resource it belongs to; Result/Err carry
// the outcome as plain Go values — no JS value ever crosses this channel,
// preserving §5's "no JS object is accessible from background threads".
type Completion struct {
	HandleID int64
	Result   any
	Err      error
}

// Queue is a buffered MPSC channel: many goroutines produce completions,
// only the event-loop thread consumes them.
type Queue struct {
	ch chan Completion
}

// New creates a completion queue with the given buffer capacity. A
// generous buffer avoids producer goroutines blocking on a slow poll
// phase; it does not affect correctness since the poll phase keeps
// draining it through TryDrain/WaitOne.
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 256
	}
	return &Queue{ch: make(chan Completion, capacity)}
}

// Post enqueues a completion. Called from background goroutines.
func (q *Queue) Post(c Completion) {
	q.ch <- c
}

// TryDrain performs one non-blocking pass, invoking fn for every
// completion currently buffered, and returns the number handled. It never
// blocks: an empty queue returns (0, immediately).
func (q *Queue) TryDrain(fn func(Completion)) int {
	n := 0
	for {
		select {
		case c := <-q.ch:
			fn(c)
			n++
		default:
			return n
		}
	}
}

// WaitOne blocks until either one completion arrives (handed to fn) or
// the deadline passes, whichever is first. Returns true if a
// completion was handled. This backs the poll phase's "block until the
// next timer deadline or a handle becomes ready" behavior (§4.E step 4).
func (q *Queue) WaitOne(deadline time.Time, fn func(Completion)) bool {
	wait := time.Until(deadline)
	if wait <= 0 {
		select {
		case c := <-q.ch:
			fn(c)
			return true
		default:
			return false
		}
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case c := <-q.ch:
		fn(c)
		return true
	case <-timer.C:
		return false
	}
}
