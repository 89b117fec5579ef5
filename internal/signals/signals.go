// Package signals implements the §4.C signal subsystem: OS-signal
// listeners registered on first subscribe, torn down on last unsubscribe,
// with delivery coalesced onto the loop thread via the shared completion
// queue rather than run from the OS signal handler itself.
//
// Grounded on the teacher's single-coalescing-channel idiom in
// internal/eventloop.EventLoop (cryguy-worker), generalized from
// fetch-result delivery to POSIX signal delivery using os/signal.
package signals

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"jsrt/internal/ioqueue"
)

// name→syscall.Signal table for the signals §4.L names as JS listener
// targets (SIGINT/SIGTERM/SIGHUP/...).
var bySignalName = map[string]os.Signal{
	"SIGINT":  syscall.SIGINT,
	"SIGTERM": syscall.SIGTERM,
	"SIGHUP":  syscall.SIGHUP,
	"SIGUSR1": syscall.SIGUSR1,
	"SIGUSR2": syscall.SIGUSR2,
	"SIGQUIT": syscall.SIGQUIT,
}

// Subsystem tracks, per signal name, how many JS listeners are currently
// registered and the OS-level plumbing backing delivery.
type Subsystem struct {
	mu          sync.Mutex
	completions *ioqueue.Queue
	handleIDs   map[string]int64 // signal name -> handle ID, while subscribed
	refCount    map[string]int
	stopFns     map[string]func()
}

// New creates a signal subsystem posting completions to q.
func New(q *ioqueue.Queue) *Subsystem {
	return &Subsystem{
		completions: q,
		handleIDs:   make(map[string]int64),
		refCount:    make(map[string]int),
		stopFns:     make(map[string]func()),
	}
}

// Subscribe increments the listener count for signo; on the 0→1
// transition it installs a real os/signal.Notify handler whose delivery
// is coalesced onto completions (§4.L: "the first subscription to a
// signal registers a native handler"). Returns false, installing
// nothing, if signo is not a supported signal name, and true otherwise;
// deliveries are posted under handleID.
func (s *Subsystem) Subscribe(signo string, handleID int64) bool {
	sig, ok := bySignalName[signo]
	if !ok {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.refCount[signo]++
	if s.refCount[signo] > 1 {
		return true // already installed
	}

	s.handleIDs[signo] = handleID
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sig)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ch:
				s.completions.Post(ioqueue.Completion{HandleID: handleID, Result: signo})
			case <-done:
				return
			}
		}
	}()
	s.stopFns[signo] = func() {
		signal.Stop(ch)
		close(done)
	}
	return true
}

// Unsubscribe decrements the listener count for signo; on the 1→0
// transition it cancels the native handler ("the last removal cancels
// it").
func (s *Subsystem) Unsubscribe(signo string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refCount[signo] == 0 {
		return
	}
	s.refCount[signo]--
	if s.refCount[signo] > 0 {
		return
	}
	if stop, ok := s.stopFns[signo]; ok {
		stop()
		delete(s.stopFns, signo)
	}
	delete(s.handleIDs, signo)
}

// ActiveCount reports how many distinct signal names currently have at
// least one listener, for diagnostics/tests.
func (s *Subsystem) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.refCount {
		if c > 0 {
			n++
		}
	}
	return n
}

// Kill sends signo to pid, backing process.kill(pid, signal).
func Kill(pid int, signo string) error {
	sig, ok := bySignalName[signo]
	if !ok {
		return fmt.Errorf("unsupported signal: %s", signo)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Signal(sig)
}
