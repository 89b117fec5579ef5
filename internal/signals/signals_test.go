package signals

import (
	"os"
	"os/signal"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"jsrt/internal/ioqueue"
)

func TestSubscribeUnsubscribeLifecycle(t *testing.T) {
	q := ioqueue.New(4)
	s := New(q)

	require.True(t, s.Subscribe("SIGUSR1", 1))
	require.Equal(t, 1, s.ActiveCount())

	// A second subscriber to the same signal shares the one handler.
	require.True(t, s.Subscribe("SIGUSR1", 1))
	require.Equal(t, 1, s.ActiveCount())

	s.Unsubscribe("SIGUSR1")
	require.Equal(t, 1, s.ActiveCount(), "still one listener remaining")

	s.Unsubscribe("SIGUSR1")
	require.Equal(t, 0, s.ActiveCount(), "last unsubscribe tears down the handler")
}

func TestSubscribeUnknownSignalNameFails(t *testing.T) {
	q := ioqueue.New(4)
	s := New(q)
	require.False(t, s.Subscribe("SIGBOGUS", 1))
}

func TestUnsubscribeWithoutSubscribeIsNoop(t *testing.T) {
	q := ioqueue.New(4)
	s := New(q)
	require.NotPanics(t, func() { s.Unsubscribe("SIGTERM") })
	require.Equal(t, 0, s.ActiveCount())
}

func TestKillRejectsUnsupportedSignalName(t *testing.T) {
	err := Kill(1, "SIGBOGUS")
	require.Error(t, err)
}

func TestKillSendsSignalToSelf(t *testing.T) {
	// SIGUSR1's default disposition is to terminate the process, so this
	// test installs its own os/signal.Notify handler first to neutralize
	// that before exercising Kill.
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGUSR1)
	defer signal.Stop(ch)

	err := Kill(os.Getpid(), "SIGUSR1")
	require.NoError(t, err)

	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("signal not received")
	}
}
