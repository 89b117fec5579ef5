package ioqueue

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTryDrainIsNonBlockingWhenEmpty(t *testing.T) {
	q := New(4)
	n := q.TryDrain(func(Completion) { t.Fatal("should not be called") })
	require.Equal(t, 0, n)
}

func TestTryDrainHandlesAllBuffered(t *testing.T) {
	q := New(4)
	q.Post(Completion{HandleID: 1})
	q.Post(Completion{HandleID: 2})

	var seen []int64
	n := q.TryDrain(func(c Completion) { seen = append(seen, c.HandleID) })
	require.Equal(t, 2, n)
	require.ElementsMatch(t, []int64{1, 2}, seen)
}

func TestWaitOneReturnsFalseOnDeadline(t *testing.T) {
	q := New(1)
	ok := q.WaitOne(time.Now().Add(20*time.Millisecond), func(Completion) {
		t.Fatal("should not be called")
	})
	require.False(t, ok)
}

func TestWaitOneWakesOnPost(t *testing.T) {
	q := New(1)
	go func() {
		time.Sleep(5 * time.Millisecond)
		q.Post(Completion{HandleID: 7, Err: errors.New("boom")})
	}()

	var got Completion
	ok := q.WaitOne(time.Now().Add(2*time.Second), func(c Completion) { got = c })
	require.True(t, ok)
	require.Equal(t, int64(7), got.HandleID)
	require.EqualError(t, got.Err, "boom")
}
