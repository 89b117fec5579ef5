package timerheap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPopOrdersByDeadline(t *testing.T) {
	h := New()
	base := time.Now()
	h.Insert(1, base.Add(30*time.Millisecond), 0)
	h.Insert(2, base.Add(10*time.Millisecond), 0)
	h.Insert(3, base.Add(20*time.Millisecond), 0)

	var order []int64
	for h.Len() > 0 {
		e, ok := h.Pop()
		require.True(t, ok)
		order = append(order, e.ID)
	}
	require.Equal(t, []int64{2, 3, 1}, order)
}

func TestRemoveByIDIsIdempotentAndLazy(t *testing.T) {
	h := New()
	base := time.Now()
	h.Insert(1, base.Add(10*time.Millisecond), 0)
	h.Insert(2, base.Add(20*time.Millisecond), 0)

	h.RemoveByID(1)
	require.Equal(t, 1, h.Len())

	// Removing again, or removing an ID that never existed, is a no-op.
	require.NotPanics(t, func() { h.RemoveByID(1) })
	require.NotPanics(t, func() { h.RemoveByID(999) })

	e, ok := h.Pop()
	require.True(t, ok)
	require.Equal(t, int64(2), e.ID, "cancelled entry 1 must not be returned by Pop")

	_, ok = h.Pop()
	require.False(t, ok)
}

func TestPeekDoesNotRemove(t *testing.T) {
	h := New()
	h.Insert(1, time.Now(), 0)

	e1, ok := h.Peek()
	require.True(t, ok)
	e2, ok := h.Peek()
	require.True(t, ok)
	require.Equal(t, e1.ID, e2.ID)
	require.Equal(t, 1, h.Len())
}

func TestReplantReschedulesPeriodicEntry(t *testing.T) {
	h := New()
	base := time.Now()
	h.Insert(1, base.Add(10*time.Millisecond), 10*time.Millisecond)

	e, ok := h.Pop()
	require.True(t, ok)
	require.Equal(t, 0, h.Len())

	h.Replant(e.ID, base.Add(20*time.Millisecond), e.Period)
	require.Equal(t, 1, h.Len())

	next, ok := h.Peek()
	require.True(t, ok)
	require.Equal(t, int64(1), next.ID)
}
