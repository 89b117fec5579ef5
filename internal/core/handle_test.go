package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeRecord struct {
	kind      Kind
	keepAlive bool
}

func (f fakeRecord) Kind() Kind      { return f.kind }
func (f fakeRecord) KeepAlive() bool { return f.keepAlive }

func TestRegistryIDsNeverReuse(t *testing.T) {
	r := NewRegistry()
	id1 := r.Register(fakeRecord{kind: KindTimer, keepAlive: true})
	r.Unregister(id1)
	id2 := r.Register(fakeRecord{kind: KindTimer, keepAlive: true})
	require.NotEqual(t, id1, id2, "handle IDs must never be reused during a run")
}

func TestRegistryLookupAfterUnregister(t *testing.T) {
	r := NewRegistry()
	id := r.Register(fakeRecord{kind: KindFile, keepAlive: false})
	require.NotNil(t, r.Lookup(id))

	r.Unregister(id)
	require.Nil(t, r.Lookup(id))

	// Unregistering an already-removed ID is a no-op, not an error.
	require.NotPanics(t, func() { r.Unregister(id) })
}

func TestAliveCountOnlyCountsKeepAlive(t *testing.T) {
	r := NewRegistry()
	r.Register(fakeRecord{kind: KindTimer, keepAlive: true})
	r.Register(fakeRecord{kind: KindFile, keepAlive: false})
	r.Register(fakeRecord{kind: KindSignal, keepAlive: true})

	require.Equal(t, 2, r.AliveCount())
}

func TestRegistryLookupUnknownID(t *testing.T) {
	r := NewRegistry()
	require.Nil(t, r.Lookup(999))
}

func TestUnrefRemovesFromAliveCountWithoutUnregistering(t *testing.T) {
	r := NewRegistry()
	id := r.Register(fakeRecord{kind: KindTimer, keepAlive: true})
	require.Equal(t, 1, r.AliveCount())

	r.Unref(id)
	require.Equal(t, 0, r.AliveCount())
	require.NotNil(t, r.Lookup(id), "unref must not unregister the handle")
}

func TestRefRestoresAliveCountAfterUnref(t *testing.T) {
	r := NewRegistry()
	id := r.Register(fakeRecord{kind: KindTimer, keepAlive: true})
	r.Unref(id)
	require.Equal(t, 0, r.AliveCount())

	r.Ref(id)
	require.Equal(t, 1, r.AliveCount())
}

func TestUnrefUnknownIDIsNoop(t *testing.T) {
	r := NewRegistry()
	require.NotPanics(t, func() { r.Unref(999) })
	require.Equal(t, 0, r.AliveCount())
}

func TestUnrefNeverMakesAKeepAliveFalseRecordCountTowardAliveCount(t *testing.T) {
	r := NewRegistry()
	id := r.Register(fakeRecord{kind: KindFile, keepAlive: false})
	r.Ref(id)
	require.Equal(t, 0, r.AliveCount(), "Ref cannot force a non-keep-alive record to count")
}
