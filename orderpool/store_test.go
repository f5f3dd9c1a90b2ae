package orderpool

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestStoreInsertThenReplace(t *testing.T) {
	store := NewStore()
	id := uuid.New()
	t0 := time.Now()

	older := newTestBundle(t, id, t0, 0)
	res := store.InsertOrReplace(older)
	require.Equal(t, Inserted, res.Action)
	require.Nil(t, res.Prior)

	newer := newTestBundle(t, id, t0.Add(time.Millisecond), 1)
	res = store.InsertOrReplace(newer)
	require.Equal(t, Replaced, res.Action)
	require.Same(t, older, res.Prior)

	require.Equal(t, 1, store.Len())
	storedID, ok := store.UUIDByHash(newer.Hash())
	require.True(t, ok)
	require.Equal(t, id, storedID)
	_, ok = store.UUIDByHash(older.Hash())
	require.False(t, ok)
}

func TestStoreStaleReplacementIsRejected(t *testing.T) {
	store := NewStore()
	id := uuid.New()
	t0 := time.Now()

	newer := newTestBundle(t, id, t0.Add(time.Millisecond), 1)
	require.Equal(t, Inserted, store.InsertOrReplace(newer).Action)

	stale := newTestBundle(t, id, t0, 0)
	res := store.InsertOrReplace(stale)
	require.Equal(t, NotReplaced, res.Action)
	require.Same(t, newer, res.Prior)

	// the stale bundle left no trace in the hash index
	_, ok := store.UUIDByHash(stale.Hash())
	require.False(t, ok)
}

func TestStoreEqualTimestampDoesNotReplace(t *testing.T) {
	store := NewStore()
	id := uuid.New()
	t0 := time.Now()

	first := newTestBundle(t, id, t0, 0)
	require.Equal(t, Inserted, store.InsertOrReplace(first).Action)

	duplicate := newTestBundle(t, id, t0, 1)
	res := store.InsertOrReplace(duplicate)
	require.Equal(t, NotReplaced, res.Action)
	require.Same(t, first, res.Prior)
}

func TestStoreRemove(t *testing.T) {
	store := NewStore()
	id := uuid.New()
	t0 := time.Now()

	b := newTestBundle(t, id, t0, 0)
	store.InsertOrReplace(b)

	// a cancellation older than or equal to the stored bundle must not
	// delete it
	res := store.Remove(id, t0)
	require.Equal(t, Aborted, res.Action)
	require.Same(t, b, res.Bundle)
	require.Equal(t, 1, store.Len())

	res = store.Remove(id, t0.Add(time.Millisecond))
	require.Equal(t, Removed, res.Action)
	require.Same(t, b, res.Bundle)
	require.Equal(t, 0, store.Len())
	_, ok := store.UUIDByHash(b.Hash())
	require.False(t, ok)

	res = store.Remove(id, t0.Add(time.Millisecond))
	require.Equal(t, NotFound, res.Action)
	require.Nil(t, res.Bundle)
}

func TestStoreRemoveIsIdempotentUnderReplay(t *testing.T) {
	store := NewStore()
	id := uuid.New()
	t0 := time.Now()

	store.InsertOrReplace(newTestBundle(t, id, t0, 0))
	cancelAt := t0.Add(time.Millisecond)

	require.Equal(t, Removed, store.Remove(id, cancelAt).Action)
	// replaying the same cancellation cannot touch later state
	require.Equal(t, NotFound, store.Remove(id, cancelAt).Action)

	later := newTestBundle(t, id, t0.Add(2*time.Millisecond), 1)
	store.InsertOrReplace(later)
	require.Equal(t, Aborted, store.Remove(id, cancelAt).Action)
	require.Equal(t, 1, store.Len())
}

func TestStoreEvictDeletesEqualTimestamp(t *testing.T) {
	store := NewStore()
	id := uuid.New()
	t0 := time.Now()

	b := newTestBundle(t, id, t0, 0)
	store.InsertOrReplace(b)

	res := store.Evict(id, t0)
	require.Equal(t, Removed, res.Action)
	require.Same(t, b, res.Bundle)
	require.Equal(t, 0, store.Len())
}

func TestStoreEvictSparesNewerReplacement(t *testing.T) {
	store := NewStore()
	id := uuid.New()
	t0 := time.Now()

	replacement := newTestBundle(t, id, t0.Add(time.Millisecond), 1)
	store.InsertOrReplace(replacement)

	res := store.Evict(id, t0)
	require.Equal(t, Aborted, res.Action)
	require.Same(t, replacement, res.Bundle)
	require.Equal(t, 1, store.Len())
}

func TestStoreSnapshotIsDetached(t *testing.T) {
	store := NewStore()
	a := newTestBundle(t, uuid.New(), time.Now(), 0)
	b := newTestBundle(t, uuid.New(), time.Now(), 1)
	store.InsertOrReplace(a)
	store.InsertOrReplace(b)

	snap := store.Snapshot()
	require.Len(t, snap, 2)

	store.Remove(a.UUID(), time.Now().Add(time.Second))
	require.Len(t, snap, 2)
	require.Equal(t, 1, store.Len())
}
