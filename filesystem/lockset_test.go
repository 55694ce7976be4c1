package filesystem

import (
	"testing"

	"github.com/brettbedarf/treefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := createTestConfig()
	cfg.InodeTableSize = 8
	s, err := newStore(cfg)
	require.NoError(t, err)
	for range 4 {
		_, err := s.allocate(treefs.Directory)
		require.NoError(t, err)
	}
	return s
}

// isFree reports whether nobody holds the node's lock in any mode
func isFree(s *Store, id treefs.Inumber) bool {
	n := s.get(id)
	if !n.mu.TryLock() {
		return false
	}
	n.mu.Unlock()
	return true
}

func TestLockSet_TryLock(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ls := s.newLockSet(WriteLock)
	defer ls.Drain()

	ls.TryLock(1, ReadLock, false)
	ls.TryLock(2, WriteLock, false)

	assert.True(t, ls.Contains(1))
	assert.True(t, ls.Contains(2))
	assert.False(t, ls.Contains(3))
	assert.Equal(t, 2, ls.Held())
	assert.True(t, s.get(1).mu.TryRLock(), "read lock must admit other readers")
	s.get(1).mu.RUnlock()
	assert.False(t, s.get(2).mu.TryRLock(), "write lock must exclude readers")
}

func TestLockSet_Reentrant(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ls := s.newLockSet(WriteLock)
	defer ls.Drain()

	ls.TryLock(1, WriteLock, false)
	// would self-deadlock if the lock were taken again
	ls.TryLock(1, WriteLock, true)
	ls.TryLock(1, ReadLock, true)

	assert.Equal(t, 1, ls.Held())
}

func TestLockSet_Drain(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ls := s.newLockSet(WriteLock)
	ls.TryLock(0, ReadLock, false)
	ls.TryLock(1, ReadLock, false)
	ls.TryLock(2, WriteLock, false)

	ls.Drain()
	ls.Drain()

	for id := range treefs.Inumber(3) {
		assert.True(t, isFree(s, id), "inode %d still locked after drain", id)
	}
	assert.Zero(t, ls.Held())

	var nilSet *LockSet
	assert.NotPanics(t, func() { nilSet.Drain() })
}

func TestLockSet_Release(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ls := s.newLockSet(ReadLock)
	defer ls.Drain()
	ls.TryLock(0, ReadLock, false)
	ls.TryLock(1, ReadLock, false)

	ls.Release(1)
	ls.Release(3)

	assert.True(t, isFree(s, 1))
	assert.False(t, isFree(s, 0))
	assert.False(t, ls.Contains(1))
	assert.Equal(t, 1, ls.Held())
}
