package filesystem

import (
	"slices"

	"github.com/brettbedarf/treefs"
)

// LockSet records the node locks held by one in-flight top-level operation.
// Every lock taken while serving the operation goes through it so that a
// single Drain() releases all of them on every return path.
//
// An inumber is recorded in at most one of read or write.
//
// NOTE: LockSet itself is **not** thread-safe meaning references
// to it should not be shared between goroutines
type LockSet struct {
	store   *Store
	intent  LockMode
	read    []treefs.Inumber
	write   []treefs.Inumber
	drained bool
}

// newLockSet opens an empty lock set. intent is the strongest mode the
// operation will ever request; global strategies acquire their lock here.
//
// Caller is responsible for draining: `defer ls.Drain()`.
func (s *Store) newLockSet(intent LockMode) *LockSet {
	s.sync.begin(intent)
	return &LockSet{store: s, intent: intent}
}

// TryLock takes id's lock in mode and records it. When reentrant is set and
// id is already recorded in either mode the call is a no-op.
func (ls *LockSet) TryLock(id treefs.Inumber, mode LockMode, reentrant bool) {
	if reentrant && ls.Contains(id) {
		return
	}
	ls.store.lock(id, mode)
	if mode == WriteLock {
		ls.write = append(ls.write, id)
		return
	}
	ls.read = append(ls.read, id)
}

// Contains reports whether id is locked by this set in any mode
func (ls *LockSet) Contains(id treefs.Inumber) bool {
	return slices.Contains(ls.read, id) || slices.Contains(ls.write, id)
}

// Release unlocks a single recorded id before the set is drained.
// Unknown ids are ignored.
func (ls *LockSet) Release(id treefs.Inumber) {
	if i := slices.Index(ls.read, id); i >= 0 {
		ls.read = slices.Delete(ls.read, i, i+1)
		ls.store.unlock(id, ReadLock)
		return
	}
	if i := slices.Index(ls.write, id); i >= 0 {
		ls.write = slices.Delete(ls.write, i, i+1)
		ls.store.unlock(id, WriteLock)
	}
}

// Held returns how many node locks are currently recorded
func (ls *LockSet) Held() int {
	return len(ls.read) + len(ls.write)
}

// Drain releases read locks first, then write locks, each in recording
// order, and ends the operation on the strategy.
// Safe to call on a nil or already drained set, so you can
// `defer ls.Drain()` unconditionally.
func (ls *LockSet) Drain() {
	if ls == nil || ls.drained {
		return
	}
	for _, id := range ls.read {
		ls.store.unlock(id, ReadLock)
	}
	for _, id := range ls.write {
		ls.store.unlock(id, WriteLock)
	}
	ls.read = nil
	ls.write = nil
	ls.drained = true
	ls.store.sync.end(ls.intent)
}
