package filesystem

import (
	"fmt"
	"sync"

	"github.com/brettbedarf/treefs"
	"github.com/brettbedarf/treefs/config"
)

// LockMode is the access a traversal needs on a node
type LockMode uint8

const (
	ReadLock LockMode = iota
	WriteLock
)

func (m LockMode) String() string {
	if m == WriteLock {
		return "write"
	}
	return "read"
}

// syncStrategy maps lock requests onto the configured granularity.
//
// begin/end bracket one top-level operation and carry the operation's
// overall intent; lock/unlock are issued per node. Global strategies do all
// their work in begin/end so lock coupling never re-enters a single global
// lock; the per-node strategy does all of its work per node.
type syncStrategy interface {
	begin(intent LockMode)
	end(intent LockMode)
	lock(n *Inode, mode LockMode)
	unlock(n *Inode, mode LockMode)
}

func newSyncStrategy(s config.Strategy) (syncStrategy, error) {
	switch s {
	case config.StrategyNone:
		return noSync{}, nil
	case config.StrategyMutex:
		return &mutexSync{}, nil
	case config.StrategyRWLock:
		return &rwSync{}, nil
	case config.StrategyPerNode:
		return perNodeSync{}, nil
	}
	return nil, fmt.Errorf("%w: unknown strategy %q", treefs.ErrInvalidConfig, s)
}

// noSync is only valid when a single goroutine ever touches the tree
type noSync struct{}

func (noSync) begin(LockMode) {}
func (noSync) end(LockMode) {}
func (noSync) lock(*Inode, LockMode) {}
func (noSync) unlock(*Inode, LockMode) {}

// mutexSync serializes every operation regardless of intent
type mutexSync struct {
	mu sync.Mutex
}

func (s *mutexSync) begin(LockMode) { s.mu.Lock() }
func (s *mutexSync) end(LockMode) { s.mu.Unlock() }
func (*mutexSync) lock(*Inode, LockMode) {}
func (*mutexSync) unlock(*Inode, LockMode) {}

// rwSync lets read-only operations run together and serializes the rest
type rwSync struct {
	mu sync.RWMutex
}

func (s *rwSync) begin(intent LockMode) {
	if intent == WriteLock {
		s.mu.Lock()
		return
	}
	s.mu.RLock()
}

func (s *rwSync) end(intent LockMode) {
	if intent == WriteLock {
		s.mu.Unlock()
		return
	}
	s.mu.RUnlock()
}

func (*rwSync) lock(*Inode, LockMode) {}
func (*rwSync) unlock(*Inode, LockMode) {}

// perNodeSync uses the lock embedded in every inode
type perNodeSync struct{}

func (perNodeSync) begin(LockMode) {}
func (perNodeSync) end(LockMode) {}

func (perNodeSync) lock(n *Inode, mode LockMode) {
	if mode == WriteLock {
		n.mu.Lock()
		return
	}
	n.mu.RLock()
}

func (perNodeSync) unlock(n *Inode, mode LockMode) {
	if mode == WriteLock {
		n.mu.Unlock()
		return
	}
	n.mu.RUnlock()
}
