package filesystem

import (
	"fmt"
	"sync"

	"github.com/brettbedarf/treefs"
	"github.com/brettbedarf/treefs/config"
)

// Store is the fixed-capacity node table. It owns every [Inode] for the
// lifetime of the filesystem and hands out slots by inumber.
//
// The store does no locking of node contents itself; it only exposes each
// node's lock, through the configured strategy, to the [LockSet] protocol.
type Store struct {
	inodes     []Inode
	maxEntries int
	sync       syncStrategy

	mu   sync.Mutex       // protects free and slot allocation state
	free []treefs.Inumber // stack of free slots, lowest inumber on top
}

func newStore(cfg *config.Config) (*Store, error) {
	strat, err := newSyncStrategy(cfg.Strategy)
	if err != nil {
		return nil, err
	}
	if cfg.InodeTableSize < 1 {
		return nil, fmt.Errorf("%w: inode table size %d", treefs.ErrInvalidConfig, cfg.InodeTableSize)
	}

	s := &Store{
		inodes:     make([]Inode, cfg.InodeTableSize),
		maxEntries: cfg.MaxDirEntries,
		sync:       strat,
		free:       make([]treefs.Inumber, 0, cfg.InodeTableSize),
	}
	for i := cfg.InodeTableSize - 1; i >= 0; i-- {
		s.free = append(s.free, treefs.Inumber(i))
	}
	return s, nil
}

// Capacity returns the number of slots in the table, including the root
func (s *Store) Capacity() int {
	return len(s.inodes)
}

// FreeCount returns the number of unallocated slots
func (s *Store) FreeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.free)
}

// allocate reserves a free slot and initializes its payload for kind.
// Returns [treefs.ErrExhausted] when the table is full.
func (s *Store) allocate(kind treefs.Kind) (treefs.Inumber, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.free) == 0 {
		return treefs.FreeID, treefs.ErrExhausted
	}
	id := s.free[len(s.free)-1]
	s.free = s.free[:len(s.free)-1]

	n := &s.inodes[id]
	n.kind = kind
	switch kind {
	case treefs.Directory:
		n.entries = make([]DirEntry, s.maxEntries)
		for i := range n.entries {
			n.entries[i].Inumber = treefs.FreeID
		}
	case treefs.File:
		n.content = []byte{}
	}
	return id, nil
}

// release marks the slot free. Caller must hold the node's write lock and
// guarantee no directory references it anymore.
func (s *Store) release(id treefs.Inumber) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := &s.inodes[id]
	n.kind = 0
	n.entries = nil
	n.content = nil
	s.free = append(s.free, id)
}

// get returns the slot for id or nil when id is out of range
func (s *Store) get(id treefs.Inumber) *Inode {
	if id < 0 || int(id) >= len(s.inodes) {
		return nil
	}
	return &s.inodes[id]
}

func (s *Store) lock(id treefs.Inumber, mode LockMode) {
	s.sync.lock(&s.inodes[id], mode)
}

func (s *Store) unlock(id treefs.Inumber, mode LockMode) {
	s.sync.unlock(&s.inodes[id], mode)
}
