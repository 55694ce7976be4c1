package filesystem

import (
	"sync"

	"github.com/brettbedarf/treefs"
)

// DirEntry is one slot of a directory's entry array. A slot is empty when
// Inumber is [treefs.FreeID]; Name is meaningless for empty slots.
type DirEntry struct {
	Inumber treefs.Inumber
	Name    string
}

// Inode is one slot of the node table. kind is zero while the slot is free.
//
// Fields below mu are only read or written while the caller holds the
// node's lock through a [LockSet] (or a global strategy lock). kind is also
// readable under the parent's lock since it never changes while an entry
// references the slot.
type Inode struct {
	mu sync.RWMutex

	kind    treefs.Kind
	entries []DirEntry // Directory only; fixed length
	content []byte     // File only; opaque
}

// Kind returns the node kind; caller must hold a lock covering the node.
func (n *Inode) Kind() treefs.Kind {
	return n.kind
}

func (n *Inode) isDirLocked() bool {
	return n.kind == treefs.Directory
}

// lookupLocked returns the inumber stored under name or [treefs.FreeID].
// Caller must hold at least a read lock.
func (n *Inode) lookupLocked(name string) treefs.Inumber {
	for _, e := range n.entries {
		if e.Inumber != treefs.FreeID && e.Name == name {
			return e.Inumber
		}
	}
	return treefs.FreeID
}

// hasFreeSlotLocked reports whether addEntryLocked would succeed
func (n *Inode) hasFreeSlotLocked() bool {
	for _, e := range n.entries {
		if e.Inumber == treefs.FreeID {
			return true
		}
	}
	return false
}

// addEntryLocked stores (id, name) in the first empty slot.
// Caller must hold n's write lock and have checked name is not taken.
func (n *Inode) addEntryLocked(id treefs.Inumber, name string) error {
	for i := range n.entries {
		if n.entries[i].Inumber == treefs.FreeID {
			n.entries[i] = DirEntry{Inumber: id, Name: name}
			return nil
		}
	}
	return treefs.ErrDirFull
}

// removeEntryLocked empties the slot referencing id.
// Caller must hold n's write lock.
func (n *Inode) removeEntryLocked(id treefs.Inumber) bool {
	for i := range n.entries {
		if n.entries[i].Inumber == id {
			n.entries[i] = DirEntry{Inumber: treefs.FreeID}
			return true
		}
	}
	return false
}

// renameEntryLocked changes the name of the slot referencing id in place.
// Caller must hold n's write lock.
func (n *Inode) renameEntryLocked(id treefs.Inumber, name string) bool {
	for i := range n.entries {
		if n.entries[i].Inumber == id {
			n.entries[i].Name = name
			return true
		}
	}
	return false
}

// isEmptyLocked reports whether every entry slot is free
func (n *Inode) isEmptyLocked() bool {
	for _, e := range n.entries {
		if e.Inumber != treefs.FreeID {
			return false
		}
	}
	return true
}

// entriesLocked returns a copy of the non-empty entries in slot order
func (n *Inode) entriesLocked() []DirEntry {
	out := make([]DirEntry, 0, len(n.entries))
	for _, e := range n.entries {
		if e.Inumber != treefs.FreeID {
			out = append(out, e)
		}
	}
	return out
}
