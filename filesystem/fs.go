package filesystem

import (
	"fmt"
	"slices"
	"sync"

	"github.com/brettbedarf/treefs"
	"github.com/brettbedarf/treefs/config"
	"github.com/brettbedarf/treefs/internal/util"
)

var _ treefs.Operator = (*FileSystem)(nil)

// FileSystem is the in-memory tree. Every exported operation is atomic with
// respect to every other one and safe for concurrent use unless the
// configured strategy is [config.StrategyNone].
type FileSystem struct {
	cfg   *config.Config
	store *Store

	gate   sync.RWMutex // read-held by every running operation
	closed bool         // guarded by gate
}

// NewFS validates cfg, builds the node table and allocates the root
// directory, which always gets [treefs.RootID].
func NewFS(cfg *config.Config) (*FileSystem, error) {
	logger := util.GetLogger("NewFS")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	store, err := newStore(cfg)
	if err != nil {
		return nil, err
	}
	root, err := store.allocate(treefs.Directory)
	if err != nil || root != treefs.RootID {
		return nil, fmt.Errorf("%w: could not allocate root directory", treefs.ErrInvalidConfig)
	}

	logger.Debug().
		Str("strategy", string(cfg.Strategy)).
		Int("inodes", cfg.InodeTableSize).
		Int("dirEntries", cfg.MaxDirEntries).
		Msg("Filesystem initialized")
	return &FileSystem{cfg: cfg, store: store}, nil
}

// Store exposes the node table for inspection
func (fs *FileSystem) Store() *Store {
	return fs.store
}

// Close waits for running operations, then releases the node table. Every
// later call fails with [treefs.ErrClosed].
func (fs *FileSystem) Close() error {
	fs.gate.Lock()
	defer fs.gate.Unlock()
	if fs.closed {
		return nil
	}
	fs.closed = true
	fs.store.mu.Lock()
	fs.store.inodes = nil
	fs.store.free = nil
	fs.store.mu.Unlock()
	return nil
}

// enter admits one operation. On success the caller must call leave.
func (fs *FileSystem) enter() error {
	fs.gate.RLock()
	if fs.closed {
		fs.gate.RUnlock()
		return treefs.ErrClosed
	}
	return nil
}

func (fs *FileSystem) leave() {
	fs.gate.RUnlock()
}

// Lookup resolves path to its inumber
func (fs *FileSystem) Lookup(path string) (treefs.Inumber, error) {
	id, _, err := fs.stat("FS.Lookup", path)
	return id, err
}

// Stat resolves path and returns its inumber and kind
func (fs *FileSystem) Stat(path string) (treefs.Inumber, treefs.Kind, error) {
	return fs.stat("FS.Stat", path)
}

func (fs *FileSystem) stat(component, path string) (treefs.Inumber, treefs.Kind, error) {
	logger := util.GetLogger(component)
	if err := fs.enter(); err != nil {
		return treefs.FreeID, 0, err
	}
	defer fs.leave()
	comps, err := fs.parsePath(path)
	if err != nil {
		return treefs.FreeID, 0, err
	}

	ls := fs.store.newLockSet(ReadLock)
	defer ls.Drain()

	id, err := fs.resolve(comps, ls, ReadLock, false)
	if err != nil {
		logger.Trace().Err(err).Str("path", path).Msg("Not found")
		return treefs.FreeID, 0, err
	}
	return id, fs.store.get(id).kind, nil
}

// ReadDir returns the entries of the directory at path in slot order
func (fs *FileSystem) ReadDir(path string) ([]treefs.Entry, error) {
	if err := fs.enter(); err != nil {
		return nil, err
	}
	defer fs.leave()
	comps, err := fs.parsePath(path)
	if err != nil {
		return nil, err
	}

	ls := fs.store.newLockSet(ReadLock)
	defer ls.Drain()

	id, err := fs.resolve(comps, ls, ReadLock, false)
	if err != nil {
		return nil, err
	}
	dir := fs.store.get(id)
	if !dir.isDirLocked() {
		return nil, fmt.Errorf("%w: %s", treefs.ErrNotDir, path)
	}

	raw := dir.entriesLocked()
	entries := make([]treefs.Entry, 0, len(raw))
	for _, e := range raw {
		// child kind is stable while we hold the parent
		entries = append(entries, treefs.Entry{Name: e.Name, Inumber: e.Inumber, Kind: fs.store.get(e.Inumber).kind})
	}
	return entries, nil
}

// Create adds a node of kind at path. The parent must be an existing
// directory and the name must be free; nothing is ever overwritten.
func (fs *FileSystem) Create(path string, kind treefs.Kind) error {
	logger := util.GetLogger("FS.Create")
	if err := fs.enter(); err != nil {
		return err
	}
	defer fs.leave()
	if kind != treefs.Directory && kind != treefs.File {
		return fmt.Errorf("%w: cannot create node of kind %s", treefs.ErrInvalidOp, kind)
	}
	parentComps, name, err := fs.splitParentChild(path)
	if err != nil {
		return err
	}

	ls := fs.store.newLockSet(WriteLock)
	defer ls.Drain()

	// the parent's entry array is what gets mutated
	parentID, err := fs.resolve(parentComps, ls, WriteLock, false)
	if err != nil {
		logger.Debug().Err(err).Str("path", path).Msg("Invalid parent dir")
		return fmt.Errorf("create %s: %w", path, err)
	}
	parent := fs.store.get(parentID)
	if !parent.isDirLocked() {
		return fmt.Errorf("create %s: parent: %w", path, treefs.ErrNotDir)
	}
	if parent.lookupLocked(name) != treefs.FreeID {
		return fmt.Errorf("create %s: %w", path, treefs.ErrExists)
	}

	childID, err := fs.store.allocate(kind)
	if err != nil {
		logger.Debug().Err(err).Str("path", path).Msg("Couldn't allocate inode")
		return fmt.Errorf("create %s: %w", path, err)
	}
	// locked before it is reachable from the parent
	ls.TryLock(childID, WriteLock, false)

	if err := parent.addEntryLocked(childID, name); err != nil {
		fs.store.release(childID)
		logger.Debug().Err(err).Str("path", path).Msg("Could not add entry")
		return fmt.Errorf("create %s: %w", path, err)
	}

	logger.Trace().Str("path", path).Int("inumber", int(childID)).Stringer("kind", kind).Msg("Created node")
	return nil
}

// Delete removes the node at path and frees its slot.
// Directories must be empty.
func (fs *FileSystem) Delete(path string) error {
	logger := util.GetLogger("FS.Delete")
	if err := fs.enter(); err != nil {
		return err
	}
	defer fs.leave()
	parentComps, name, err := fs.splitParentChild(path)
	if err != nil {
		return err
	}

	ls := fs.store.newLockSet(WriteLock)
	defer ls.Drain()

	parentID, err := fs.resolve(parentComps, ls, WriteLock, false)
	if err != nil {
		logger.Debug().Err(err).Str("path", path).Msg("Invalid parent dir")
		return fmt.Errorf("delete %s: %w", path, err)
	}
	parent := fs.store.get(parentID)
	if !parent.isDirLocked() {
		return fmt.Errorf("delete %s: parent: %w", path, treefs.ErrNotDir)
	}
	childID := parent.lookupLocked(name)
	if childID == treefs.FreeID {
		return fmt.Errorf("delete %s: %w", path, treefs.ErrNotFound)
	}

	// emptiness is only meaningful once nobody can create inside the child
	ls.TryLock(childID, WriteLock, false)
	child := fs.store.get(childID)
	if child.isDirLocked() && !child.isEmptyLocked() {
		return fmt.Errorf("delete %s: %w", path, treefs.ErrNotEmpty)
	}

	parent.removeEntryLocked(childID)
	fs.store.release(childID)

	logger.Trace().Str("path", path).Int("inumber", int(childID)).Msg("Deleted node")
	return nil
}

// Move renames from to to, possibly across directories.
//
// Both parents are resolved with write locks into one shared LockSet, the
// parent path that is smaller component by component first. That order is
// the pre-order of the tree with siblings sorted by name, so the second walk
// only takes locks ordered after everything the first walk holds.
func (fs *FileSystem) Move(from, to string) error {
	logger := util.GetLogger("FS.Move")
	if err := fs.enter(); err != nil {
		return err
	}
	defer fs.leave()
	originComps, originName, err := fs.splitParentChild(from)
	if err != nil {
		return err
	}
	destComps, destName, err := fs.splitParentChild(to)
	if err != nil {
		return err
	}

	ls := fs.store.newLockSet(WriteLock)
	defer ls.Drain()

	var (
		originID, destID   treefs.Inumber
		originErr, destErr error
	)
	if slices.Compare(originComps, destComps) < 0 {
		originID, originErr = fs.resolve(originComps, ls, WriteLock, true)
		destID, destErr = fs.resolve(destComps, ls, WriteLock, true)
	} else {
		destID, destErr = fs.resolve(destComps, ls, WriteLock, true)
		originID, originErr = fs.resolve(originComps, ls, WriteLock, true)
	}
	if originErr != nil {
		logger.Debug().Err(originErr).Str("from", from).Msg("Invalid origin parent dir")
		return fmt.Errorf("move %s: %w", from, originErr)
	}
	if destErr != nil {
		logger.Debug().Err(destErr).Str("to", to).Msg("Target dir doesn't exist")
		return fmt.Errorf("move %s to %s: %w", from, to, destErr)
	}

	originParent := fs.store.get(originID)
	if !originParent.isDirLocked() {
		return fmt.Errorf("move %s: parent: %w", from, treefs.ErrNotDir)
	}
	childID := originParent.lookupLocked(originName)
	if childID == treefs.FreeID {
		return fmt.Errorf("move %s: %w", from, treefs.ErrNotFound)
	}
	// the destination walk passed through the node being moved
	if ls.Contains(childID) {
		logger.Debug().Str("from", from).Str("to", to).Msg("Cannot move inside itself")
		return fmt.Errorf("move %s to %s: %w", from, to, treefs.ErrSelfContainment)
	}
	ls.TryLock(childID, WriteLock, true)

	destParent := fs.store.get(destID)
	if !destParent.isDirLocked() {
		return fmt.Errorf("move %s to %s: target parent: %w", from, to, treefs.ErrNotDir)
	}
	if destParent.lookupLocked(destName) != treefs.FreeID {
		return fmt.Errorf("move %s to %s: %w", from, to, treefs.ErrExists)
	}

	if originID == destID {
		originParent.renameEntryLocked(childID, destName)
	} else {
		if !destParent.hasFreeSlotLocked() {
			return fmt.Errorf("move %s to %s: %w", from, to, treefs.ErrDirFull)
		}
		originParent.removeEntryLocked(childID)
		// cannot fail, a free slot was checked above under the same lock
		_ = destParent.addEntryLocked(childID, destName)
	}

	logger.Trace().Str("from", from).Str("to", to).Int("inumber", int(childID)).Msg("Moved node")
	return nil
}
