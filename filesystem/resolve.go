package filesystem

import (
	"fmt"
	"strings"

	"github.com/brettbedarf/treefs"
)

func isSep(r rune) bool { return r == '/' }

// pathComponents splits p on "/" dropping empty components, so leading,
// trailing and repeated slashes are all insignificant
func pathComponents(p string) []string {
	return strings.FieldsFunc(p, isSep)
}

// canonicalPath renders components as "/a/b"; the root is "/"
func canonicalPath(comps []string) string {
	return "/" + strings.Join(comps, "/")
}

// parsePath validates p against the configured limits and splits it
func (fs *FileSystem) parsePath(p string) ([]string, error) {
	if len(p) > fs.cfg.MaxPathLen {
		return nil, fmt.Errorf("%w: path longer than %d bytes", treefs.ErrInvalidPath, fs.cfg.MaxPathLen)
	}
	comps := pathComponents(p)
	for _, c := range comps {
		if len(c) > fs.cfg.MaxNameLen {
			return nil, fmt.Errorf("%w: name %q longer than %d bytes", treefs.ErrInvalidPath, c, fs.cfg.MaxNameLen)
		}
	}
	return comps, nil
}

// splitParentChild splits p into its parent's components and the leaf name.
// The root has no leaf and is rejected.
func (fs *FileSystem) splitParentChild(p string) (parent []string, leaf string, err error) {
	comps, err := fs.parsePath(p)
	if err != nil {
		return nil, "", err
	}
	if len(comps) == 0 {
		return nil, "", fmt.Errorf("%w: %q has no leaf name", treefs.ErrInvalidPath, p)
	}
	return comps[:len(comps)-1], comps[len(comps)-1], nil
}

// resolve walks comps from the root with lock coupling, recording every lock
// in ls. Every node on the way is read-locked except the terminal one, which
// is write-locked when terminal is [WriteLock]. The lock on a node is taken
// before its entries are inspected, so no concurrent structural change can
// slip in between inspecting a directory and stepping into its child.
//
// On failure the locks taken so far stay in ls; the caller drains them.
func (fs *FileSystem) resolve(comps []string, ls *LockSet, terminal LockMode, reentrant bool) (treefs.Inumber, error) {
	cur := treefs.RootID
	for i := 0; ; i++ {
		last := i == len(comps)
		mode := ReadLock
		if last && terminal == WriteLock {
			mode = WriteLock
		}
		ls.TryLock(cur, mode, reentrant)
		if last {
			return cur, nil
		}

		node := fs.store.get(cur)
		if !node.isDirLocked() {
			return treefs.FreeID, fmt.Errorf("%w: %s is not a directory",
				treefs.ErrNotFound, canonicalPath(comps[:i]))
		}
		next := node.lookupLocked(comps[i])
		if next == treefs.FreeID {
			return treefs.FreeID, fmt.Errorf("%w: %s", treefs.ErrNotFound, canonicalPath(comps[:i+1]))
		}
		cur = next
	}
}
