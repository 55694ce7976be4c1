package filesystem

import (
	"bufio"
	"io"
	"strings"

	"github.com/brettbedarf/treefs"
)

// SerializeTree writes the tree in pre-order, root first and each
// directory's entries in slot order. The root is written as "/" and every
// other node as two spaces per level of depth followed by its name;
// directory names get a trailing "/".
//
// The walk read-locks like Lookup: ancestors stay locked while a subtree is
// written and each node is released once its subtree is done.
func (fs *FileSystem) SerializeTree(w io.Writer) error {
	if err := fs.enter(); err != nil {
		return err
	}
	defer fs.leave()
	bw := bufio.NewWriter(w)

	ls := fs.store.newLockSet(ReadLock)
	defer ls.Drain()

	ls.TryLock(treefs.RootID, ReadLock, false)
	if _, err := bw.WriteString("/\n"); err != nil {
		return err
	}
	if err := fs.serializeDir(bw, ls, treefs.RootID, 1); err != nil {
		return err
	}
	return bw.Flush()
}

// serializeDir writes the children of the locked directory id
func (fs *FileSystem) serializeDir(w *bufio.Writer, ls *LockSet, id treefs.Inumber, depth int) error {
	indent := strings.Repeat("  ", depth)
	for _, e := range fs.store.get(id).entriesLocked() {
		ls.TryLock(e.Inumber, ReadLock, false)
		child := fs.store.get(e.Inumber)

		line := indent + e.Name
		if child.isDirLocked() {
			line += "/"
		}
		if _, err := w.WriteString(line + "\n"); err != nil {
			return err
		}
		if child.isDirLocked() {
			if err := fs.serializeDir(w, ls, e.Inumber, depth+1); err != nil {
				return err
			}
		}
		ls.Release(e.Inumber)
	}
	return nil
}
