package fusefs

import (
	"context"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/brettbedarf/treefs"
	"github.com/brettbedarf/treefs/internal/util"
)

const (
	dirMode  = fuse.S_IFDIR | 0o755
	fileMode = fuse.S_IFREG | 0o644

	// renameNoReplace is the kernel's RENAME_NOREPLACE rename flag
	renameNoReplace = 0x1
)

// node is one directory or file of the mounted tree. It keeps no state of
// its own: every call re-resolves the node's current path in the tree.
type node struct {
	fs.Inode
	tree treefs.Operator
}

var (
	_ fs.NodeLookuper  = (*node)(nil)
	_ fs.NodeGetattrer = (*node)(nil)
	_ fs.NodeReaddirer = (*node)(nil)
	_ fs.NodeMkdirer   = (*node)(nil)
	_ fs.NodeCreater   = (*node)(nil)
	_ fs.NodeOpener    = (*node)(nil)
	_ fs.NodeUnlinker  = (*node)(nil)
	_ fs.NodeRmdirer   = (*node)(nil)
	_ fs.NodeRenamer   = (*node)(nil)
)

// ino maps an inumber to a FUSE inode number; the root must be 1
func ino(id treefs.Inumber) uint64 {
	return uint64(id) + 1
}

func modeOf(kind treefs.Kind) uint32 {
	if kind == treefs.Directory {
		return dirMode
	}
	return fileMode
}

func childPath(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}

// treePath is the node's path in the tree, rebuilt from the kernel's view
func (n *node) treePath() string {
	return "/" + n.Path(nil)
}

func fillAttr(out *fuse.Attr, id treefs.Inumber, kind treefs.Kind) {
	out.Ino = ino(id)
	out.Mode = modeOf(kind)
	out.Nlink = 1
	if kind == treefs.Directory {
		out.Nlink = 2
	}
}

// newChild wraps a tree node the kernel has just learned about
func (n *node) newChild(ctx context.Context, id treefs.Inumber, kind treefs.Kind, out *fuse.EntryOut) *fs.Inode {
	fillAttr(&out.Attr, id, kind)
	return n.NewInode(ctx, &node{tree: n.tree}, fs.StableAttr{Mode: modeOf(kind), Ino: ino(id)})
}

func (n *node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	id, kind, err := n.tree.Stat(childPath(n.treePath(), name))
	if err != nil {
		return nil, ToErrno(err)
	}
	return n.newChild(ctx, id, kind, out), 0
}

func (n *node) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	id, kind, err := n.tree.Stat(n.treePath())
	if err != nil {
		return ToErrno(err)
	}
	fillAttr(&out.Attr, id, kind)
	return 0
}

func (n *node) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	entries, err := n.tree.ReadDir(n.treePath())
	if err != nil {
		return nil, ToErrno(err)
	}
	list := make([]fuse.DirEntry, 0, len(entries))
	for _, e := range entries {
		list = append(list, fuse.DirEntry{Name: e.Name, Ino: ino(e.Inumber), Mode: modeOf(e.Kind)})
	}
	return fs.NewListDirStream(list), 0
}

func (n *node) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	return n.create(ctx, name, treefs.Directory, out)
}

func (n *node) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*fs.Inode, fs.FileHandle, uint32, syscall.Errno) {
	child, errno := n.create(ctx, name, treefs.File, out)
	return child, nil, fuse.FOPEN_KEEP_CACHE, errno
}

func (n *node) create(ctx context.Context, name string, kind treefs.Kind, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	logger := util.GetLogger("Fuse.Create")
	p := childPath(n.treePath(), name)

	if err := n.tree.Create(p, kind); err != nil {
		logger.Debug().Err(err).Str("path", p).Msg("Create failed")
		return nil, ToErrno(err)
	}
	id, _, err := n.tree.Stat(p)
	if err != nil {
		// raced with a delete from another frontend
		return nil, ToErrno(err)
	}
	return n.newChild(ctx, id, kind, out), 0
}

// Open hands out no file handle; file payloads are opaque to the mount
func (n *node) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	return nil, fuse.FOPEN_KEEP_CACHE, 0
}

func (n *node) Unlink(ctx context.Context, name string) syscall.Errno {
	return n.remove(name, treefs.File)
}

func (n *node) Rmdir(ctx context.Context, name string) syscall.Errno {
	return n.remove(name, treefs.Directory)
}

// remove deletes name after checking it is of the kind the syscall expects
func (n *node) remove(name string, kind treefs.Kind) syscall.Errno {
	p := childPath(n.treePath(), name)
	_, actual, err := n.tree.Stat(p)
	if err != nil {
		return ToErrno(err)
	}
	switch {
	case kind == treefs.File && actual == treefs.Directory:
		return syscall.EISDIR
	case kind == treefs.Directory && actual != treefs.Directory:
		return syscall.ENOTDIR
	}
	return ToErrno(n.tree.Delete(p))
}

// renameFlagsSupported reports whether Move can honor flags. Move never
// replaces an existing entry so RENAME_NOREPLACE is always satisfied;
// RENAME_EXCHANGE and RENAME_WHITEOUT are not.
func renameFlagsSupported(flags uint32) bool {
	return flags&^renameNoReplace == 0
}

func (n *node) Rename(ctx context.Context, name string, newParent fs.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	logger := util.GetLogger("Fuse.Rename")
	if !renameFlagsSupported(flags) {
		return syscall.ENOTSUP
	}
	from := childPath(n.treePath(), name)
	to := childPath("/"+newParent.EmbeddedInode().Path(nil), newName)

	if err := n.tree.Move(from, to); err != nil {
		logger.Debug().Err(err).Str("from", from).Str("to", to).Msg("Rename failed")
		return ToErrno(err)
	}
	return 0
}
