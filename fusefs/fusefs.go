// Package fusefs mounts a treefs tree as a FUSE filesystem. Directories and
// empty files can be listed, created, removed and renamed through the mount;
// file contents are not served.
package fusefs

import (
	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/brettbedarf/treefs"
	"github.com/brettbedarf/treefs/config"
	"github.com/brettbedarf/treefs/internal/util"
)

// FS serves one tree over FUSE
type FS struct {
	tree   treefs.Operator
	cfg    *config.Config
	server *fuse.Server
}

// New creates an FS for tree; nothing is mounted until Serve
func New(tree treefs.Operator, cfg *config.Config) *FS {
	return &FS{tree: tree, cfg: cfg}
}

// Serve mounts the tree at mountPoint and returns once the mount is live
func (f *FS) Serve(mountPoint string) error {
	logger := util.GetLogger("Fuse")
	opts := f.cfg.MountOptions

	root := &node{tree: f.tree}
	srv, err := fs.Mount(mountPoint, root, &fs.Options{
		MountOptions: fuse.MountOptions{
			Name:   opts.Name,
			FsName: opts.FsName,
			Debug:  opts.Debug,
			Logger: util.NewLogLogger("FuseServer", util.DebugLevel),
		},
	})
	if err != nil {
		return err
	}
	f.server = srv

	logger.Info().Str("mountpoint", mountPoint).Msg("Mounted")
	return nil
}

// Wait blocks until the filesystem is unmounted
func (f *FS) Wait() {
	if f.server != nil {
		f.server.Wait()
	}
}

// Unmount cleanly unmounts the filesystem.
func (f *FS) Unmount() error {
	if f.server == nil {
		return nil
	}
	return f.server.Unmount()
}
