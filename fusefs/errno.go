package fusefs

import (
	"errors"
	"syscall"

	"github.com/brettbedarf/treefs"
)

// ToErrno maps a tree error onto the errno the kernel expects
func ToErrno(err error) syscall.Errno {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, treefs.ErrNotFound):
		return syscall.ENOENT
	case errors.Is(err, treefs.ErrExists):
		return syscall.EEXIST
	case errors.Is(err, treefs.ErrNotEmpty):
		return syscall.ENOTEMPTY
	case errors.Is(err, treefs.ErrExhausted):
		// also covers ErrDirFull
		return syscall.ENOSPC
	case errors.Is(err, treefs.ErrSelfContainment):
		return syscall.EINVAL
	case errors.Is(err, treefs.ErrInvalidPath):
		return syscall.ENAMETOOLONG
	case errors.Is(err, treefs.ErrNotDir):
		return syscall.ENOTDIR
	case errors.Is(err, treefs.ErrInvalidOp):
		return syscall.EINVAL
	default:
		return syscall.EIO
	}
}
