// Package treefs contains core domain types and interfaces for the treefs
// in-memory filesystem
package treefs

import "fmt"

// Inumber is the stable handle of an inode in the node table
type Inumber int

const (
	// RootID is the inumber of the root directory, allocated at init and never released
	RootID Inumber = 0
	// FreeID marks an empty directory entry slot
	FreeID Inumber = -1
)

// Kind is the immutable type of an inode
type Kind uint8

const (
	Directory Kind = iota + 1
	File
)

func (k Kind) String() string {
	switch k {
	case Directory:
		return "dir"
	case File:
		return "file"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// ParseKind accepts the command language's single-letter kinds ("d", "f")
// as well as the long names returned by [Kind.String]
func ParseKind(s string) (Kind, error) {
	switch s {
	case "d", "dir":
		return Directory, nil
	case "f", "file":
		return File, nil
	}
	return 0, fmt.Errorf("%w: unknown node kind %q", ErrInvalidOp, s)
}

// Entry is a directory entry as seen by readers
type Entry struct {
	Name    string
	Inumber Inumber
	Kind    Kind
}
