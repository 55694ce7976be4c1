package treefs

import "io"

// Operator defines the filesystem operations that external consumers need.
// Each call is atomic with respect to every other call.
type Operator interface {
	// Lookup resolves path to its inumber
	Lookup(path string) (Inumber, error)

	// Stat resolves path and returns the node's kind alongside its inumber
	Stat(path string) (Inumber, Kind, error)

	// ReadDir returns a directory's entries in slot order
	ReadDir(path string) ([]Entry, error)

	// Create adds a new node of the given kind at path. It never overwrites.
	Create(path string, kind Kind) error

	// Delete removes the node at path; directories must be empty
	Delete(path string) error

	// Move renames from to to. The destination must not exist and must not
	// be inside the subtree rooted at from.
	Move(from, to string) error

	// SerializeTree writes an indented pre-order listing of the whole tree to w
	SerializeTree(w io.Writer) error
}
