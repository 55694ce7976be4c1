package treefs

import (
	"fmt"
	"os"
	"strings"
)

// Op identifies a top-level operation
type Op string

const (
	OpCreate Op = "create"
	OpLookup Op = "lookup"
	OpDelete Op = "delete"
	OpMove   Op = "move"
	OpPrint  Op = "print"
)

// Command is one parsed request, independent of where it came from (script
// line, socket, FUSE)
type Command struct {
	Op     Op
	Path   string // output file for OpPrint, empty to return the tree
	Target string // destination path for OpMove
	Kind   Kind   // node kind for OpCreate
}

// Result is the outcome of executing a [Command]
type Result struct {
	Inumber Inumber // OpLookup only
	Tree    string  // OpPrint only
	Err     error
}

// Execute runs cmd against o. OpPrint writes the tree to the file named by
// cmd.Path, or returns it in [Result.Tree] when no file is given.
func Execute(o Operator, cmd Command) Result {
	switch cmd.Op {
	case OpCreate:
		return Result{Err: o.Create(cmd.Path, cmd.Kind)}
	case OpLookup:
		id, err := o.Lookup(cmd.Path)
		return Result{Inumber: id, Err: err}
	case OpDelete:
		return Result{Err: o.Delete(cmd.Path)}
	case OpMove:
		return Result{Err: o.Move(cmd.Path, cmd.Target)}
	case OpPrint:
		if cmd.Path != "" {
			return Result{Err: WriteTreeFile(o, cmd.Path)}
		}
		var b strings.Builder
		if err := o.SerializeTree(&b); err != nil {
			return Result{Err: err}
		}
		return Result{Tree: b.String()}
	default:
		return Result{Err: ErrInvalidOp}
	}
}

// WriteTreeFile serializes o's tree into the file at path, truncating it
func WriteTreeFile(o Operator, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("print %s: %w", path, err)
	}
	if err := o.SerializeTree(f); err != nil {
		f.Close()
		return fmt.Errorf("print %s: %w", path, err)
	}
	return f.Close()
}
