// Package requests implements the line-oriented command language used by
// batch scripts and the CLI client, and the JSON messages spoken on the
// server socket.
//
// A script holds one command per line:
//
//	c <path> f|d     create a file or directory
//	l <path>         lookup
//	d <path>         delete
//	m <from> <to>    move
//	p [outfile]      print the tree
//
// Blank lines and lines starting with '#' are ignored.
package requests

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/brettbedarf/treefs"
)

// ErrSyntax is returned for lines that are not a valid command
var ErrSyntax = fmt.Errorf("%w: malformed command", treefs.ErrInvalidOp)

// Line is a parsed script command together with its 1-based line number
type Line struct {
	No      int
	Command treefs.Command
}

// ParseCommand parses a single command line. ok is false for blank and
// comment lines.
func ParseCommand(line string) (cmd treefs.Command, ok bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return cmd, false, nil
	}
	if len(fields[0]) != 1 {
		return cmd, false, fmt.Errorf("%w: unknown command %q", ErrSyntax, fields[0])
	}

	args := fields[1:]
	switch fields[0][0] {
	case 'c':
		if len(args) != 2 {
			return cmd, false, fmt.Errorf("%w: usage: c <path> f|d", ErrSyntax)
		}
		kind, err := treefs.ParseKind(args[1])
		if err != nil || len(args[1]) != 1 {
			return cmd, false, fmt.Errorf("%w: node kind must be f or d, got %q", ErrSyntax, args[1])
		}
		cmd = treefs.Command{Op: treefs.OpCreate, Path: args[0], Kind: kind}
	case 'l':
		if len(args) != 1 {
			return cmd, false, fmt.Errorf("%w: usage: l <path>", ErrSyntax)
		}
		cmd = treefs.Command{Op: treefs.OpLookup, Path: args[0]}
	case 'd':
		if len(args) != 1 {
			return cmd, false, fmt.Errorf("%w: usage: d <path>", ErrSyntax)
		}
		cmd = treefs.Command{Op: treefs.OpDelete, Path: args[0]}
	case 'm':
		if len(args) != 2 {
			return cmd, false, fmt.Errorf("%w: usage: m <from> <to>", ErrSyntax)
		}
		cmd = treefs.Command{Op: treefs.OpMove, Path: args[0], Target: args[1]}
	case 'p':
		if len(args) > 1 {
			return cmd, false, fmt.Errorf("%w: usage: p [outfile]", ErrSyntax)
		}
		cmd = treefs.Command{Op: treefs.OpPrint}
		if len(args) == 1 {
			cmd.Path = args[0]
		}
	default:
		return cmd, false, fmt.Errorf("%w: unknown command %q", ErrSyntax, fields[0])
	}
	return cmd, true, nil
}

// FormatCommand renders cmd back into the command language
func FormatCommand(cmd treefs.Command) (string, error) {
	switch cmd.Op {
	case treefs.OpCreate:
		kind := "f"
		if cmd.Kind == treefs.Directory {
			kind = "d"
		}
		return fmt.Sprintf("c %s %s", cmd.Path, kind), nil
	case treefs.OpLookup:
		return "l " + cmd.Path, nil
	case treefs.OpDelete:
		return "d " + cmd.Path, nil
	case treefs.OpMove:
		return fmt.Sprintf("m %s %s", cmd.Path, cmd.Target), nil
	case treefs.OpPrint:
		return strings.TrimSpace("p " + cmd.Path), nil
	}
	return "", fmt.Errorf("%w: unknown op %q", ErrSyntax, cmd.Op)
}

// ParseScript reads every command from r. The first malformed line aborts
// parsing and its line number is part of the error.
func ParseScript(r io.Reader) ([]Line, error) {
	var lines []Line
	err := ScanScript(r, func(l Line) error {
		lines = append(lines, l)
		return nil
	})
	return lines, err
}

// ScanScript parses r line by line and hands each command to fn as soon as
// it is read. Parsing stops at the first error from either side.
func ScanScript(r io.Reader, fn func(Line) error) error {
	sc := bufio.NewScanner(r)
	for no := 1; sc.Scan(); no++ {
		cmd, ok, err := ParseCommand(sc.Text())
		if err != nil {
			return fmt.Errorf("line %d: %w", no, err)
		}
		if !ok {
			continue
		}
		if err := fn(Line{No: no, Command: cmd}); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read script: %w", err)
	}
	return nil
}
