package treefs

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrExists          = errors.New("already exists")
	ErrNotEmpty        = errors.New("directory not empty")
	ErrInvalidOp       = errors.New("invalid operation")
	ErrExhausted       = errors.New("no free inode")
	ErrSelfContainment = errors.New("cannot move a directory into itself")
	ErrInvalidPath     = errors.New("invalid path")
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrClosed          = errors.New("filesystem closed")

	// ErrDirFull is returned when a directory has no free entry slot left
	ErrDirFull = fmt.Errorf("%w: directory full", ErrExhausted)
	// ErrNotDir is returned when a directory operation reaches a file
	ErrNotDir = fmt.Errorf("%w: not a directory", ErrInvalidOp)
)

// Code is the stable wire representation of an error
type Code string

const (
	CodeOK              Code = "ok"
	CodeNotFound        Code = "not_found"
	CodeExists          Code = "exists"
	CodeNotEmpty        Code = "not_empty"
	CodeInvalidOp       Code = "invalid_op"
	CodeNotDir          Code = "not_dir"
	CodeExhausted       Code = "exhausted"
	CodeDirFull         Code = "dir_full"
	CodeSelfContainment Code = "self_containment"
	CodeInvalidPath     Code = "invalid_path"
	CodeInvalidConfig   Code = "invalid_config"
	CodeClosed          Code = "closed"
	CodeInternal        Code = "internal"
)

// order matters: wrapping sentinels must come before what they wrap
var codeTable = []struct {
	err  error
	code Code
}{
	{ErrNotFound, CodeNotFound},
	{ErrExists, CodeExists},
	{ErrNotEmpty, CodeNotEmpty},
	{ErrNotDir, CodeNotDir},
	{ErrInvalidOp, CodeInvalidOp},
	{ErrDirFull, CodeDirFull},
	{ErrExhausted, CodeExhausted},
	{ErrSelfContainment, CodeSelfContainment},
	{ErrInvalidPath, CodeInvalidPath},
	{ErrInvalidConfig, CodeInvalidConfig},
	{ErrClosed, CodeClosed},
}

// CodeOf maps err to its wire code. nil maps to [CodeOK]
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	for _, c := range codeTable {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

// ErrorOf is the inverse of [CodeOf]. msg is used for the error text when it
// carries more context than the bare sentinel.
func ErrorOf(code Code, msg string) error {
	if code == CodeOK {
		return nil
	}
	for _, c := range codeTable {
		if c.code == code {
			if msg == "" || msg == c.err.Error() {
				return c.err
			}
			return fmt.Errorf("%w: %s", c.err, msg)
		}
	}
	if msg == "" {
		msg = string(code)
	}
	return errors.New(msg)
}
