package requests

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/brettbedarf/treefs"
)

// Request is the JSON representation of [treefs.Command] on the socket.
// One request is written per line.
type Request struct {
	ID     string    `json:"id"`
	Op     treefs.Op `json:"op"`
	Path   string    `json:"path,omitempty"`
	Target string    `json:"target,omitempty"` // Destination for "move"
	Kind   string    `json:"kind,omitempty"`   // "f" or "d" for "create"
}

// Response answers the [Request] with the same ID
type Response struct {
	ID      string         `json:"id"`
	Code    treefs.Code    `json:"code"`
	Error   string         `json:"error,omitempty"`
	Inumber treefs.Inumber `json:"inumber"`
	Tree    string         `json:"tree,omitempty"`
}

// NewRequest wraps cmd with a fresh request id
func NewRequest(cmd treefs.Command) Request {
	req := Request{
		ID:     uuid.NewString(),
		Op:     cmd.Op,
		Path:   cmd.Path,
		Target: cmd.Target,
	}
	switch cmd.Kind {
	case treefs.Directory:
		req.Kind = "d"
	case treefs.File:
		req.Kind = "f"
	}
	return req
}

// Command validates the request and converts it to its core form
func (r Request) Command() (treefs.Command, error) {
	cmd := treefs.Command{Op: r.Op, Path: r.Path, Target: r.Target}
	switch r.Op {
	case treefs.OpCreate:
		kind, err := treefs.ParseKind(r.Kind)
		if err != nil {
			return cmd, err
		}
		cmd.Kind = kind
	case treefs.OpMove:
		if r.Target == "" {
			return cmd, fmt.Errorf("%w: move without target", ErrSyntax)
		}
	case treefs.OpLookup, treefs.OpDelete, treefs.OpPrint:
	default:
		return cmd, fmt.Errorf("%w: unknown op %q", ErrSyntax, r.Op)
	}
	if r.Op != treefs.OpPrint && r.Path == "" {
		return cmd, fmt.Errorf("%w: %s without path", ErrSyntax, r.Op)
	}
	return cmd, nil
}

// NewResponse converts res into its wire form
func NewResponse(id string, res treefs.Result) Response {
	resp := Response{
		ID:      id,
		Code:    treefs.CodeOf(res.Err),
		Inumber: res.Inumber,
		Tree:    res.Tree,
	}
	if res.Err != nil {
		resp.Error = res.Err.Error()
		resp.Inumber = treefs.FreeID
	}
	return resp
}

// Result converts the response back, mapping the code to its sentinel error
func (r Response) Result() treefs.Result {
	return treefs.Result{
		Inumber: r.Inumber,
		Tree:    r.Tree,
		Err:     treefs.ErrorOf(r.Code, r.Error),
	}
}
