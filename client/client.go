// Package client talks to a treefs server over its unix socket
package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/brettbedarf/treefs"
	"github.com/brettbedarf/treefs/internal/util"
	"github.com/brettbedarf/treefs/requests"
)

// ErrProtocol is returned when the server answers out of order or with
// something that is not a response
var ErrProtocol = errors.New("protocol error")

// Client is one connection to the server. Calls are serialized over the
// connection, so a Client is safe for concurrent use but gives no
// parallelism; dial several for that.
type Client struct {
	mu   sync.Mutex
	conn net.Conn
	sc   *bufio.Scanner
	enc  *json.Encoder
}

// Dial connects to the server at socketPath, retrying with backoff while
// the socket is not up yet
func Dial(ctx context.Context, socketPath string) (*Client, error) {
	logger := util.GetLogger("Client")

	conn, err := util.RetryWithResult(ctx, func() (net.Conn, error) {
		var d net.Dialer
		return d.DialContext(ctx, "unix", socketPath)
	})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", socketPath, err)
	}
	logger.Debug().Str("socket", socketPath).Msg("Connected")

	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 0, 4096), 16*1024*1024)
	return &Client{conn: conn, sc: sc, enc: json.NewEncoder(conn)}, nil
}

// Do sends cmd and waits for its result. The returned error reports
// transport failures only; the operation's own outcome is in
// [treefs.Result.Err].
func (c *Client) Do(cmd treefs.Command) (treefs.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	req := requests.NewRequest(cmd)
	if err := c.enc.Encode(req); err != nil {
		return treefs.Result{}, fmt.Errorf("send %s: %w", cmd.Op, err)
	}
	if !c.sc.Scan() {
		err := c.sc.Err()
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return treefs.Result{}, fmt.Errorf("receive %s: %w", cmd.Op, err)
	}

	var resp requests.Response
	if err := json.Unmarshal(c.sc.Bytes(), &resp); err != nil {
		return treefs.Result{}, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	if resp.ID != req.ID {
		return treefs.Result{}, fmt.Errorf("%w: response %q for request %q", ErrProtocol, resp.ID, req.ID)
	}
	return resp.Result(), nil
}

func (c *Client) do(cmd treefs.Command) (treefs.Result, error) {
	res, err := c.Do(cmd)
	if err != nil {
		return res, err
	}
	return res, res.Err
}

// Create adds a node of kind at path
func (c *Client) Create(path string, kind treefs.Kind) error {
	_, err := c.do(treefs.Command{Op: treefs.OpCreate, Path: path, Kind: kind})
	return err
}

// Lookup resolves path to its inumber
func (c *Client) Lookup(path string) (treefs.Inumber, error) {
	res, err := c.do(treefs.Command{Op: treefs.OpLookup, Path: path})
	if err != nil {
		return treefs.FreeID, err
	}
	return res.Inumber, nil
}

// Delete removes the node at path
func (c *Client) Delete(path string) error {
	_, err := c.do(treefs.Command{Op: treefs.OpDelete, Path: path})
	return err
}

// Move renames from to to
func (c *Client) Move(from, to string) error {
	_, err := c.do(treefs.Command{Op: treefs.OpMove, Path: from, Target: to})
	return err
}

// Print asks the server to write its tree to outFile, a path on the
// server's side. With an empty outFile the tree is returned instead.
func (c *Client) Print(outFile string) (string, error) {
	res, err := c.do(treefs.Command{Op: treefs.OpPrint, Path: outFile})
	return res.Tree, err
}

// Close closes the connection
func (c *Client) Close() error {
	return c.conn.Close()
}
