// Package server exposes a treefs tree on a unix stream socket. Clients write
// one JSON [requests.Request] per line and read one [requests.Response] per
// line back, in order.
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/brettbedarf/treefs"
	"github.com/brettbedarf/treefs/internal/queue"
	"github.com/brettbedarf/treefs/internal/util"
	"github.com/brettbedarf/treefs/requests"
)

// ErrAlreadyRunning is returned by Start when another server holds the
// socket's lock file
var ErrAlreadyRunning = errors.New("another server instance is already running")

// maxLineSize bounds a single request line
const maxLineSize = 64 * 1024

var ops = []treefs.Op{treefs.OpCreate, treefs.OpLookup, treefs.OpDelete, treefs.OpMove, treefs.OpPrint}

// Server accepts connections and feeds their requests to a shared pool.
// The pool is owned by the caller and is not closed by [Server.Close].
type Server struct {
	socketPath string
	pool       *queue.Pool

	lock     *flock.Flock
	listener net.Listener
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	closing  atomic.Bool

	conns    *xsync.Map[string, net.Conn]          // live connections by connection id
	counters *xsync.Map[treefs.Op, *xsync.Counter] // served requests per op
}

// New creates a server for socketPath; nothing is opened until Start
func New(pool *queue.Pool, socketPath string) *Server {
	s := &Server{
		socketPath: socketPath,
		pool:       pool,
		lock:       flock.New(LockPath(socketPath)),
		conns:      xsync.NewMap[string, net.Conn](),
		counters:   xsync.NewMap[treefs.Op, *xsync.Counter](),
	}
	for _, op := range ops {
		s.counters.Store(op, xsync.NewCounter())
	}
	return s
}

// LockPath is the single-instance lock file kept beside the socket
func LockPath(socketPath string) string {
	return socketPath + ".lock"
}

// Start takes the instance lock, replaces any stale socket file and starts
// accepting connections in the background.
func (s *Server) Start() error {
	logger := util.GetLogger("Server")

	locked, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return ErrAlreadyRunning
	}

	// we hold the lock so any socket file left behind is stale
	if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		_ = s.lock.Unlock()
		return fmt.Errorf("failed to remove stale socket: %w", err)
	}
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		_ = s.lock.Unlock()
		return fmt.Errorf("failed to create socket: %w", err)
	}
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		logger.Warn().Err(err).Str("socket", s.socketPath).Msg("Could not restrict socket permissions")
	}

	s.listener = listener
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.wg.Add(1)
	go s.accept()

	logger.Info().Str("socket", s.socketPath).Msg("Server listening")
	return nil
}

func (s *Server) accept() {
	defer s.wg.Done()
	logger := util.GetLogger("Server")

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.closing.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			logger.Error().Err(err).Msg("Accept failed")
			return
		}
		id := uuid.NewString()
		s.conns.Store(id, conn)
		// Close may already have swept the registry
		if s.closing.Load() {
			conn.Close()
		}
		s.wg.Add(1)
		go s.handleConn(id, conn)
	}
}

func (s *Server) handleConn(id string, conn net.Conn) {
	defer s.wg.Done()
	logger := util.GetLogger("Server").With().Str("conn_id", id).Logger()
	logger.Info().Msg("Client connected")
	defer func() {
		s.conns.Delete(id)
		conn.Close()
		logger.Info().Msg("Client disconnected")
	}()

	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 0, 4096), maxLineSize)
	enc := json.NewEncoder(conn)

	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		resp := s.handle(sc.Bytes())
		if err := enc.Encode(resp); err != nil {
			logger.Debug().Err(err).Msg("Failed to write response")
			return
		}
	}
	if err := sc.Err(); err != nil && !s.closing.Load() {
		logger.Debug().Err(err).Msg("Connection read failed")
	}
}

// handle decodes, executes and answers one request line
func (s *Server) handle(line []byte) requests.Response {
	var req requests.Request
	if err := json.Unmarshal(line, &req); err != nil {
		return requests.NewResponse("", treefs.Result{Err: fmt.Errorf("%w: bad request: %v", treefs.ErrInvalidOp, err)})
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	logger := util.GetLogger("Server").With().Str("request_id", req.ID).Logger()

	cmd, err := req.Command()
	if err != nil {
		logger.Debug().Err(err).Msg("Rejected request")
		return requests.NewResponse(req.ID, treefs.Result{Err: err})
	}

	res, err := s.pool.Do(s.ctx, cmd)
	if err != nil {
		// pool closed or server shutting down
		res = treefs.Result{Err: fmt.Errorf("%w: %v", treefs.ErrClosed, err)}
	}
	if c, ok := s.counters.Load(cmd.Op); ok {
		c.Inc()
	}

	logger.Debug().Str("op", string(cmd.Op)).Str("path", cmd.Path).Err(res.Err).Msg("Served request")
	return requests.NewResponse(req.ID, res)
}

// Served returns the number of executed requests per op
func (s *Server) Served() map[treefs.Op]int64 {
	out := make(map[treefs.Op]int64, len(ops))
	s.counters.Range(func(op treefs.Op, c *xsync.Counter) bool {
		out[op] = c.Value()
		return true
	})
	return out
}

// ConnCount returns the number of open client connections
func (s *Server) ConnCount() int {
	return s.conns.Size()
}

// Close stops accepting, disconnects every client, waits for in-flight
// requests and removes the socket. Safe to call more than once.
func (s *Server) Close() error {
	if s.listener == nil || !s.closing.CompareAndSwap(false, true) {
		return nil
	}
	logger := util.GetLogger("Server")

	err := s.listener.Close()
	s.cancel()
	s.conns.Range(func(_ string, conn net.Conn) bool {
		conn.Close()
		return true
	})
	s.wg.Wait()

	if rmErr := os.Remove(s.socketPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		err = errors.Join(err, rmErr)
	}
	err = errors.Join(err, s.lock.Unlock())

	logger.Info().Str("socket", s.socketPath).Msg("Server stopped")
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
