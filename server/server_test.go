package server

import (
	"bufio"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/gomega"

	"github.com/brettbedarf/treefs"
	"github.com/brettbedarf/treefs/config"
	"github.com/brettbedarf/treefs/filesystem"
	"github.com/brettbedarf/treefs/internal/mocks"
	"github.com/brettbedarf/treefs/internal/queue"
	"github.com/brettbedarf/treefs/requests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func startTestServer(t *testing.T, op treefs.Operator) (*Server, string) {
	t.Helper()
	socket := filepath.Join(t.TempDir(), "treefs.sock")
	pool := queue.New(op, 2, 4)
	srv := New(pool, socket)
	require.NoError(t, srv.Start())
	t.Cleanup(func() {
		_ = srv.Close()
		pool.Close()
	})
	return srv, socket
}

// roundTrip writes raw request lines and decodes one response per line
func roundTrip(t *testing.T, conn net.Conn, lines ...string) []requests.Response {
	t.Helper()
	sc := bufio.NewScanner(conn)
	out := make([]requests.Response, 0, len(lines))
	for _, l := range lines {
		_, err := conn.Write([]byte(l + "\n"))
		require.NoError(t, err)
		require.True(t, sc.Scan(), "no response to %s", l)
		var resp requests.Response
		require.NoError(t, json.Unmarshal(sc.Bytes(), &resp))
		out = append(out, resp)
	}
	return out
}

func TestServer_ServesRequests(t *testing.T) {
	t.Parallel()

	cfg := config.NewDefaultConfig()
	fs, err := filesystem.NewFS(cfg)
	require.NoError(t, err)
	defer fs.Close()
	srv, socket := startTestServer(t, fs)

	conn, err := net.Dial("unix", socket)
	require.NoError(t, err)
	defer conn.Close()

	resps := roundTrip(t, conn,
		`{"id":"1","op":"create","path":"/a","kind":"d"}`,
		`{"id":"2","op":"create","path":"/a","kind":"d"}`,
		`{"id":"3","op":"lookup","path":"/a"}`,
		`{"id":"4","op":"print"}`,
		`{"id":"5","op":"chmod","path":"/a"}`,
		`not json`,
	)

	assert.Equal(t, treefs.CodeOK, resps[0].Code)
	assert.Equal(t, "1", resps[0].ID)
	assert.Equal(t, treefs.CodeExists, resps[1].Code)
	assert.Equal(t, treefs.CodeOK, resps[2].Code)
	assert.Equal(t, treefs.Inumber(1), resps[2].Inumber)
	assert.Equal(t, "/\n  a/\n", resps[3].Tree)
	assert.Equal(t, treefs.CodeInvalidOp, resps[4].Code)
	assert.Equal(t, treefs.CodeInvalidOp, resps[5].Code)
	assert.Empty(t, resps[5].ID)

	served := srv.Served()
	assert.Equal(t, int64(2), served[treefs.OpCreate])
	assert.Equal(t, int64(1), served[treefs.OpLookup])
	assert.Equal(t, int64(1), served[treefs.OpPrint])
}

func TestServer_AssignsRequestID(t *testing.T) {
	t.Parallel()

	op := &mocks.MockOperator{}
	op.On("Delete", "/x").Return(treefs.ErrNotFound)
	_, socket := startTestServer(t, op)

	conn, err := net.Dial("unix", socket)
	require.NoError(t, err)
	defer conn.Close()

	resps := roundTrip(t, conn, `{"op":"delete","path":"/x"}`)

	assert.NotEmpty(t, resps[0].ID)
	assert.Equal(t, treefs.CodeNotFound, resps[0].Code)
	op.AssertExpectations(t)
}

func TestServer_TracksConnections(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	op := &mocks.MockOperator{}
	srv, socket := startTestServer(t, op)

	a, err := net.Dial("unix", socket)
	require.NoError(t, err)
	b, err := net.Dial("unix", socket)
	require.NoError(t, err)

	g.Eventually(srv.ConnCount).WithTimeout(time.Second).WithPolling(10 * time.Millisecond).Should(Equal(2))

	require.NoError(t, a.Close())
	g.Eventually(srv.ConnCount).WithTimeout(time.Second).WithPolling(10 * time.Millisecond).Should(Equal(1))

	require.NoError(t, srv.Close())
	assert.Zero(t, srv.ConnCount(), "close must disconnect every client")
	_, err = b.Read(make([]byte, 1))
	assert.Error(t, err)
	op.AssertNotCalled(t, "Lookup", mock.Anything)
}

func TestServer_SingleInstance(t *testing.T) {
	t.Parallel()

	op := &mocks.MockOperator{}
	first, socket := startTestServer(t, op)

	pool := queue.New(op, 1, 0)
	defer pool.Close()
	second := New(pool, socket)

	assert.ErrorIs(t, second.Start(), ErrAlreadyRunning)

	// the socket of the first server must be untouched
	conn, err := net.Dial("unix", socket)
	require.NoError(t, err)
	conn.Close()

	require.NoError(t, first.Close())
	require.NoError(t, second.Start(), "lock is released on close")
	require.NoError(t, second.Close())
}

func TestServer_CloseTwice(t *testing.T) {
	t.Parallel()

	srv, _ := startTestServer(t, &mocks.MockOperator{})

	assert.NoError(t, srv.Close())
	assert.NoError(t, srv.Close())
	assert.NoError(t, New(nil, "unused").Close(), "closing a server that never started is a no-op")
}
