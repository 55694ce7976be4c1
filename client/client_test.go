package client

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/brettbedarf/treefs"
	"github.com/brettbedarf/treefs/config"
	"github.com/brettbedarf/treefs/filesystem"
	"github.com/brettbedarf/treefs/internal/queue"
	"github.com/brettbedarf/treefs/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, socket string) *server.Server {
	t.Helper()
	fs, err := filesystem.NewFS(config.NewDefaultConfig())
	require.NoError(t, err)
	pool := queue.New(fs, 4, 8)
	srv := server.New(pool, socket)
	t.Cleanup(func() {
		_ = srv.Close()
		pool.Close()
		_ = fs.Close()
	})
	return srv
}

func startServer(t *testing.T, socket string) {
	t.Helper()
	require.NoError(t, newServer(t, socket).Start())
}

func dialTest(t *testing.T, socket string) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Dial(ctx, socket)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClient_Operations(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	socket := filepath.Join(dir, "treefs.sock")
	startServer(t, socket)
	c := dialTest(t, socket)

	require.NoError(t, c.Create("/a", treefs.Directory))
	require.NoError(t, c.Create("/a/f", treefs.File))
	assert.ErrorIs(t, c.Create("/a", treefs.File), treefs.ErrExists)

	id, err := c.Lookup("/a/f")
	require.NoError(t, err)
	assert.Equal(t, treefs.Inumber(2), id)
	_, err = c.Lookup("/ghost")
	assert.ErrorIs(t, err, treefs.ErrNotFound)

	assert.ErrorIs(t, c.Move("/a", "/a/inner"), treefs.ErrSelfContainment)
	require.NoError(t, c.Move("/a/f", "/g"))
	assert.ErrorIs(t, c.Delete("/ghost"), treefs.ErrNotFound)
	require.NoError(t, c.Delete("/a"))

	tree, err := c.Print("")
	require.NoError(t, err)
	assert.Equal(t, "/\n  g\n", tree)

	out := filepath.Join(dir, "tree.txt")
	tree, err = c.Print(out)
	require.NoError(t, err)
	assert.Empty(t, tree)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "/\n  g\n", string(data))
}

func TestClient_DialWaitsForServer(t *testing.T) {
	t.Parallel()

	socket := filepath.Join(t.TempDir(), "late.sock")
	srv := newServer(t, socket)
	started := make(chan error, 1)
	go func() {
		time.Sleep(60 * time.Millisecond)
		started <- srv.Start()
	}()

	c := dialTest(t, socket)
	require.NoError(t, <-started)
	require.NoError(t, c.Create("/late", treefs.File))
}

func TestClient_DialFails(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := Dial(ctx, filepath.Join(t.TempDir(), "nobody.sock"))

	assert.Error(t, err)
}

func TestClient_ServerGone(t *testing.T) {
	t.Parallel()

	socket := filepath.Join(t.TempDir(), "treefs.sock")
	fs, err := filesystem.NewFS(config.NewDefaultConfig())
	require.NoError(t, err)
	defer fs.Close()
	pool := queue.New(fs, 1, 1)
	defer pool.Close()
	srv := server.New(pool, socket)
	require.NoError(t, srv.Start())

	c := dialTest(t, socket)
	require.NoError(t, srv.Close())

	_, err = c.Do(treefs.Command{Op: treefs.OpLookup, Path: "/"})
	assert.Error(t, err, "transport failure must surface as an error")
}
