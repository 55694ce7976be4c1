package filesystem

import (
	"testing"

	"github.com/brettbedarf/treefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathComponents(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path      string
		expected  []string
		canonical string
	}{
		{"/", []string{}, "/"},
		{"", []string{}, "/"},
		{"/a", []string{"a"}, "/a"},
		{"/a/b/", []string{"a", "b"}, "/a/b"},
		{"a//b", []string{"a", "b"}, "/a/b"},
		{"///a///", []string{"a"}, "/a"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			comps := pathComponents(tt.path)
			assert.ElementsMatch(t, tt.expected, comps)
			assert.Equal(t, tt.canonical, canonicalPath(comps))
		})
	}
}

func TestCanonicalPath_AncestorSortsFirst(t *testing.T) {
	t.Parallel()

	pairs := [][2]string{
		{"/", "/a"},
		{"/a", "/a/b"},
		{"/a/b", "/a/b/c"},
		{"/ab", "/ab/c"},
	}
	for _, p := range pairs {
		assert.Less(t, canonicalPath(pathComponents(p[0])), canonicalPath(pathComponents(p[1])))
	}
}

func TestSplitParentChild(t *testing.T) {
	t.Parallel()

	fs := newTestFS(t, createTestConfig())

	parent, leaf, err := fs.splitParentChild("/a/b/c/")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, parent)
	assert.Equal(t, "c", leaf)

	parent, leaf, err = fs.splitParentChild("x")
	require.NoError(t, err)
	assert.Empty(t, parent)
	assert.Equal(t, "x", leaf)

	_, _, err = fs.splitParentChild("//")
	assert.ErrorIs(t, err, treefs.ErrInvalidPath)
}

func TestResolve_LockCoupling(t *testing.T) {
	t.Parallel()

	fs := newTestFS(t, createTestConfig())
	mustCreate(t, fs, treefs.Directory, "/a", "/a/b")
	aID, err := fs.Lookup("/a")
	require.NoError(t, err)

	ls := fs.store.newLockSet(WriteLock)
	id, err := fs.resolve([]string{"a", "b"}, ls, WriteLock, false)
	require.NoError(t, err)

	assert.Equal(t, 3, ls.Held(), "root, a and b must all be held")
	assert.True(t, ls.Contains(treefs.RootID))
	assert.True(t, fs.store.get(aID).mu.TryRLock(), "ancestors are only read-locked")
	fs.store.get(aID).mu.RUnlock()
	assert.False(t, fs.store.get(id).mu.TryRLock(), "terminal must be write-locked")

	ls.Drain()
	assert.True(t, isFree(fs.store, id))
}

func TestResolve_FailureKeepsLocks(t *testing.T) {
	t.Parallel()

	fs := newTestFS(t, createTestConfig())
	mustCreate(t, fs, treefs.Directory, "/a")

	ls := fs.store.newLockSet(ReadLock)
	_, err := fs.resolve([]string{"a", "missing", "c"}, ls, ReadLock, false)

	require.ErrorIs(t, err, treefs.ErrNotFound)
	assert.Equal(t, 2, ls.Held(), "locks taken before the failure stay recorded")
	ls.Drain()
	assert.True(t, isFree(fs.store, treefs.RootID))
}
