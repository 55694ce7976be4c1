package filesystem

import (
	"testing"

	"github.com/brettbedarf/treefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Allocate(t *testing.T) {
	t.Parallel()

	cfg := createTestConfig()
	cfg.InodeTableSize = 3
	cfg.MaxDirEntries = 4
	s, err := newStore(cfg)
	require.NoError(t, err)

	dir, err := s.allocate(treefs.Directory)
	require.NoError(t, err)
	assert.Equal(t, treefs.Inumber(0), dir, "lowest slot is handed out first")
	assert.Len(t, s.get(dir).entries, cfg.MaxDirEntries)
	assert.True(t, s.get(dir).isEmptyLocked())

	file, err := s.allocate(treefs.File)
	require.NoError(t, err)
	assert.Equal(t, treefs.File, s.get(file).Kind())
	assert.NotNil(t, s.get(file).content)
	assert.Nil(t, s.get(file).entries)

	_, err = s.allocate(treefs.File)
	require.NoError(t, err)
	_, err = s.allocate(treefs.File)
	assert.ErrorIs(t, err, treefs.ErrExhausted)
	assert.Equal(t, 3, s.Capacity())
	assert.Zero(t, s.FreeCount())
}

func TestStore_Release(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	free := s.FreeCount()

	s.release(2)

	assert.Equal(t, free+1, s.FreeCount())
	assert.Zero(t, s.get(2).Kind())
	id, err := s.allocate(treefs.File)
	require.NoError(t, err)
	assert.Equal(t, treefs.Inumber(2), id)
}

func TestStore_GetOutOfRange(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	assert.Nil(t, s.get(-1))
	assert.Nil(t, s.get(treefs.Inumber(s.Capacity())))
}

func TestInode_Entries(t *testing.T) {
	t.Parallel()

	cfg := createTestConfig()
	cfg.MaxDirEntries = 2
	s, err := newStore(cfg)
	require.NoError(t, err)
	id, err := s.allocate(treefs.Directory)
	require.NoError(t, err)
	n := s.get(id)

	require.NoError(t, n.addEntryLocked(5, "x"))
	require.NoError(t, n.addEntryLocked(6, "y"))
	assert.False(t, n.hasFreeSlotLocked())
	assert.ErrorIs(t, n.addEntryLocked(7, "z"), treefs.ErrDirFull)

	assert.Equal(t, treefs.Inumber(6), n.lookupLocked("y"))
	assert.True(t, n.renameEntryLocked(6, "w"))
	assert.Equal(t, treefs.FreeID, n.lookupLocked("y"))
	assert.Equal(t, treefs.Inumber(6), n.lookupLocked("w"))

	assert.True(t, n.removeEntryLocked(5))
	assert.False(t, n.removeEntryLocked(5))
	assert.Equal(t, []DirEntry{{Inumber: 6, Name: "w"}}, n.entriesLocked())
	assert.True(t, n.hasFreeSlotLocked())
	assert.False(t, n.isEmptyLocked())
}
