package filesystem

import (
	"testing"

	"github.com/brettbedarf/treefs"
	"github.com/brettbedarf/treefs/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSyncStrategy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		strategy config.Strategy
		expected syncStrategy
	}{
		{config.StrategyNone, noSync{}},
		{config.StrategyMutex, &mutexSync{}},
		{config.StrategyRWLock, &rwSync{}},
		{config.StrategyPerNode, perNodeSync{}},
	}
	for _, tt := range tests {
		t.Run(string(tt.strategy), func(t *testing.T) {
			t.Parallel()
			strat, err := newSyncStrategy(tt.strategy)
			require.NoError(t, err)
			assert.IsType(t, tt.expected, strat)
		})
	}

	_, err := newSyncStrategy("bogus")
	assert.ErrorIs(t, err, treefs.ErrInvalidConfig)
}

func TestMutexSync_SerializesReaders(t *testing.T) {
	t.Parallel()

	s := &mutexSync{}
	s.begin(ReadLock)
	assert.False(t, s.mu.TryLock(), "mutex strategy must be exclusive even for reads")
	s.end(ReadLock)
	assert.True(t, s.mu.TryLock())
	s.mu.Unlock()
}

func TestRWSync_Intent(t *testing.T) {
	t.Parallel()

	s := &rwSync{}

	s.begin(ReadLock)
	assert.True(t, s.mu.TryRLock(), "readers share the global lock")
	s.mu.RUnlock()
	assert.False(t, s.mu.TryLock())
	s.end(ReadLock)

	s.begin(WriteLock)
	assert.False(t, s.mu.TryRLock(), "writers exclude everyone")
	s.end(WriteLock)
}

func TestGlobalStrategies_SkipNodeLocks(t *testing.T) {
	t.Parallel()

	for _, strat := range []config.Strategy{config.StrategyMutex, config.StrategyRWLock, config.StrategyNone} {
		t.Run(string(strat), func(t *testing.T) {
			t.Parallel()
			cfg := createTestConfig()
			cfg.Strategy = strat
			cfg.Workers = 1
			fs := newTestFS(t, cfg)

			ls := fs.store.newLockSet(WriteLock)
			ls.TryLock(treefs.RootID, WriteLock, false)
			assert.True(t, isFree(fs.store, treefs.RootID), "node lock must stay untouched")
			assert.True(t, ls.Contains(treefs.RootID), "request is still recorded")
			ls.Drain()
		})
	}
}
