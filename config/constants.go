package config

import "github.com/brettbedarf/treefs/internal/util"

// Default configuration constants. See [Config] for field descriptions.
const (
	DefaultStrategy = StrategyPerNode

	// Sizes below follow the original fixed-table layout
	DefaultInodeTableSize = 50
	DefaultMaxDirEntries  = 20
	DefaultMaxPathLen     = 100
	DefaultMaxNameLen     = DefaultMaxPathLen

	DefaultWorkers   = 4
	DefaultQueueSize = 64

	DefaultSocketPath = "/tmp/treefs.sock"

	DefaultLogLvl = util.InfoLevel

	DefaultFsName = "treefs"
	DefaultName   = "treefs"
)

// CLI verbosity levels as accepted by [ConfigOverride.LogLvl]
const (
	ErrorVerbose = iota + 1
	WarnVerbose
	InfoVerbose
	DebugVerbose
	TraceVerbose
)
