package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/brettbedarf/treefs"
	"github.com/brettbedarf/treefs/internal/util"
	"gopkg.in/yaml.v3"
)

// Strategy selects how node locks behave for the lifetime of a filesystem
type Strategy string

const (
	// StrategyNone makes every lock a no-op; single worker only
	StrategyNone Strategy = "none"
	// StrategyMutex serializes every operation on one global mutex
	StrategyMutex Strategy = "mutex"
	// StrategyRWLock shares one global lock between read-only operations
	StrategyRWLock Strategy = "rwlock"
	// StrategyPerNode gives every inode its own reader/writer lock
	StrategyPerNode Strategy = "pernode"
)

// Config contains runtime configuration values for the filesystem and its frontends.
type Config struct {
	MountOptions
	Strategy       Strategy      // Lock granularity (Default pernode)
	InodeTableSize int           // Number of inode slots including the root (Default 50)
	MaxDirEntries  int           // Entry slots per directory (Default 20)
	MaxNameLen     int           // Longest allowed entry name in bytes (Default 100)
	MaxPathLen     int           // Longest allowed path in bytes (Default 100)
	Workers        int           // Worker goroutines executing commands (Default 4)
	QueueSize      int           // Pending commands admitted before producers block (Default 64)
	SocketPath     string        // Unix socket served by the server (Default /tmp/treefs.sock)
	LogLvl         util.LogLevel // internal log level; the override takes CLI verbosity 1-5
}

// ConfigOverride uses pointer fields to distinguish between unset and zero values
// when loading partial configuration. See [Config] for field descriptions.
type ConfigOverride struct {
	Strategy       *Strategy `yaml:"strategy,omitempty" json:"strategy,omitempty"`
	InodeTableSize *int      `yaml:"inode_table_size,omitempty" json:"inode_table_size,omitempty"`
	MaxDirEntries  *int      `yaml:"max_dir_entries,omitempty" json:"max_dir_entries,omitempty"`
	MaxNameLen     *int      `yaml:"max_name_len,omitempty" json:"max_name_len,omitempty"`
	MaxPathLen     *int      `yaml:"max_path_len,omitempty" json:"max_path_len,omitempty"`
	Workers        *int      `yaml:"workers,omitempty" json:"workers,omitempty"`
	QueueSize      *int      `yaml:"queue_size,omitempty" json:"queue_size,omitempty"`
	SocketPath     *string   `yaml:"socket_path,omitempty" json:"socket_path,omitempty"`
	LogLvl         *int      `yaml:"log_lvl,omitempty" json:"log_lvl,omitempty"` // verbosity 1 (error) to 5 (trace)
	Debug          *bool     `yaml:"debug,omitempty" json:"debug,omitempty"`
	FsName         *string   `yaml:"fs_name,omitempty" json:"fs_name,omitempty"`
	Name           *string   `yaml:"name,omitempty" json:"name,omitempty"`
}

// NewDefaultConfig creates a new Config with all default values.
func NewDefaultConfig() *Config {
	return &Config{
		MountOptions: MountOptions{
			FsName: DefaultFsName,
			Name:   DefaultName,
		},
		Strategy:       DefaultStrategy,
		InodeTableSize: DefaultInodeTableSize,
		MaxDirEntries:  DefaultMaxDirEntries,
		MaxNameLen:     DefaultMaxNameLen,
		MaxPathLen:     DefaultMaxPathLen,
		Workers:        DefaultWorkers,
		QueueSize:      DefaultQueueSize,
		SocketPath:     DefaultSocketPath,
		LogLvl:         DefaultLogLvl,
	}
}

// NewConfig returns the defaults with override applied. override may be nil.
func NewConfig(override *ConfigOverride) *Config {
	cfg := NewDefaultConfig()
	if override != nil {
		cfg.Merge(override)
	}
	return cfg
}

// Merge applies non-nil values from override onto this Config.
// This allows partial configuration updates while preserving existing values.
func (c *Config) Merge(override *ConfigOverride) {
	if override.Strategy != nil {
		c.Strategy = *override.Strategy
	}
	if override.InodeTableSize != nil {
		c.InodeTableSize = *override.InodeTableSize
	}
	if override.MaxDirEntries != nil {
		c.MaxDirEntries = *override.MaxDirEntries
	}
	if override.MaxNameLen != nil {
		c.MaxNameLen = *override.MaxNameLen
	}
	if override.MaxPathLen != nil {
		c.MaxPathLen = *override.MaxPathLen
	}
	if override.Workers != nil {
		c.Workers = *override.Workers
	}
	if override.QueueSize != nil {
		c.QueueSize = *override.QueueSize
	}
	if override.SocketPath != nil {
		c.SocketPath = *override.SocketPath
	}
	if override.LogLvl != nil {
		c.LogLvl = VerboseToLogLevel(*override.LogLvl)
	}
	if override.Debug != nil {
		c.Debug = *override.Debug
	}
	if override.FsName != nil {
		c.FsName = *override.FsName
	}
	if override.Name != nil {
		c.Name = *override.Name
	}
}

// VerboseToLogLevel maps CLI verbosity (1 = error ... 5 = trace) to the
// internal log level, clamping out of range values.
func VerboseToLogLevel(verbose int) util.LogLevel {
	verbose = max(ErrorVerbose, min(verbose, TraceVerbose))
	lvls := [5]util.LogLevel{util.ErrorLevel, util.WarnLevel, util.InfoLevel, util.DebugLevel, util.TraceLevel}
	return lvls[verbose-1]
}

// Validate reports configuration errors that must stop the filesystem from
// starting. Errors wrap [treefs.ErrInvalidConfig].
func (c *Config) Validate() error {
	switch c.Strategy {
	case StrategyMutex, StrategyRWLock, StrategyPerNode:
	case StrategyNone:
		// nothing protects the tree so only one caller may ever touch it
		if c.Workers != 1 {
			return fmt.Errorf("%w: strategy %q requires exactly 1 worker, got %d",
				treefs.ErrInvalidConfig, c.Strategy, c.Workers)
		}
	default:
		return fmt.Errorf("%w: unknown strategy %q", treefs.ErrInvalidConfig, c.Strategy)
	}
	if c.InodeTableSize < 1 {
		return fmt.Errorf("%w: inode table size must be positive, got %d", treefs.ErrInvalidConfig, c.InodeTableSize)
	}
	if c.MaxDirEntries < 1 {
		return fmt.Errorf("%w: max dir entries must be positive, got %d", treefs.ErrInvalidConfig, c.MaxDirEntries)
	}
	if c.MaxNameLen < 1 || c.MaxPathLen < 1 {
		return fmt.Errorf("%w: name and path limits must be positive", treefs.ErrInvalidConfig)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be positive, got %d", treefs.ErrInvalidConfig, c.Workers)
	}
	if c.QueueSize < 0 {
		return fmt.Errorf("%w: queue size must not be negative", treefs.ErrInvalidConfig)
	}
	return nil
}

// LoadConfigOverrideFile loads configuration overrides from a file without merging.
// Supports both YAML (.yaml, .yml) and JSON (.json) formats.
func LoadConfigOverrideFile(path string) (*ConfigOverride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var override ConfigOverride

	// Determine format by file extension
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown config file extension: %s", path)
	}

	return &override, nil
}

// NewConfigFromFile creates a new Config by merging file overrides with defaults.
// This is a convenience function that combines NewDefaultConfig, LoadConfigOverrideFile, and Merge.
func NewConfigFromFile(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	override, err := LoadConfigOverrideFile(path)
	if err != nil {
		return nil, err
	}
	cfg.Merge(override)
	return cfg, nil
}
