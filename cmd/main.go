package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/brettbedarf/treefs/config"
	"github.com/brettbedarf/treefs/internal/util"
)

var (
	configPath string
	verbose    int
	strategy   string
	workers    int
)

var rootCmd = &cobra.Command{
	Use:   "treefs",
	Short: "Concurrent in-memory hierarchical filesystem",
	Long: `treefs keeps a fixed-size tree of directories and files in memory and
serves it to many concurrent callers: from a command script, over a unix
socket or as a FUSE mount.`,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "Path to a YAML or JSON config override file")
	pf.IntVarP(&verbose, "verbose", "v", config.InfoVerbose, "Log verbosity level between 1 (error) and 5 (trace)")
	pf.StringVarP(&strategy, "strategy", "s", "", "Lock strategy: none, mutex, rwlock or pernode")
	pf.IntVarP(&workers, "threads", "t", 0, "Number of worker goroutines")

	rootCmd.AddCommand(runCmd, serveCmd, clientCmd, mountCmd)
}

// loadConfig builds the effective config: defaults, then the config file,
// then any flag the user actually set. It also initializes logging.
func loadConfig(cmd *cobra.Command) *config.Config {
	cfg := config.NewDefaultConfig()
	if configPath != "" {
		override, err := config.LoadConfigOverrideFile(configPath)
		if err != nil {
			// logger is not up yet
			fmt.Fprintf(os.Stderr, "Failed to load config %s: %v\n", configPath, err)
			os.Exit(1)
		}
		cfg.Merge(override)
	}

	flags := cmd.Flags()
	override := &config.ConfigOverride{}
	if flags.Changed("verbose") || configPath == "" {
		override.LogLvl = util.Pointer(verbose)
	}
	if flags.Changed("strategy") {
		override.Strategy = util.Pointer(config.Strategy(strategy))
	}
	if flags.Changed("threads") {
		override.Workers = util.Pointer(workers)
	}
	cfg.Merge(override)

	util.InitializeLoggerTo(os.Stderr, cfg.LogLvl)
	logger := util.GetLogger("main")
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}
	logger.Debug().
		Str("strategy", string(cfg.Strategy)).
		Int("workers", cfg.Workers).
		Int("inodes", cfg.InodeTableSize).
		Msg("Configuration loaded")
	return cfg
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
