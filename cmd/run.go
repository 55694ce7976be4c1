package main

import (
	"context"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/brettbedarf/treefs"
	"github.com/brettbedarf/treefs/filesystem"
	"github.com/brettbedarf/treefs/internal/batch"
	"github.com/brettbedarf/treefs/internal/queue"
	"github.com/brettbedarf/treefs/internal/util"
	"github.com/brettbedarf/treefs/requests"
)

var runCmd = &cobra.Command{
	Use:   "run <inputfile> <outputfile>",
	Short: "Execute a command script and write the final tree",
	Long: `Reads every command from inputfile, executes them on the configured
number of worker goroutines, reports the elapsed time and writes the
resulting tree to outputfile.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		logger := util.GetLogger("main")
		input, output := args[0], args[1]

		f, err := os.Open(input)
		if err != nil {
			logger.Fatal().Err(err).Str("input", input).Msg("Failed to open input file")
		}
		lines, err := requests.ParseScript(f)
		f.Close()
		if err != nil {
			logger.Fatal().Err(err).Str("input", input).Msg("Failed to parse input file")
		}

		fs, err := filesystem.NewFS(cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to initialize filesystem")
		}
		defer fs.Close()
		pool := queue.New(fs, cfg.Workers, cfg.QueueSize)

		rep, err := batch.NewRunner(pool, cmd.OutOrStdout()).Run(context.Background(), lines)
		pool.Close()
		if err != nil {
			logger.Fatal().Err(err).Msg("Script aborted")
		}

		color.New(color.FgGreen, color.Bold).Fprintf(cmd.OutOrStdout(),
			"treefs completed in [%0.4f] seconds.\n", rep.Elapsed.Seconds())
		if rep.Failed > 0 {
			color.New(color.FgYellow).Fprintf(cmd.OutOrStdout(), "%d of %d commands failed\n", rep.Failed, rep.Commands)
		}

		if err := treefs.WriteTreeFile(fs, output); err != nil {
			logger.Fatal().Err(err).Str("output", output).Msg("Failed to write output file")
		}
	},
}
