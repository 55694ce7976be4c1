package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/brettbedarf/treefs/filesystem"
	"github.com/brettbedarf/treefs/internal/queue"
	"github.com/brettbedarf/treefs/internal/util"
	"github.com/brettbedarf/treefs/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve [socket]",
	Short: "Serve the tree on a unix socket",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		logger := util.GetLogger("main")
		socket := cfg.SocketPath
		if len(args) == 1 {
			socket = args[0]
		}

		fs, err := filesystem.NewFS(cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to initialize filesystem")
		}
		defer fs.Close()
		pool := queue.New(fs, cfg.Workers, cfg.QueueSize)
		defer pool.Close()

		srv := server.New(pool, socket)
		if err := srv.Start(); err != nil {
			logger.Fatal().Err(err).Str("socket", socket).Msg("Failed to start server")
		}

		signalChan := make(chan os.Signal, 1)
		signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
		sig := <-signalChan
		logger.Info().Str("signal", sig.String()).Msg("Received signal, shutting down")

		if err := srv.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to stop server cleanly")
		}
		total, failed := pool.Executed()
		logger.Info().Int64("executed", total).Int64("failed", failed).Msg("Server stopped")
	},
}
