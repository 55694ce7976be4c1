package main

import (
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/brettbedarf/treefs/filesystem"
	"github.com/brettbedarf/treefs/fusefs"
	"github.com/brettbedarf/treefs/internal/util"
)

var umount bool

var mountCmd = &cobra.Command{
	Use:   "mount <mountpoint>",
	Short: "Mount an empty tree with FUSE",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		logger := util.GetLogger("main")
		mnt := args[0]

		// Try unmount if requested
		if umount {
			// we ignore error here if not already mounted
			exec.Command("fusermount", "-u", mnt).Run() // nolint:errcheck
		}

		tree, err := filesystem.NewFS(cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to initialize filesystem")
		}
		defer tree.Close()

		mount := fusefs.New(tree, cfg)
		if err := mount.Serve(mnt); err != nil {
			logger.Fatal().Err(err).Str("mountpoint", mnt).Msg("Failed to mount filesystem")
		}

		signalChan := make(chan os.Signal, 1)
		signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
		logger.Info().Str("mountpoint", mnt).Msg("Filesystem mounted successfully")

		sig := <-signalChan
		logger.Info().Str("signal", sig.String()).Msg("Received signal, unmounting filesystem")
		if err := mount.Unmount(); err != nil {
			logger.Error().Err(err).Msg("Failed to unmount filesystem")
		} else {
			logger.Info().Msg("Filesystem unmounted successfully")
		}
	},
}

func init() {
	mountCmd.Flags().BoolVarP(&umount, "umount", "u", false,
		"Unmount the fs first if needed before mounting again. Useful for debuggers that don't exit properly.")
}
