package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/brettbedarf/treefs"
	"github.com/brettbedarf/treefs/client"
	"github.com/brettbedarf/treefs/internal/util"
	"github.com/brettbedarf/treefs/requests"
)

var socketFlag string

var clientCmd = &cobra.Command{
	Use:   "client [command...]",
	Short: "Send commands to a running server",
	Long: `Sends one command given as arguments, for example

  treefs client c /a d

or, without arguments, every command read from stdin. Print commands with a
file name make the server write its tree to that file.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		logger := util.GetLogger("main")
		socket := cfg.SocketPath
		if socketFlag != "" {
			socket = socketFlag
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		c, err := client.Dial(ctx, socket)
		cancel()
		if err != nil {
			logger.Fatal().Err(err).Str("socket", socket).Msg("Failed to connect to server")
		}
		defer c.Close()

		var failed bool
		send := func(line string) error {
			command, ok, err := requests.ParseCommand(line)
			if err != nil || !ok {
				return err
			}
			res, err := c.Do(command)
			if err != nil {
				return err
			}
			failed = report(cmd.OutOrStdout(), command, res) || failed
			return nil
		}

		if len(args) > 0 {
			err = send(strings.Join(args, " "))
		} else {
			err = sendAll(cmd.InOrStdin(), send)
		}
		if err != nil {
			logger.Fatal().Err(err).Msg("Client failed")
		}
		if failed {
			os.Exit(2)
		}
	},
}

func init() {
	clientCmd.Flags().StringVar(&socketFlag, "socket", "", "Server socket (defaults to the configured socket path)")
}

func sendAll(r io.Reader, send func(string) error) error {
	sc := bufio.NewScanner(r)
	for no := 1; sc.Scan(); no++ {
		if err := send(sc.Text()); err != nil {
			return fmt.Errorf("line %d: %w", no, err)
		}
	}
	return sc.Err()
}

// report prints one result and returns whether the command failed
func report(w io.Writer, cmd treefs.Command, res treefs.Result) bool {
	ok := color.New(color.FgGreen)
	fail := color.New(color.FgRed)

	if res.Err != nil {
		if cmd.Op == treefs.OpLookup {
			fail.Fprintf(w, "Search: %s not found\n", cmd.Path)
		} else {
			fail.Fprintf(w, "%s %s: %v\n", cmd.Op, cmd.Path, res.Err)
		}
		return true
	}
	switch cmd.Op {
	case treefs.OpLookup:
		ok.Fprintf(w, "Search: %s found (inumber %d)\n", cmd.Path, res.Inumber)
	case treefs.OpPrint:
		if res.Tree != "" {
			fmt.Fprint(w, res.Tree)
		} else {
			ok.Fprintf(w, "Tree written to %s\n", cmd.Path)
		}
	default:
		ok.Fprintf(w, "%s %s: ok\n", cmd.Op, cmd.Path)
	}
	return false
}
