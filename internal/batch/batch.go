// Package batch runs a command script through the worker pool and reports
// how long the whole script took.
package batch

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/brettbedarf/treefs"
	"github.com/brettbedarf/treefs/internal/queue"
	"github.com/brettbedarf/treefs/internal/util"
	"github.com/brettbedarf/treefs/requests"
)

// Report summarizes one script run
type Report struct {
	Commands int
	Failed   int
	Elapsed  time.Duration
}

// Runner feeds parsed scripts into a pool. Progress lines are written to
// out in script order once every command has finished.
type Runner struct {
	pool *queue.Pool
	out  io.Writer
}

// NewRunner returns a Runner writing progress to out, which may be nil
func NewRunner(pool *queue.Pool, out io.Writer) *Runner {
	if out == nil {
		out = io.Discard
	}
	return &Runner{pool: pool, out: out}
}

// Run submits every line in order and waits for all of them. Elapsed covers
// submission through the last result, not parsing.
func (r *Runner) Run(ctx context.Context, lines []requests.Line) (Report, error) {
	logger := util.GetLogger("Batch")

	start := time.Now()
	pending := make([]<-chan treefs.Result, 0, len(lines))
	for _, l := range lines {
		done, err := r.pool.Submit(ctx, l.Command)
		if err != nil {
			return Report{}, fmt.Errorf("line %d: %w", l.No, err)
		}
		pending = append(pending, done)
	}

	results := make([]treefs.Result, len(pending))
	for i, done := range pending {
		select {
		case results[i] = <-done:
		case <-ctx.Done():
			return Report{}, ctx.Err()
		}
	}
	rep := Report{Commands: len(lines), Elapsed: time.Since(start)}

	for i, res := range results {
		if res.Err != nil {
			rep.Failed++
			logger.Debug().Int("line", lines[i].No).Err(res.Err).Msg("Command failed")
		}
		if _, err := fmt.Fprintln(r.out, describe(lines[i].Command, res)); err != nil {
			return rep, err
		}
	}
	logger.Info().Int("commands", rep.Commands).Int("failed", rep.Failed).Dur("elapsed", rep.Elapsed).Msg("Script completed")
	return rep, nil
}

// RunScript parses script and runs it
func (r *Runner) RunScript(ctx context.Context, script io.Reader) (Report, error) {
	lines, err := requests.ParseScript(script)
	if err != nil {
		return Report{}, err
	}
	return r.Run(ctx, lines)
}

// describe renders the progress line for one executed command
func describe(cmd treefs.Command, res treefs.Result) string {
	var msg string
	switch cmd.Op {
	case treefs.OpCreate:
		if cmd.Kind == treefs.Directory {
			msg = "Create directory: " + cmd.Path
		} else {
			msg = "Create file: " + cmd.Path
		}
	case treefs.OpLookup:
		if res.Err != nil {
			return fmt.Sprintf("Search: %s not found", cmd.Path)
		}
		return fmt.Sprintf("Search: %s found", cmd.Path)
	case treefs.OpDelete:
		msg = "Delete: " + cmd.Path
	case treefs.OpMove:
		msg = fmt.Sprintf("Move: %s %s", cmd.Path, cmd.Target)
	case treefs.OpPrint:
		msg = "Print: " + cmd.Path
	default:
		msg = string(cmd.Op)
	}
	if res.Err != nil {
		msg += " (" + res.Err.Error() + ")"
	}
	return msg
}
