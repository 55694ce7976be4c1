// Package queue runs treefs commands on a fixed set of worker goroutines fed
// by a bounded admission queue.
package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/brettbedarf/treefs"
	"github.com/brettbedarf/treefs/internal/util"
)

// ErrClosed is returned by Submit after Close
var ErrClosed = errors.New("queue closed")

type job struct {
	cmd  treefs.Command
	done chan treefs.Result
}

// Pool executes commands against one shared Operator. Producers block in
// Submit while the queue is full; no filesystem lock is held while waiting.
type Pool struct {
	op   treefs.Operator
	jobs chan job
	wg   sync.WaitGroup

	mu     sync.RWMutex // guards closed against sends on a closed jobs
	closed bool

	executed *xsync.Counter
	failed   *xsync.Counter
}

// New starts workers goroutines draining a queue of queueSize pending
// commands
func New(op treefs.Operator, workers, queueSize int) *Pool {
	p := &Pool{
		op:       op,
		jobs:     make(chan job, queueSize),
		executed: xsync.NewCounter(),
		failed:   xsync.NewCounter(),
	}
	p.wg.Add(workers)
	for i := range workers {
		go p.work(i)
	}
	return p
}

func (p *Pool) work(id int) {
	defer p.wg.Done()
	logger := util.GetLogger("Queue")

	for j := range p.jobs {
		res := treefs.Execute(p.op, j.cmd)
		p.executed.Inc()
		if res.Err != nil {
			p.failed.Inc()
			logger.Debug().Int("worker", id).Str("op", string(j.cmd.Op)).Str("path", j.cmd.Path).Err(res.Err).Msg("Command failed")
		}
		j.done <- res
	}
}

// Submit enqueues cmd and returns a channel that receives its result once.
// It blocks while the queue is full until ctx is done.
func (p *Pool) Submit(ctx context.Context, cmd treefs.Command) (<-chan treefs.Result, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, ErrClosed
	}

	j := job{cmd: cmd, done: make(chan treefs.Result, 1)}
	select {
	case p.jobs <- j:
		return j.done, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Do submits cmd and waits for its result
func (p *Pool) Do(ctx context.Context, cmd treefs.Command) (treefs.Result, error) {
	done, err := p.Submit(ctx, cmd)
	if err != nil {
		return treefs.Result{}, err
	}
	select {
	case res := <-done:
		return res, nil
	case <-ctx.Done():
		return treefs.Result{}, ctx.Err()
	}
}

// Executed returns how many commands ran, and how many of those failed
func (p *Pool) Executed() (total, failed int64) {
	return p.executed.Value(), p.failed.Value()
}

// Close stops admission and waits for every queued command to finish.
// Safe to call more than once.
func (p *Pool) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()
	p.wg.Wait()
}
