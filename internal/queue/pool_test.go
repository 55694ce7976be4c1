package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/brettbedarf/treefs"
	"github.com/brettbedarf/treefs/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestPool_Do(t *testing.T) {
	t.Parallel()

	op := &mocks.MockOperator{}
	op.On("Lookup", "/a").Return(treefs.Inumber(3), nil)
	op.On("Delete", "/b").Return(treefs.ErrNotFound)
	p := New(op, 2, 4)
	defer p.Close()

	res, err := p.Do(context.Background(), treefs.Command{Op: treefs.OpLookup, Path: "/a"})
	require.NoError(t, err)
	assert.NoError(t, res.Err)
	assert.Equal(t, treefs.Inumber(3), res.Inumber)

	res, err = p.Do(context.Background(), treefs.Command{Op: treefs.OpDelete, Path: "/b"})
	require.NoError(t, err)
	assert.ErrorIs(t, res.Err, treefs.ErrNotFound)

	total, failed := p.Executed()
	assert.Equal(t, int64(2), total)
	assert.Equal(t, int64(1), failed)
	op.AssertExpectations(t)
}

func TestPool_CloseDrainsQueue(t *testing.T) {
	t.Parallel()

	const n = 32
	op := &mocks.MockOperator{}
	op.On("Create", mock.Anything, treefs.File).Return(nil)
	p := New(op, 3, n)

	results := make([]<-chan treefs.Result, 0, n)
	for i := range n {
		done, err := p.Submit(context.Background(), treefs.Command{Op: treefs.OpCreate, Path: fmt.Sprintf("/f%d", i), Kind: treefs.File})
		require.NoError(t, err)
		results = append(results, done)
	}
	p.Close()

	for _, done := range results {
		select {
		case res := <-done:
			assert.NoError(t, res.Err)
		default:
			t.Fatal("queued command did not run before Close returned")
		}
	}
	op.AssertNumberOfCalls(t, "Create", n)

	_, err := p.Submit(context.Background(), treefs.Command{Op: treefs.OpLookup, Path: "/"})
	assert.ErrorIs(t, err, ErrClosed)
	p.Close()
}

func TestPool_SubmitHonorsContext(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	var started sync.WaitGroup
	started.Add(1)
	op := &mocks.MockOperator{}
	op.On("Delete", "/slow").Run(func(mock.Arguments) {
		started.Done()
		<-release
	}).Return(nil)
	p := New(op, 1, 0)
	defer p.Close()
	defer close(release)

	_, err := p.Submit(context.Background(), treefs.Command{Op: treefs.OpDelete, Path: "/slow"})
	require.NoError(t, err)
	started.Wait()

	// the only worker is busy and the queue holds nothing
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = p.Submit(ctx, treefs.Command{Op: treefs.OpDelete, Path: "/slow"})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
