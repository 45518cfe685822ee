package executor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
)

// ErrPanic wraps a panic raised by a task.
var ErrPanic = errors.New("executor: task panicked")

const (
	statePending int32 = iota
	stateRunning
	stateDone
)

// Future is the eventual result of a task submitted with Go.
type Future[T any] struct {
	fn    func() (T, error)
	state atomic.Int32
	done  chan struct{}
	val   T
	err   error
}

// Go runs fn on p and returns its future. With a nil or stopped pool, or a
// full queue, fn runs before Go returns.
func Go[T any](p *Pool, fn func() (T, error)) *Future[T] {
	f := &Future[T]{fn: fn, done: make(chan struct{})}
	p.enqueue(f)
	return f
}

// Done returns a future that is already resolved.
func Done[T any](val T, err error) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), val: val, err: err}
	f.state.Store(stateDone)
	close(f.done)
	return f
}

func (f *Future[T]) run() {
	if !f.state.CompareAndSwap(statePending, stateRunning) {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			f.err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
		f.fn = nil
		f.state.Store(stateDone)
		close(f.done)
	}()
	f.val, f.err = f.fn()
}

// Wait blocks until the task finished and returns its result. If no worker
// has started the task yet, Wait runs it on the calling goroutine.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	f.run()
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Resolved reports whether the task has finished.
func (f *Future[T]) Resolved() bool {
	return f.state.Load() == stateDone
}

// WaitAll waits for every future and returns the values in order. The error
// joins every task failure.
func WaitAll[T any](ctx context.Context, futures []*Future[T]) ([]T, error) {
	vals := make([]T, len(futures))
	var errs []error
	for i, f := range futures {
		v, err := f.Wait(ctx)
		vals[i] = v
		if err != nil {
			errs = append(errs, err)
		}
	}
	return vals, errors.Join(errs...)
}
