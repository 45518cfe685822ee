package executor

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
)

// ErrStopped is returned when submitting to a stopped pool with Submit.
var ErrStopped = errors.New("executor: pool stopped")

// Pool manages a fixed set of goroutines.
//
// A nil *Pool is valid and runs every task on the calling goroutine.
type Pool struct {
	numWorkers int
	workCh     chan runner
	stopCh     chan struct{}
	wg         sync.WaitGroup
	closed     atomic.Bool
	submitMu   sync.RWMutex
}

type runner interface {
	run()
}

// New starts a pool with numWorkers goroutines.
// numWorkers <= 0 selects runtime.GOMAXPROCS(0).
func New(numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	p := &Pool{
		numWorkers: numWorkers,
		workCh:     make(chan runner, numWorkers*2),
		stopCh:     make(chan struct{}),
	}

	p.wg.Add(numWorkers)
	for range numWorkers {
		go p.worker()
	}

	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			// Drain queued work before exiting.
			for r := range p.workCh {
				r.run()
			}
			return
		case r, ok := <-p.workCh:
			if !ok {
				return
			}
			r.run()
		}
	}
}

// Workers returns the number of worker goroutines, or 1 for a nil or
// stopped pool.
func (p *Pool) Workers() int {
	if !p.Running() {
		return 1
	}
	return p.numWorkers
}

// Running reports whether the pool accepts work.
func (p *Pool) Running() bool {
	return p != nil && !p.closed.Load()
}

// enqueue hands r to a worker. When the pool is stopped or its queue is
// full, r runs on the calling goroutine.
func (p *Pool) enqueue(r runner) {
	if p == nil {
		r.run()
		return
	}

	p.submitMu.RLock()
	if p.closed.Load() {
		p.submitMu.RUnlock()
		r.run()
		return
	}
	select {
	case p.workCh <- r:
		p.submitMu.RUnlock()
	default:
		p.submitMu.RUnlock()
		r.run()
	}
}

// Submit runs task on the pool without tracking its completion.
// It fails with ErrStopped once the pool has been stopped.
func (p *Pool) Submit(task func()) error {
	if p != nil && p.closed.Load() {
		return ErrStopped
	}
	p.enqueue(funcRunner(task))
	return nil
}

type funcRunner func()

func (f funcRunner) run() { f() }

// Stop shuts the pool down after running every queued task.
// Stop is idempotent.
func (p *Pool) Stop() {
	if p == nil || !p.closed.CompareAndSwap(false, true) {
		return
	}

	p.submitMu.Lock()
	close(p.stopCh)
	close(p.workCh)
	p.submitMu.Unlock()

	p.wg.Wait()
}

var defaultPool atomic.Pointer[Pool]

// StartDefault starts the process-wide pool with the given number of workers,
// replacing and stopping any previous one.
func StartDefault(workers int) *Pool {
	p := New(workers)
	if old := defaultPool.Swap(p); old != nil {
		old.Stop()
	}
	return p
}

// StopDefault stops the process-wide pool. Later calls to Default return nil.
func StopDefault() {
	if p := defaultPool.Swap(nil); p != nil {
		p.Stop()
	}
}

// Default returns the process-wide pool, or nil if none is running.
func Default() *Pool {
	return defaultPool.Load()
}
