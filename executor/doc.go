// Package executor provides the worker pool used for parallel scans and
// disk write-behind.
//
// A [Pool] runs a fixed set of goroutines with an explicit lifecycle: it
// starts in [New] and stops in [Pool.Stop]. A process-wide pool is managed
// with [StartDefault] and [StopDefault]; code that wants parallelism asks for
// [Default] and falls back to running work on the calling goroutine when no
// pool is live.
//
// Work is submitted with [Go], which returns a [Future]. Futures are
// claimable: whichever of a worker or a waiter reaches an unstarted task
// first runs it. A task waiting on futures it submitted itself therefore
// never deadlocks, even when every worker is busy.
package executor
