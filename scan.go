package dframe

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/hupe1980/dframe/executor"
	"github.com/hupe1980/dframe/internal/partition"
	"github.com/hupe1980/dframe/internal/slice"
	"github.com/hupe1980/dframe/rowmask"
)

type scanOptions struct {
	threads int
	begin   int
	end     int
	mask    *rowmask.Mask
}

// ScanOption configures ReadRows and WriteColumns.
type ScanOption func(*scanOptions)

// WithThreads sets the maximum number of groups scanned in parallel.
// Values below 2 scan on the calling goroutine.
func WithThreads(n int) ScanOption {
	return func(o *scanOptions) {
		o.threads = n
	}
}

// WithRange restricts the scan to rows [begin, end). end is clamped to
// the number of rows.
func WithRange(begin, end int) ScanOption {
	return func(o *scanOptions) {
		o.begin, o.end = begin, end
	}
}

// WithMask restricts the scan to the rows selected by m.
func WithMask(m *rowmask.Mask) ScanOption {
	return func(o *scanOptions) {
		o.mask = m
	}
}

// plan validates the options and splits the range into groups.
func (f *DataFrame) plan(optFns []ScanOption) ([]partition.Group, scanOptions, error) {
	o := scanOptions{threads: 1, end: math.MaxInt}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	o.threads = max(o.threads, 1)
	if o.mask != nil && o.mask.Size() > f.rows {
		return nil, o, fmt.Errorf("%w: mask has %d rows, frame has %d", ErrMaskTooLong, o.mask.Size(), f.rows)
	}
	o.begin = max(o.begin, 0)
	o.end = min(o.end, f.rows)
	if o.begin >= o.end {
		return nil, o, nil
	}
	return partition.Plan(o.begin, o.end, f.capacity, o.threads, o.mask), o, nil
}

// ReadRows visits the selected rows in runs of consecutive rows. Each
// group of slices gets its own state from newState, and groups run in
// parallel up to WithThreads. The states are returned in row order, one per
// group, also when the scan fails.
func ReadRows[S any](ctx context.Context, f *DataFrame, newState func() S, visit func(*S, Rows), optFns ...ScanOption) ([]S, error) {
	if err := f.checkFinished(); err != nil {
		return nil, err
	}
	groups, o, err := f.plan(optFns)
	if err != nil {
		return nil, err
	}

	states := make([]S, len(groups))
	for i := range states {
		states[i] = newState()
	}

	start := time.Now()
	rows, err := f.dispatch(ctx, groups, o, false, func(g int, rs Rows) {
		visit(&states[g], rs)
	})
	f.observeScan(ctx, "read_rows", len(groups), rows, time.Since(start), err)
	return states, err
}

// ReadRows is ReadRows without per-group state. visit must be safe for
// concurrent use when more than one thread is requested.
func (f *DataFrame) ReadRows(ctx context.Context, visit func(Rows), optFns ...ScanOption) error {
	_, err := ReadRows(ctx, f,
		func() struct{} { return struct{}{} },
		func(_ *struct{}, rs Rows) { visit(rs) },
		optFns...)
	return err
}

// WriteColumns visits the selected rows one at a time for in-place
// mutation. Changed pages of disk frames are written back before it
// returns.
func (f *DataFrame) WriteColumns(ctx context.Context, visit func(Row), optFns ...ScanOption) error {
	if err := f.checkFinished(); err != nil {
		return err
	}
	groups, o, err := f.plan(optFns)
	if err != nil {
		return err
	}

	start := time.Now()
	rows, err := f.dispatch(ctx, groups, o, true, func(_ int, rs Rows) {
		for row := range rs.All() {
			visit(row)
		}
	})
	err = errors.Join(err, f.flush(ctx))
	f.observeScan(ctx, "write_columns", len(groups), rows, time.Since(start), err)
	return err
}

func (f *DataFrame) observeScan(ctx context.Context, op string, groups, rows int, elapsed time.Duration, err error) {
	f.opts.metricsCollector.RecordScan(op, rows, elapsed, err)
	f.opts.logger.LogScan(ctx, op, groups, rows, elapsed, err)
}

// dispatch scans every group and returns the number of rows visited. Every
// group runs to completion even when another fails.
func (f *DataFrame) dispatch(ctx context.Context, groups []partition.Group, o scanOptions, write bool, visit func(int, Rows)) (int, error) {
	counts := make([]int, len(groups))
	task := func(g int) func() (struct{}, error) {
		return func() (struct{}, error) {
			n, err := f.scanGroup(ctx, groups[g], o.mask, write, func(rs Rows) { visit(g, rs) })
			counts[g] = n
			return struct{}{}, err
		}
	}

	var err error
	if o.threads == 1 || len(groups) <= 1 {
		var errs []error
		for g := range groups {
			if _, e := task(g)(); e != nil {
				errs = append(errs, e)
			}
		}
		err = errors.Join(errs...)
	} else {
		pool := f.pool()
		futures := make([]*executor.Future[struct{}], len(groups))
		for g := range groups {
			futures[g] = executor.Go(pool, task(g))
		}
		_, err = executor.WaitAll(context.WithoutCancel(ctx), futures)
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	return total, err
}

// scanGroup streams the units of one group in ascending row order. In
// async mode the next slice is loaded while the current one is visited.
func (f *DataFrame) scanGroup(ctx context.Context, g partition.Group, mask *rowmask.Mask, write bool, visit func(Rows)) (int, error) {
	prefetch := f.kind == StorageDisk && f.opts.ioMode == IOAsync
	var next *executor.Future[*slice.Buffer]
	defer func() {
		if next != nil {
			if buf, err := next.Wait(context.WithoutCancel(ctx)); err == nil {
				buf.Release()
			}
		}
	}()

	visited := 0
	for i, u := range g.Units {
		s := f.slices[u.Slice]

		var buf *slice.Buffer
		var err error
		if next != nil {
			buf, err = next.Wait(context.WithoutCancel(ctx))
			next = nil
		} else {
			buf, err = s.Load(ctx)
		}
		if err != nil {
			return visited, err
		}
		if prefetch && i+1 < len(g.Units) {
			next = f.slices[g.Units[i+1].Slice].Prefetch(ctx)
		}

		base := u.Slice * f.capacity
		if mask == nil {
			visit(Rows{buf: buf, columns: f.columns, base: base, first: u.Begin - base, n: u.End - u.Begin})
			visited += u.End - u.Begin
		} else {
			for first, last := range mask.Runs(u.Begin, u.End) {
				visit(Rows{buf: buf, columns: f.columns, base: base, first: first - base, n: last - first})
				visited += last - first
			}
		}

		if write {
			err = s.Store(ctx, buf)
		} else {
			buf.Release()
		}
		if err != nil {
			return visited, err
		}
	}
	return visited, nil
}
