package dframe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// Reserve grows the row stride so that extraColumns more columns fit
// without another pass over the data. The visible columns are unchanged.
// It may be called before, during or after writing.
func (f *DataFrame) Reserve(ctx context.Context, threads, extraColumns int) error {
	if f.closed {
		return ErrClosed
	}
	if extraColumns < 0 {
		return fmt.Errorf("%w: reserve %d columns", ErrInvalidArgument, extraColumns)
	}
	reserved := f.columns + extraColumns
	if reserved <= f.reserved {
		return nil
	}

	start := time.Now()
	err := f.restride(ctx, threads, f.opts.alignment.RoundUp(reserved), f.columns)
	if err == nil {
		f.reserved = reserved
	}
	f.opts.metricsCollector.RecordResize("reserve", time.Since(start), err)
	f.opts.logger.LogResize(ctx, "reserve", f.rows, f.columns, err)
	return err
}

// ResizeColumns sets the number of columns. New columns read as zero.
// Dropped columns are cleared so they read as zero if the frame grows again.
func (f *DataFrame) ResizeColumns(ctx context.Context, threads, columns int) error {
	if f.closed {
		return ErrClosed
	}
	if columns < 0 {
		return fmt.Errorf("%w: %d columns", ErrInvalidArgument, columns)
	}

	start := time.Now()
	err := f.resizeColumns(ctx, threads, columns)
	f.opts.metricsCollector.RecordResize("resize_columns", time.Since(start), err)
	f.opts.logger.LogResize(ctx, "resize columns", f.rows, f.columns, err)
	return err
}

func (f *DataFrame) resizeColumns(ctx context.Context, threads, columns int) error {
	switch {
	case columns == f.columns:
		return nil
	case columns < f.columns:
		if err := f.restride(ctx, threads, f.stride, columns); err != nil {
			return err
		}
	default:
		if stride := f.opts.alignment.RoundUp(columns); stride > f.stride {
			if err := f.restride(ctx, threads, stride, f.columns); err != nil {
				return err
			}
		}
	}
	f.columns = columns
	f.reserved = max(f.reserved, columns)
	return nil
}

// ResizeColumnsAligned appends column groups, each starting at a multiple
// of its alignment. It returns the offset of every group in floats from the
// row start and the number of columns added. A group alignment wider than
// the frame alignment is ErrInvalidAlignment.
func (f *DataFrame) ResizeColumnsAligned(ctx context.Context, threads int, groups []ColumnGroup) ([]int, int, error) {
	offsets := make([]int, 0, len(groups))
	end := f.columns
	for _, g := range groups {
		a := g.Alignment
		if a == 0 {
			a = AlignedNone
		}
		if g.Size < 0 {
			return nil, 0, fmt.Errorf("%w: column group of %d columns", ErrInvalidArgument, g.Size)
		}
		if !a.Valid() || a > f.opts.alignment {
			return nil, 0, fmt.Errorf("%w: column group aligned to %d bytes in a frame aligned to %d",
				ErrInvalidAlignment, int(a), int(f.opts.alignment))
		}
		end = a.RoundUp(end)
		offsets = append(offsets, end)
		end += g.Size
	}

	before := f.columns
	if err := f.ResizeColumns(ctx, threads, end); err != nil {
		return nil, 0, err
	}
	return offsets, end - before, nil
}

// restride rewrites every slice to stride floats per row, keeping the
// first keep columns.
func (f *DataFrame) restride(ctx context.Context, threads, stride, keep int) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(threads, 1))
	for _, s := range f.slices {
		g.Go(func() error {
			return s.ResizeRowWidth(gctx, stride, keep)
		})
	}
	err := g.Wait()
	if err == nil {
		err = f.flush(ctx)
	}
	if err != nil {
		return err
	}
	f.stride = stride
	return nil
}

// ResizeRows truncates or extends the frame to rows rows. Rows below
// min(old, new) keep their values; new rows are zero with doc hash 0.
func (f *DataFrame) ResizeRows(ctx context.Context, rows int) error {
	if err := f.checkFinished(); err != nil {
		return err
	}
	if rows < 0 {
		return fmt.Errorf("%w: %d rows", ErrInvalidArgument, rows)
	}

	start := time.Now()
	err := f.resizeRows(ctx, rows)
	f.rows = f.countRows()
	f.opts.metricsCollector.RecordResize("resize_rows", time.Since(start), err)
	f.opts.logger.LogResize(ctx, "resize rows", f.rows, f.columns, err)
	return err
}

func (f *DataFrame) resizeRows(ctx context.Context, rows int) error {
	if rows == f.rows {
		return nil
	}
	keep := (rows + f.capacity - 1) / f.capacity

	if rows < f.rows {
		var errs []error
		for _, s := range f.slices[keep:] {
			errs = append(errs, s.Remove(ctx))
		}
		clear(f.slices[keep:])
		f.slices = f.slices[:keep]
		if keep > 0 {
			errs = append(errs, f.slices[keep-1].Resize(ctx, rows-(keep-1)*f.capacity))
		}
		return errors.Join(errs...)
	}

	if n := len(f.slices); n > 0 {
		last := f.slices[n-1]
		if want := min(f.capacity, rows-(n-1)*f.capacity); want > last.Rows() {
			if err := last.Resize(ctx, want); err != nil {
				return err
			}
		}
	}
	for i := len(f.slices); i < keep; i++ {
		s, err := f.newSlice(i)
		if err != nil {
			return err
		}
		err = s.Resize(ctx, min(f.capacity, rows-i*f.capacity))
		if err == nil {
			err = s.Seal(ctx)
		}
		if err != nil {
			return errors.Join(err, s.Remove(ctx))
		}
		f.slices = append(f.slices, s)
	}
	return f.flush(ctx)
}
