package dframe

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"strings"

	"github.com/hupe1980/dframe/blobstore"
	"github.com/hupe1980/dframe/executor"
	"github.com/hupe1980/dframe/internal/fs"
	"github.com/hupe1980/dframe/internal/slice"
)

// frameOverhead approximates the fixed bookkeeping cost of a frame.
const frameOverhead = 256

// DataFrame stores rows of float32 columns in fixed-capacity slices.
//
// Writing (WriteRow, FinishWritingRows), structural changes and
// WriteColumns need exclusive access. ReadRows calls may run concurrently
// with each other.
type DataFrame struct {
	opts options
	kind StorageKind

	columns  int
	reserved int
	stride   int
	capacity int
	rows     int

	cfg    *slice.Config
	slices []slice.Slice

	rootDir string
	prefix  string
	local   *blobstore.LocalStore

	finished bool
	closed   bool
}

// NewMemoryFrame creates a frame whose slices stay resident.
func NewMemoryFrame(columns, capacity int, optFns ...Option) (*DataFrame, error) {
	return newFrame(StorageMemory, columns, capacity, applyOptions(optFns))
}

// NewDiskFrame creates a frame whose sealed slices are pages in a store.
//
// Without WithStore the pages go to a fresh subdirectory of rootDirectory,
// which must have room for expectedRows rows. Close removes the pages.
func NewDiskFrame(rootDirectory string, columns, expectedRows, capacity int, optFns ...Option) (*DataFrame, error) {
	o := applyOptions(optFns)
	if expectedRows < 0 {
		return nil, fmt.Errorf("%w: expected rows %d", ErrInvalidArgument, expectedRows)
	}
	prefix := fmt.Sprintf("frame-%016x/", rand.Uint64()) //nolint:gosec // names only need to be unique

	var local *blobstore.LocalStore
	if o.store == nil {
		if rootDirectory == "" {
			return nil, fmt.Errorf("%w: no root directory or store", ErrInvalidArgument)
		}
		fsys := o.fs
		if fsys == nil {
			fsys = fs.Default
		}
		if err := fsys.MkdirAll(rootDirectory, 0o755); err != nil {
			return nil, err
		}
		if capacity > 0 && o.alignment.Valid() {
			need := int64(expectedRows) * int64(o.alignment.RoundUp(columns)+1) * 4
			if avail, ok := freeDiskSpace(rootDirectory); ok && avail < need {
				return nil, fmt.Errorf("%w: need %d bytes, %d available in %s",
					ErrInsufficientDiskSpace, need, avail, rootDirectory)
			}
		}
		local = blobstore.NewLocalStoreFS(rootDirectory, fsys)
		o.store = local
	}

	f, err := newFrame(StorageDisk, columns, capacity, o)
	if err != nil {
		return nil, err
	}
	f.rootDir = rootDirectory
	f.prefix = prefix
	f.local = local
	f.cfg.Prefix = prefix
	f.opts.logger = f.opts.logger.WithFrame(prefix)
	return f, nil
}

func newFrame(kind StorageKind, columns, capacity int, o options) (*DataFrame, error) {
	if columns < 0 || capacity <= 0 {
		return nil, fmt.Errorf("%w: %d columns, capacity %d", ErrInvalidArgument, columns, capacity)
	}
	if !o.alignment.Valid() {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidAlignment, int(o.alignment))
	}

	f := &DataFrame{
		opts:     o,
		kind:     kind,
		columns:  columns,
		reserved: columns,
		stride:   o.alignment.RoundUp(columns),
		capacity: capacity,
	}
	f.cfg = &slice.Config{
		Capacity:    capacity,
		Alignment:   o.alignment,
		Store:       o.store,
		Compression: o.compression,
		Async:       kind == StorageDisk && o.ioMode == IOAsync,
		Pool:        o.pool,
		Resources:   o.resources,
		OnSeal: func(index, bytes int, err error) {
			f.opts.metricsCollector.RecordSeal(bytes, err)
			f.opts.logger.LogSeal(context.Background(), index, bytes, err)
		},
		OnLoad: func(index, bytes int, err error) {
			f.opts.metricsCollector.RecordLoad(bytes, err)
			f.opts.logger.LogLoad(context.Background(), index, bytes, err)
		},
	}
	return f, nil
}

// NumberColumns returns the number of visible columns.
func (f *DataFrame) NumberColumns() int { return f.columns }

// NumberRows returns the number of rows.
func (f *DataFrame) NumberRows() int { return f.rows }

// SliceCapacity returns the maximum number of rows per slice.
func (f *DataFrame) SliceCapacity() int { return f.capacity }

// NumberSlices returns the number of slices holding rows.
func (f *DataFrame) NumberSlices() int { return len(f.slices) }

// Stride returns the number of floats between the starts of two rows.
func (f *DataFrame) Stride() int { return f.stride }

func (f *DataFrame) Alignment() Alignment     { return f.opts.alignment }
func (f *DataFrame) StorageKind() StorageKind { return f.kind }
func (f *DataFrame) IOMode() IOMode           { return f.opts.ioMode }

// Prefix returns the page name prefix of a disk frame.
func (f *DataFrame) Prefix() string { return f.prefix }

// Directory returns the local directory holding the pages of a disk frame,
// or "" when the frame is in memory or uses a caller-supplied store.
func (f *DataFrame) Directory() string {
	if f.local == nil {
		return ""
	}
	return filepath.Join(f.rootDir, strings.TrimSuffix(f.prefix, "/"))
}

func (f *DataFrame) pool() *executor.Pool {
	if f.opts.pool != nil {
		return f.opts.pool
	}
	return executor.Default()
}

func (f *DataFrame) newSlice(index int) (slice.Slice, error) {
	if f.kind == StorageDisk {
		return slice.NewDisk(f.cfg, index, f.stride), nil
	}
	return slice.NewMemory(f.cfg, index, f.stride)
}

// WriteRow appends one row. write receives the row's columns, zeroed, and
// its document hash. Full slices are sealed as rows arrive; after
// FinishWritingRows, WriteRow resumes appending to the frame.
func (f *DataFrame) WriteRow(write func(columns []float32, docHash *int32)) error {
	if f.closed {
		return ErrClosed
	}
	ctx := context.Background()
	if f.finished {
		if err := f.resume(ctx); err != nil {
			return err
		}
	}

	s, err := f.openSlice()
	if err != nil {
		return err
	}
	columns := f.columns
	if err := s.Append(func(values []float32, docHash *int32) {
		write(values[:columns:columns], docHash)
	}); err != nil {
		return err
	}
	f.rows++
	if s.Rows() == f.capacity {
		return s.Seal(ctx)
	}
	return nil
}

// AppendRow appends a row from float64 values. Missing trailing columns
// are zero.
func (f *DataFrame) AppendRow(values []float64, docHash int32) error {
	if len(values) > f.columns {
		return fmt.Errorf("%w: row has %d values, frame has %d columns", ErrInvalidArgument, len(values), f.columns)
	}
	return f.WriteRow(func(columns []float32, hash *int32) {
		for i, v := range values {
			columns[i] = float32(v)
		}
		*hash = docHash
	})
}

// openSlice returns the slice receiving appends, adding one when the last
// is sealed.
func (f *DataFrame) openSlice() (slice.Slice, error) {
	if n := len(f.slices); n > 0 && !f.slices[n-1].Sealed() {
		return f.slices[n-1], nil
	}
	s, err := f.newSlice(len(f.slices))
	if err != nil {
		return nil, err
	}
	f.slices = append(f.slices, s)
	return s, nil
}

// resume reopens a partial last slice so writing can continue.
func (f *DataFrame) resume(ctx context.Context) error {
	if n := len(f.slices); n > 0 {
		if last := f.slices[n-1]; last.Rows() < f.capacity {
			if err := last.Reopen(ctx); err != nil {
				return err
			}
		}
	}
	f.finished = false
	return nil
}

// FinishWritingRows seals the last slice and waits for every pending page
// write. Write-behind failures are reported here. It is idempotent.
func (f *DataFrame) FinishWritingRows(ctx context.Context) error {
	if f.closed {
		return ErrClosed
	}
	if f.finished {
		return nil
	}
	var errs []error
	if n := len(f.slices); n > 0 && !f.slices[n-1].Sealed() {
		errs = append(errs, f.slices[n-1].Seal(ctx))
	}
	errs = append(errs, f.flush(ctx))
	f.finished = true
	return errors.Join(errs...)
}

func (f *DataFrame) flush(ctx context.Context) error {
	var errs []error
	for _, s := range f.slices {
		if err := s.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *DataFrame) checkFinished() error {
	if f.closed {
		return ErrClosed
	}
	if !f.finished {
		return ErrNotFinished
	}
	return nil
}

// countRows recomputes the row count from the slices.
func (f *DataFrame) countRows() int {
	n := len(f.slices)
	if n == 0 {
		return 0
	}
	return (n-1)*f.capacity + f.slices[n-1].Rows()
}

// MemoryUsage returns the resident bytes of the frame: row buffers and doc
// hashes of resident slices plus bookkeeping. Disk frames only count
// bookkeeping, page names and the root directory while no slice is open.
func (f *DataFrame) MemoryUsage() int {
	n := frameOverhead + len(f.rootDir) + cap(f.slices)*16
	for _, s := range f.slices {
		n += s.MemoryUsage()
	}
	return n
}

// Close waits for pending writes and drops every slice. Pages of disk
// frames are deleted. Close is idempotent.
func (f *DataFrame) Close(ctx context.Context) error {
	if f.closed {
		return nil
	}
	f.closed = true

	errs := []error{f.flush(ctx)}
	for _, s := range f.slices {
		errs = append(errs, s.Remove(ctx))
	}
	if f.local != nil {
		errs = append(errs, f.local.RemoveDir(f.prefix))
	}
	err := errors.Join(errs...)
	f.opts.logger.LogClose(ctx, len(f.slices), err)
	f.slices = nil
	f.rows = 0
	return err
}
