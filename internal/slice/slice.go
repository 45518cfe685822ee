package slice

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/dframe/blobstore"
	"github.com/hupe1980/dframe/executor"
	"github.com/hupe1980/dframe/internal/compress"
	"github.com/hupe1980/dframe/internal/mem"
	"github.com/hupe1980/dframe/resource"
)

var (
	// ErrSealed is returned when appending to a sealed slice.
	ErrSealed = errors.New("slice: sealed")

	// ErrSliceFull is returned when appending past capacity.
	ErrSliceFull = errors.New("slice: full")
)

// Error records a failed slice operation.
type Error struct {
	Slice int
	Op    string
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("slice %d: %s: %v", e.Slice, e.Op, e.cause)
}

func (e *Error) Unwrap() error { return e.cause }

func wrap(index int, op string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Slice: index, Op: op, cause: err}
}

// Config is shared by every slice of a frame.
type Config struct {
	Capacity  int
	Alignment mem.Alignment

	// Disk slices only.
	Store       blobstore.Store
	Prefix      string
	Compression compress.Type
	Async       bool
	// Pool runs write-behind and prefetch. nil uses executor.Default().
	Pool *executor.Pool

	Resources *resource.Controller

	// OnSeal and OnLoad observe page writes and reads.
	OnSeal func(index, bytes int, err error)
	OnLoad func(index, bytes int, err error)
}

func (c *Config) pool() *executor.Pool {
	if c.Pool != nil {
		return c.Pool
	}
	return executor.Default()
}

// Slice is one page of rows.
//
// Append, Seal, Reopen, Store and the resize methods must not run
// concurrently with any other method. Load, Prefetch and MemoryUsage may
// run concurrently with each other.
type Slice interface {
	// Index is the position of the slice in its frame.
	Index() int
	// Rows is the number of rows held.
	Rows() int
	// Stride is the number of floats per row.
	Stride() int
	Sealed() bool

	// Append writes the next row through write.
	Append(write func(values []float32, docHash *int32)) error
	// Seal ends appending and persists the rows.
	Seal(ctx context.Context) error
	// Reopen reverses Seal so more rows can be appended.
	Reopen(ctx context.Context) error

	// Load returns the rows. Call Release on the buffer when done.
	Load(ctx context.Context) (*Buffer, error)
	// Prefetch starts Load on the frame executor.
	Prefetch(ctx context.Context) *executor.Future[*Buffer]
	// Store persists a buffer obtained from Load after in-place mutation.
	Store(ctx context.Context, buf *Buffer) error
	// Flush waits for pending write-behind.
	Flush(ctx context.Context) error

	// ResizeRowWidth re-strides every row, keeping the first keep values.
	ResizeRowWidth(ctx context.Context, stride, keep int) error
	// Resize truncates or zero-extends the slice to rows rows.
	Resize(ctx context.Context, rows int) error
	// Remove drops the slice and its page.
	Remove(ctx context.Context) error

	// MemoryUsage is the resident cost of the slice in bytes.
	MemoryUsage() int
}

// PageName is the store key of slice index under prefix.
func PageName(prefix string, index int) string {
	return fmt.Sprintf("%sslice-%06d", prefix, index)
}
