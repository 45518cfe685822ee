package slice

import (
	"context"

	"github.com/hupe1980/dframe/executor"
)

// sliceOverhead approximates the fixed bookkeeping cost of one slice.
const sliceOverhead = 48

// Memory is a slice whose buffer stays resident.
type Memory struct {
	cfg      *Config
	index    int
	buf      *Buffer
	sealed   bool
	reserved int64
}

// NewMemory creates an empty open slice. It fails when the resource
// controller cannot fit a full slice.
func NewMemory(cfg *Config, index, stride int) (*Memory, error) {
	s := &Memory{cfg: cfg, index: index}
	if err := s.reserve(bufferBytes(cfg.Capacity, stride)); err != nil {
		return nil, wrap(index, "allocate", err)
	}
	s.buf = newBuffer(cfg.Capacity, stride, cfg.Alignment)
	return s, nil
}

// reserve moves the accounted size to bytes.
func (s *Memory) reserve(bytes int64) error {
	if bytes > s.reserved {
		if err := s.cfg.Resources.ReserveMemory(bytes - s.reserved); err != nil {
			return err
		}
	} else {
		s.cfg.Resources.ReleaseMemory(s.reserved - bytes)
	}
	s.reserved = bytes
	return nil
}

func (s *Memory) Index() int   { return s.index }
func (s *Memory) Rows() int    { return s.buf.Rows() }
func (s *Memory) Stride() int  { return s.buf.Stride }
func (s *Memory) Sealed() bool { return s.sealed }

func (s *Memory) Append(write func(values []float32, docHash *int32)) error {
	if s.sealed {
		return wrap(s.index, "append", ErrSealed)
	}
	n := s.buf.Rows()
	if n == s.cfg.Capacity {
		return wrap(s.index, "append", ErrSliceFull)
	}
	s.buf.DocHashes = append(s.buf.DocHashes, 0)
	write(s.buf.Row(n), &s.buf.DocHashes[n])
	return nil
}

// Seal marks the slice sealed and shrinks the buffer to the rows held.
func (s *Memory) Seal(context.Context) error {
	if s.sealed {
		return nil
	}
	rows := s.buf.Rows()
	if rows < s.cfg.Capacity {
		s.buf = s.buf.resized(rows, rows, s.buf.Stride, s.buf.Stride, s.cfg.Alignment)
		_ = s.reserve(bufferBytes(rows, s.buf.Stride))
	}
	s.sealed = true
	return nil
}

func (s *Memory) Reopen(context.Context) error {
	if !s.sealed {
		return nil
	}
	if err := s.reserve(bufferBytes(s.cfg.Capacity, s.buf.Stride)); err != nil {
		return wrap(s.index, "reopen", err)
	}
	s.buf = s.buf.resized(s.buf.Rows(), s.cfg.Capacity, s.buf.Stride, s.buf.Stride, s.cfg.Alignment)
	s.sealed = false
	return nil
}

// Load returns the resident buffer; mutations are visible immediately.
func (s *Memory) Load(context.Context) (*Buffer, error) {
	return s.buf, nil
}

func (s *Memory) Prefetch(context.Context) *executor.Future[*Buffer] {
	return executor.Done(s.buf, nil)
}

func (s *Memory) Store(context.Context, *Buffer) error { return nil }

func (s *Memory) Flush(context.Context) error { return nil }

func (s *Memory) ResizeRowWidth(_ context.Context, stride, keep int) error {
	if stride == s.buf.Stride && keep >= stride {
		return nil
	}
	capacity := s.capacity()
	if err := s.reserve(bufferBytes(capacity, stride)); err != nil {
		return wrap(s.index, "resize columns", err)
	}
	s.buf = s.buf.resized(s.buf.Rows(), capacity, stride, keep, s.cfg.Alignment)
	return nil
}

func (s *Memory) Resize(_ context.Context, rows int) error {
	if rows == s.buf.Rows() {
		return nil
	}
	capacity := s.cfg.Capacity
	if s.sealed {
		capacity = rows
	}
	if err := s.reserve(bufferBytes(capacity, s.buf.Stride)); err != nil {
		return wrap(s.index, "resize rows", err)
	}
	s.buf = s.buf.resized(rows, capacity, s.buf.Stride, s.buf.Stride, s.cfg.Alignment)
	return nil
}

func (s *Memory) Remove(context.Context) error {
	_ = s.reserve(0)
	s.buf = &Buffer{Stride: s.buf.Stride}
	return nil
}

func (s *Memory) capacity() int {
	if s.sealed {
		return s.buf.Rows()
	}
	return s.cfg.Capacity
}

func (s *Memory) MemoryUsage() int {
	return sliceOverhead + (len(s.buf.Values)+cap(s.buf.DocHashes))*4
}
