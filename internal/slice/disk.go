package slice

import (
	"context"
	"fmt"
	"hash/crc32"
	"sync"

	"github.com/hupe1980/dframe/blobstore"
	"github.com/hupe1980/dframe/executor"
	"github.com/hupe1980/dframe/internal/compress"
	"github.com/hupe1980/dframe/internal/mem"
)

// Disk is a slice persisted as one page in a blobstore.Store.
type Disk struct {
	cfg    *Config
	index  int
	name   string
	stride int
	rows   int
	sealed bool

	// open holds the rows while the slice accepts appends.
	open *Buffer

	mu      sync.Mutex
	pending *executor.Future[struct{}]
	written bool
}

// NewDisk creates an empty open disk slice.
func NewDisk(cfg *Config, index, stride int) *Disk {
	return &Disk{
		cfg:    cfg,
		index:  index,
		name:   PageName(cfg.Prefix, index),
		stride: stride,
	}
}

func (s *Disk) Index() int   { return s.index }
func (s *Disk) Rows() int    { return s.rows }
func (s *Disk) Stride() int  { return s.stride }
func (s *Disk) Sealed() bool { return s.sealed }

// Name returns the store key of the page.
func (s *Disk) Name() string { return s.name }

func (s *Disk) Append(write func(values []float32, docHash *int32)) error {
	if s.sealed {
		return wrap(s.index, "append", ErrSealed)
	}
	if s.rows == s.cfg.Capacity {
		return wrap(s.index, "append", ErrSliceFull)
	}
	if s.open == nil {
		if err := s.acquire(context.Background(), s.cfg.Capacity, s.stride); err != nil {
			return wrap(s.index, "allocate", err)
		}
		s.open = newBuffer(s.cfg.Capacity, s.stride, s.cfg.Alignment)
		s.open.release = s.releaser(s.cfg.Capacity, s.stride)
	}
	n := s.open.Rows()
	s.open.DocHashes = append(s.open.DocHashes, 0)
	write(s.open.Row(n), &s.open.DocHashes[n])
	s.rows++
	return nil
}

func (s *Disk) acquire(ctx context.Context, rows, stride int) error {
	return s.cfg.Resources.AcquireMemory(ctx, bufferBytes(rows, stride))
}

func (s *Disk) releaser(rows, stride int) func() {
	return func() { s.cfg.Resources.ReleaseMemory(bufferBytes(rows, stride)) }
}

// Seal writes the open rows as the page and drops the open buffer.
func (s *Disk) Seal(ctx context.Context) error {
	if s.sealed {
		return nil
	}
	buf := s.open
	s.open = nil
	s.sealed = true
	if buf == nil {
		buf = &Buffer{Stride: s.stride}
	}
	return s.write(ctx, buf, "seal")
}

// write persists buf and releases it once the page is written. In async
// mode the write runs on the executor and its error surfaces on the next
// Flush, Load or Remove.
func (s *Disk) write(ctx context.Context, buf *Buffer, op string) error {
	if err := s.Flush(ctx); err != nil {
		buf.Release()
		return err
	}

	// With every write-behind slot busy the page is written inline, so pool
	// workers never block on slots held by tasks queued behind them.
	if !s.cfg.Async || !s.cfg.Resources.TryAcquireBackground() {
		err := s.put(ctx, buf)
		buf.Release()
		return wrap(s.index, op, err)
	}

	bg := context.WithoutCancel(ctx)
	f := executor.Go(s.cfg.pool(), func() (struct{}, error) {
		defer s.cfg.Resources.ReleaseBackground()
		defer buf.Release()
		return struct{}{}, wrap(s.index, op, s.put(bg, buf))
	})
	s.mu.Lock()
	s.pending = f
	s.mu.Unlock()
	return nil
}

func (s *Disk) put(ctx context.Context, buf *Buffer) error {
	page, err := encodePage(buf, s.cfg.Compression)
	if err == nil {
		err = s.cfg.Resources.AcquireIO(ctx, len(page))
	}
	if err == nil {
		err = s.cfg.Store.Put(ctx, s.name, page)
	}
	if err == nil {
		s.mu.Lock()
		s.written = true
		s.mu.Unlock()
	}
	if s.cfg.OnSeal != nil {
		s.cfg.OnSeal(s.index, len(page), err)
	}
	return err
}

// Flush waits for a pending write-behind and returns its error once.
func (s *Disk) Flush(ctx context.Context) error {
	s.mu.Lock()
	f := s.pending
	s.mu.Unlock()
	if f == nil {
		return nil
	}
	_, err := f.Wait(ctx)
	s.mu.Lock()
	if s.pending == f {
		s.pending = nil
	}
	s.mu.Unlock()
	return err
}

// Reopen loads the page back into an open buffer with full capacity.
func (s *Disk) Reopen(ctx context.Context) error {
	if !s.sealed {
		return nil
	}
	loaded, err := s.Load(ctx)
	if err != nil {
		return err
	}
	if err := s.acquire(ctx, s.cfg.Capacity, s.stride); err != nil {
		loaded.Release()
		return wrap(s.index, "reopen", err)
	}
	s.open = loaded.resized(s.rows, s.cfg.Capacity, s.stride, s.stride, s.cfg.Alignment)
	s.open.release = s.releaser(s.cfg.Capacity, s.stride)
	loaded.Release()
	s.sealed = false
	return nil
}

// Load reads and decodes the page into a new buffer. While the slice is
// open it returns the open buffer instead.
func (s *Disk) Load(ctx context.Context) (*Buffer, error) {
	if !s.sealed {
		if s.open == nil {
			return &Buffer{Stride: s.stride}, nil
		}
		return &Buffer{Values: s.open.Values, DocHashes: s.open.DocHashes, Stride: s.stride}, nil
	}
	if err := s.Flush(ctx); err != nil {
		return nil, err
	}

	buf, n, err := s.read(ctx)
	if s.cfg.OnLoad != nil {
		s.cfg.OnLoad(s.index, n, err)
	}
	if err != nil {
		return nil, wrap(s.index, "load", err)
	}
	return buf, nil
}

func (s *Disk) read(ctx context.Context) (*Buffer, int, error) {
	blob, err := s.cfg.Store.Open(ctx, s.name)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = blob.Close() }()

	head, err := blobstore.ReadRange(ctx, blob, 0, HeaderSize)
	if err != nil {
		return nil, 0, err
	}
	var h Header
	if err := h.Unmarshal(head); err != nil {
		return nil, 0, err
	}
	if int(h.Rows) != s.rows || int(h.Stride) != s.stride {
		return nil, 0, fmt.Errorf("%w: page has %d rows of stride %d, want %d of %d",
			ErrCorrupted, h.Rows, h.Stride, s.rows, s.stride)
	}
	if int64(h.PayloadSize) != blob.Size()-HeaderSize { //nolint:gosec
		return nil, 0, fmt.Errorf("%w: payload size %d, blob holds %d", ErrCorrupted, h.PayloadSize, blob.Size()-HeaderSize)
	}

	if err := s.cfg.Resources.AcquireIO(ctx, int(blob.Size())); err != nil {
		return nil, 0, err
	}
	block, err := blobstore.ReadRange(ctx, blob, HeaderSize, int64(h.PayloadSize)) //nolint:gosec
	if err != nil {
		return nil, 0, err
	}
	if crc32.Checksum(block, castagnoli) != h.PayloadCRC {
		return nil, 0, ErrCorrupted
	}

	if err := s.acquire(ctx, s.rows, s.stride); err != nil {
		return nil, 0, err
	}
	release := s.releaser(s.rows, s.stride)

	raw := mem.AllocAligned(int(h.RawSize), s.cfg.Alignment) //nolint:gosec
	out, err := compress.Decode(block, h.Compression, raw)
	if err != nil {
		release()
		return nil, 0, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	if len(out) != len(raw) {
		release()
		return nil, 0, fmt.Errorf("%w: decoded %d bytes, want %d", ErrCorrupted, len(out), len(raw))
	}
	if len(out) > 0 && &out[0] != &raw[0] {
		copy(raw, out)
	}

	split := s.rows * s.stride * mem.FloatSize
	buf := &Buffer{
		Values:    mem.BytesFloat32(raw[:split]),
		DocHashes: mem.BytesInt32(raw[split:]),
		Stride:    s.stride,
		release:   release,
	}
	if buf.DocHashes == nil {
		buf.DocHashes = []int32{}
	}
	return buf, len(block) + HeaderSize, nil
}

// Prefetch starts Load on the executor.
func (s *Disk) Prefetch(ctx context.Context) *executor.Future[*Buffer] {
	return executor.Go(s.cfg.pool(), func() (*Buffer, error) {
		return s.Load(ctx)
	})
}

// Store writes back a buffer returned by Load. The buffer is released.
func (s *Disk) Store(ctx context.Context, buf *Buffer) error {
	if !s.sealed {
		return nil
	}
	return s.write(ctx, buf, "store")
}

// rewrite loads the page, transforms it and writes the result back.
func (s *Disk) rewrite(ctx context.Context, op string, rows, stride, keep int) error {
	if !s.sealed {
		capacity := s.cfg.Capacity
		if s.open == nil && rows == 0 {
			s.stride = stride
			return nil
		}
		if s.open == nil {
			if err := s.acquire(ctx, capacity, s.stride); err != nil {
				return wrap(s.index, op, err)
			}
			s.open = newBuffer(capacity, s.stride, s.cfg.Alignment)
			s.open.release = s.releaser(capacity, s.stride)
		}
		if err := s.acquire(ctx, capacity, stride); err != nil {
			return wrap(s.index, op, err)
		}
		next := s.open.resized(rows, capacity, stride, keep, s.cfg.Alignment)
		next.release = s.releaser(capacity, stride)
		s.open.Release()
		s.open = next
		s.rows, s.stride = rows, stride
		return nil
	}

	buf, err := s.Load(ctx)
	if err != nil {
		return err
	}
	if err := s.acquire(ctx, rows, stride); err != nil {
		buf.Release()
		return wrap(s.index, op, err)
	}
	next := buf.resized(rows, rows, stride, keep, s.cfg.Alignment)
	next.release = s.releaser(rows, stride)
	buf.Release()

	s.rows, s.stride = rows, stride
	return s.write(ctx, next, op)
}

func (s *Disk) ResizeRowWidth(ctx context.Context, stride, keep int) error {
	if stride == s.stride && keep >= stride {
		return nil
	}
	return s.rewrite(ctx, "resize columns", s.rows, stride, keep)
}

func (s *Disk) Resize(ctx context.Context, rows int) error {
	if rows == s.rows {
		return nil
	}
	return s.rewrite(ctx, "resize rows", rows, s.stride, s.stride)
}

// Remove waits for pending writes and deletes the page.
func (s *Disk) Remove(ctx context.Context) error {
	flushErr := s.Flush(ctx)
	if s.open != nil {
		s.open.Release()
		s.open = nil
	}
	s.mu.Lock()
	written := s.written
	s.written = false
	s.mu.Unlock()
	if !written {
		return flushErr
	}
	if err := s.cfg.Store.Delete(ctx, s.name); err != nil {
		return wrap(s.index, "remove", err)
	}
	return flushErr
}

// MemoryUsage counts the slice bookkeeping and page key, plus the open
// buffer while rows are being appended.
func (s *Disk) MemoryUsage() int {
	n := sliceOverhead + len(s.name)
	if s.open != nil {
		n += (len(s.open.Values) + cap(s.open.DocHashes)) * 4
	}
	return n
}
