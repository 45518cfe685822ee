package slice

import (
	"github.com/hupe1980/dframe/internal/mem"
)

// Buffer is the in-memory form of a slice: Rows() rows of Stride values
// and one document hash per row.
type Buffer struct {
	Values    []float32
	DocHashes []int32
	Stride    int

	release func()
}

// newBuffer allocates room for capacity rows.
func newBuffer(capacity, stride int, align mem.Alignment) *Buffer {
	return &Buffer{
		Values:    mem.AllocAlignedFloat32(capacity*stride, align),
		DocHashes: make([]int32, 0, capacity),
		Stride:    stride,
	}
}

// Rows returns the number of rows in the buffer.
func (b *Buffer) Rows() int { return len(b.DocHashes) }

// Row returns the values of row i.
func (b *Buffer) Row(i int) []float32 {
	return b.Values[i*b.Stride : (i+1)*b.Stride : (i+1)*b.Stride]
}

// Release returns resources held for a loaded buffer. The buffer must not
// be used afterwards. Release is a no-op for resident buffers.
func (b *Buffer) Release() {
	if b == nil || b.release == nil {
		return
	}
	r := b.release
	b.release = nil
	r()
}

// bufferBytes is the accounted size of a buffer holding capacity rows.
func bufferBytes(capacity, stride int) int64 {
	return int64(capacity) * int64(stride+1) * 4
}

// resized copies the first rows rows of b into a buffer sized for capacity
// rows of newStride values. The first keep values of each row are copied;
// everything else is zero.
func (b *Buffer) resized(rows, capacity, newStride, keep int, align mem.Alignment) *Buffer {
	out := newBuffer(capacity, newStride, align)
	keep = min(keep, b.Stride, newStride)
	n := min(rows, b.Rows())
	if keep == b.Stride && keep == newStride {
		copy(out.Values, b.Values[:n*b.Stride])
	} else {
		for i := range n {
			copy(out.Values[i*newStride:i*newStride+keep], b.Values[i*b.Stride:i*b.Stride+keep])
		}
	}
	out.DocHashes = append(out.DocHashes, b.DocHashes[:n]...)
	for range rows - n {
		out.DocHashes = append(out.DocHashes, 0)
	}
	return out
}

func float32Bytes(v []float32) []byte { return mem.Float32Bytes(v) }

func int32Bytes(v []int32) []byte { return mem.Int32Bytes(v) }
