// Package mem provides memory allocation utilities.
package mem

import (
	"unsafe"
)

// Alignment is a byte alignment for the start of a float32 run.
type Alignment int

const (
	// Unaligned only guarantees the natural 4-byte alignment of float32.
	Unaligned Alignment = 4
	// Aligned8 aligns to 8 bytes.
	Aligned8 Alignment = 8
	// Aligned16 aligns to 16 bytes (SSE, NEON).
	Aligned16 Alignment = 16
	// Aligned32 aligns to 32 bytes (AVX).
	Aligned32 Alignment = 32
	// Aligned64 aligns to 64 bytes (AVX-512, cache line).
	Aligned64 Alignment = 64
)

// FloatSize is the size in bytes of one stored value.
const FloatSize = 4

// Valid reports whether a is one of the supported alignments.
func (a Alignment) Valid() bool {
	switch a {
	case Unaligned, Aligned8, Aligned16, Aligned32, Aligned64:
		return true
	}
	return false
}

// Floats returns the alignment expressed in float32 elements.
func (a Alignment) Floats() int {
	if a <= Unaligned {
		return 1
	}
	return int(a) / FloatSize
}

// RoundUp rounds n float32 elements up to the next multiple of the alignment.
func (a Alignment) RoundUp(n int) int {
	f := a.Floats()
	return (n + f - 1) / f * f
}

// IsAligned reports whether p satisfies the alignment.
func (a Alignment) IsAligned(p unsafe.Pointer) bool {
	return uintptr(p)%uintptr(max(a, Unaligned)) == 0
}

// AllocAligned allocates a byte slice of the given size whose first byte
// is aligned to alignment. It returns nil for size <= 0.
//
// Note: This function allocates slightly more memory than requested to ensure alignment.
// The underlying array is kept alive by the returned slice.
func AllocAligned(size int, alignment Alignment) []byte {
	if size <= 0 {
		return nil
	}
	align := uintptr(max(alignment, Unaligned))

	buf := make([]byte, size+int(align))

	addr := uintptr(unsafe.Pointer(&buf[0])) //nolint:gosec // unsafe is required for memory alignment
	offset := (align - (addr & (align - 1))) & (align - 1)

	return buf[offset : offset+uintptr(size)]
}

// AllocAlignedFloat32 allocates n zeroed float32 values starting at an
// address aligned to alignment.
func AllocAlignedFloat32(n int, alignment Alignment) []float32 {
	if n <= 0 {
		return nil
	}
	b := AllocAligned(n*FloatSize, alignment)
	return unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), n) //nolint:gosec // unsafe is required for memory alignment
}

// Float32Bytes reinterprets a float32 slice as its underlying bytes.
func Float32Bytes(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*FloatSize) //nolint:gosec // zero-copy view
}

// Int32Bytes reinterprets an int32 slice as its underlying bytes.
func Int32Bytes(v []int32) []byte {
	if len(v) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*4) //nolint:gosec // zero-copy view
}

// BytesFloat32 reinterprets b as float32 values. len(b) must be a multiple of
// FloatSize and b must be 4-byte aligned.
func BytesFloat32(b []byte) []float32 {
	if len(b) < FloatSize {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), len(b)/FloatSize) //nolint:gosec // zero-copy view
}

// BytesInt32 reinterprets b as int32 values under the same rules as
// BytesFloat32.
func BytesInt32(b []byte) []int32 {
	if len(b) < 4 {
		return nil
	}
	return unsafe.Slice((*int32)(unsafe.Pointer(&b[0])), len(b)/4) //nolint:gosec // zero-copy view
}
