package rowmask

import (
	"encoding/binary"
	"errors"
	"fmt"
	"iter"
	"math"
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
)

// MaxSize is the largest number of rows a mask can cover.
const MaxSize = math.MaxUint32

// ErrInvalidEncoding is returned by UnmarshalBinary for malformed input.
var ErrInvalidEncoding = errors.New("rowmask: invalid encoding")

// Mask is a run-compressed boolean sequence of explicit length.
//
// A Mask is not safe for concurrent mutation. Concurrent reads are safe.
type Mask struct {
	rb   *roaring.Bitmap
	size int
}

// New returns an empty mask.
func New() *Mask {
	return &Mask{rb: roaring.New()}
}

// NewFilled returns a mask of size bits all equal to bit.
func NewFilled(size int, bit bool) *Mask {
	m := New()
	m.Extend(bit, size)
	return m
}

// FromBools builds a mask from explicit values.
func FromBools(bits ...bool) *Mask {
	m := New()
	for _, b := range bits {
		m.Append(b)
	}
	m.rb.RunOptimize()
	return m
}

// Extend appends count copies of bit.
// It panics if the mask would grow past MaxSize.
func (m *Mask) Extend(bit bool, count int) {
	if count <= 0 {
		return
	}
	if count > MaxSize-m.size {
		panic(fmt.Sprintf("rowmask: size %d + %d exceeds %d", m.size, count, MaxSize))
	}
	if bit {
		m.rb.AddRange(uint64(m.size), uint64(m.size+count))
	}
	m.size += count
}

// Append appends a single bit.
func (m *Mask) Append(bit bool) {
	m.Extend(bit, 1)
}

// Size returns the logical length of the mask.
func (m *Mask) Size() int { return m.size }

// Get reports whether row i is selected.
func (m *Mask) Get(i int) bool {
	if i < 0 || i >= m.size {
		return false
	}
	return m.rb.Contains(uint32(i)) //nolint:gosec // bounded by MaxSize
}

// Count returns the number of selected rows.
func (m *Mask) Count() int {
	return int(m.rb.GetCardinality()) //nolint:gosec // bounded by MaxSize
}

// CountRange returns the number of selected rows in [begin, end).
func (m *Mask) CountRange(begin, end int) int {
	begin = max(begin, 0)
	end = min(end, m.size)
	if begin >= end {
		return 0
	}
	n := m.rb.Rank(uint32(end - 1)) //nolint:gosec
	if begin > 0 {
		n -= m.rb.Rank(uint32(begin - 1)) //nolint:gosec
	}
	return int(n) //nolint:gosec
}

// IsEmpty reports whether no row is selected.
func (m *Mask) IsEmpty() bool { return m.rb.IsEmpty() }

// OneBits yields the selected rows in ascending order.
func (m *Mask) OneBits() iter.Seq[int] {
	return m.OneBitsRange(0, m.size)
}

// OneBitsRange yields the selected rows in [begin, end) in ascending order.
func (m *Mask) OneBitsRange(begin, end int) iter.Seq[int] {
	return func(yield func(int) bool) {
		it := m.Iterator()
		it.Seek(begin)
		for it.HasNext() {
			row := it.Next()
			if row >= end {
				return
			}
			if !yield(row) {
				return
			}
		}
	}
}

// Iterator returns a cursor over the selected rows.
func (m *Mask) Iterator() *Iterator {
	return &Iterator{it: m.rb.Iterator()}
}

// Runs yields the maximal runs of selected rows inside [begin, end) as
// half-open [first, last) pairs. Each run costs a few bitmap lookups,
// independent of its length.
func (m *Mask) Runs(begin, end int) iter.Seq2[int, int] {
	return func(yield func(int, int) bool) {
		pos := max(begin, 0)
		end = min(end, m.size)
		for pos < end {
			first := m.nextSelected(pos)
			if first < 0 || first >= end {
				return
			}
			last := min(m.runEnd(first), end)
			if !yield(first, last) {
				return
			}
			pos = last
		}
	}
}

// nextSelected returns the first selected row at or after row, or -1.
func (m *Mask) nextSelected(row int) int {
	if v := m.rb.NextValue(uint32(row)); v >= 0 { //nolint:gosec // bounded by MaxSize
		if next := int(v); next >= row && m.rb.Contains(uint32(v)) && m.CountRange(row, next) == 0 { //nolint:gosec
			return next
		}
	}
	it := m.rb.Iterator()
	it.AdvanceIfNeeded(uint32(row)) //nolint:gosec
	if !it.HasNext() {
		return -1
	}
	return int(it.Next())
}

// runEnd returns one past the last row of the run that contains the
// selected row.
func (m *Mask) runEnd(row int) int {
	first := row
	for {
		v := m.rb.NextAbsentValue(uint32(row)) //nolint:gosec // bounded by MaxSize
		next := int(v)
		if v <= int64(row) || next > m.size || m.CountRange(row, next) != next-row {
			return m.runEndByRank(first)
		}
		// Runs crossing a 2^16 container boundary come back in pieces.
		if next == m.size || !m.rb.Contains(uint32(next)) { //nolint:gosec
			return next
		}
		row = next
	}
}

// runEndByRank finds the end of the run at row with a galloping search
// over CountRange.
func (m *Mask) runEndByRank(row int) int {
	full := func(e int) bool { return m.CountRange(row, e) == e-row }
	lo, step := row+1, 1
	for {
		hi := min(lo+step, m.size)
		if hi == lo || !full(hi) {
			return lo + sort.Search(hi-lo, func(i int) bool { return !full(lo + i + 1) })
		}
		lo = hi
		step *= 2
	}
}

// Complement returns a mask of the same size with every bit flipped.
func (m *Mask) Complement() *Mask {
	return &Mask{rb: roaring.Flip(m.rb, 0, uint64(m.size)), size: m.size}
}

// And returns the intersection of m and other. The result is as long as the
// longer operand.
func (m *Mask) And(other *Mask) *Mask {
	return &Mask{rb: roaring.And(m.rb, other.rb), size: max(m.size, other.size)}
}

// Or returns the union of m and other.
func (m *Mask) Or(other *Mask) *Mask {
	return &Mask{rb: roaring.Or(m.rb, other.rb), size: max(m.size, other.size)}
}

// Clone returns a deep copy.
func (m *Mask) Clone() *Mask {
	return &Mask{rb: m.rb.Clone(), size: m.size}
}

// Optimize converts containers to run encoding where that is smaller.
// Masks built by Append benefit; masks built by Extend already use runs.
func (m *Mask) Optimize() {
	m.rb.RunOptimize()
}

// MemoryUsage returns the approximate number of bytes held by the mask.
func (m *Mask) MemoryUsage() int {
	return int(m.rb.GetSizeInBytes()) + 16 //nolint:gosec
}

// Equal reports whether both masks have the same size and bits.
func (m *Mask) Equal(other *Mask) bool {
	return m.size == other.size && m.rb.Equals(other.rb)
}

// MarshalBinary encodes the mask as its size followed by the portable
// roaring serialization.
func (m *Mask) MarshalBinary() ([]byte, error) {
	m.rb.RunOptimize()
	body, err := m.rb.ToBytes()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(body))
	binary.LittleEndian.PutUint64(out, uint64(m.size)) //nolint:gosec
	copy(out[8:], body)
	return out, nil
}

// UnmarshalBinary decodes data produced by MarshalBinary.
func (m *Mask) UnmarshalBinary(data []byte) error {
	if len(data) < 8 {
		return ErrInvalidEncoding
	}
	size := binary.LittleEndian.Uint64(data)
	if size > MaxSize {
		return ErrInvalidEncoding
	}
	rb := roaring.New()
	if _, err := rb.FromBuffer(append([]byte(nil), data[8:]...)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	if !rb.IsEmpty() && uint64(rb.Maximum()) >= size {
		return ErrInvalidEncoding
	}
	m.rb = rb
	m.size = int(size)
	return nil
}

// String renders the mask as runs, e.g. "[1x101 0x3898 1x2]".
func (m *Mask) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	pos := 0
	for first, last := range m.Runs(0, m.size) {
		if first > pos {
			writeRun(&sb, pos, '0', first-pos)
		}
		writeRun(&sb, first, '1', last-first)
		pos = last
	}
	if m.size > pos {
		writeRun(&sb, pos, '0', m.size-pos)
	}
	sb.WriteByte(']')
	return sb.String()
}

func writeRun(sb *strings.Builder, pos int, bit byte, n int) {
	if pos > 0 {
		sb.WriteByte(' ')
	}
	sb.WriteByte(bit)
	fmt.Fprintf(sb, "x%d", n)
}

// Iterator walks the selected rows of a mask in ascending order.
type Iterator struct {
	it roaring.IntPeekable
}

// Seek advances to the first selected row at or after row.
func (it *Iterator) Seek(row int) {
	if row <= 0 {
		return
	}
	if row > MaxSize {
		row = MaxSize
	}
	it.it.AdvanceIfNeeded(uint32(row)) //nolint:gosec
}

// HasNext reports whether another selected row exists.
func (it *Iterator) HasNext() bool { return it.it.HasNext() }

// Peek returns the next selected row without consuming it.
func (it *Iterator) Peek() int { return int(it.it.PeekNext()) }

// Next returns the next selected row.
func (it *Iterator) Next() int { return int(it.it.Next()) }
