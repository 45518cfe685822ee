package rowmask

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioMask() *Mask {
	m := NewFilled(1, true)
	m.Extend(true, 100)
	m.Extend(false, 3898)
	m.Extend(true, 2)
	m.Extend(false, 997)
	m.Extend(true, 2)
	return m
}

func TestExtendAndGet(t *testing.T) {
	m := scenarioMask()
	require.Equal(t, 5000, m.Size())
	assert.Equal(t, 105, m.Count())

	assert.True(t, m.Get(0))
	assert.True(t, m.Get(100))
	assert.False(t, m.Get(101))
	assert.False(t, m.Get(3998))
	assert.True(t, m.Get(3999))
	assert.True(t, m.Get(4000))
	assert.False(t, m.Get(4001))
	assert.True(t, m.Get(4999))
	assert.False(t, m.Get(5000))
	assert.False(t, m.Get(-1))
}

func TestOneBitsRange(t *testing.T) {
	m := scenarioMask()

	tests := []struct {
		name       string
		begin, end int
		want       []int
	}{
		{"false run only", 101, 3998, nil},
		{"boundary runs", 95, 5000, []int{95, 96, 97, 98, 99, 100, 3999, 4000, 4998, 4999}},
		{"cut inside run", 3999, 4000, []int{3999}},
		{"past size", 4998, 7000, []int{4998, 4999}},
		{"empty", 10, 10, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := slices.Collect(m.OneBitsRange(tt.begin, tt.end))
			assert.Equal(t, tt.want, got)
			assert.Equal(t, len(tt.want), m.CountRange(tt.begin, tt.end))
		})
	}
}

func TestOneBitsMatchesGet(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	m := New()
	for m.Size() < 20000 {
		m.Extend(rng.Intn(2) == 0, 1+rng.Intn(300))
	}

	var want []int
	for i := range m.Size() {
		if m.Get(i) {
			want = append(want, i)
		}
	}
	assert.Equal(t, want, slices.Collect(m.OneBits()))
	assert.Equal(t, len(want), m.Count())
}

func TestAppendMergesRuns(t *testing.T) {
	m := New()
	for range 1000 {
		m.Append(true)
	}
	m.Append(false)
	m.Optimize()

	assert.Equal(t, 1001, m.Size())
	assert.Equal(t, 1000, m.Count())
	assert.Less(t, m.MemoryUsage(), 100)
}

func TestEmptyMask(t *testing.T) {
	m := New()
	assert.Zero(t, m.Size())
	assert.True(t, m.IsEmpty())
	assert.Empty(t, slices.Collect(m.OneBits()))
	assert.Zero(t, m.CountRange(0, 100))
	assert.Equal(t, "[]", m.String())
}

func TestIteratorSeek(t *testing.T) {
	m := scenarioMask()
	it := m.Iterator()
	it.Seek(101)
	require.True(t, it.HasNext())
	assert.Equal(t, 3999, it.Peek())
	assert.Equal(t, 3999, it.Next())
	assert.Equal(t, 4000, it.Next())

	it.Seek(4999)
	assert.Equal(t, 4999, it.Next())
	assert.False(t, it.HasNext())
}

func TestRuns(t *testing.T) {
	m := scenarioMask()
	assert.Equal(t, []run{{50, 101}, {3999, 4001}, {4998, 4999}}, collectRuns(m, 50, 4999))
}

type run struct{ first, last int }

func collectRuns(m *Mask, begin, end int) []run {
	var out []run
	for first, last := range m.Runs(begin, end) {
		out = append(out, run{first, last})
	}
	return out
}

// bitRuns derives the runs one row at a time.
func bitRuns(m *Mask, begin, end int) []run {
	var out []run
	for i := max(begin, 0); i < min(end, m.Size()); i++ {
		if !m.Get(i) {
			continue
		}
		if n := len(out); n > 0 && out[n-1].last == i {
			out[n-1].last++
			continue
		}
		out = append(out, run{i, i + 1})
	}
	return out
}

func TestRuns_ContainerBoundaries(t *testing.T) {
	full := NewFilled(1<<16, true)
	assert.Equal(t, []run{{0, 1 << 16}}, collectRuns(full, 0, full.Size()))

	m := NewFilled(65000, false)
	m.Extend(true, 2000)
	m.Extend(false, 100)
	m.Extend(true, 200_000)
	m.Extend(false, 10)
	assert.Equal(t, []run{{65000, 67000}, {67100, 267100}}, collectRuns(m, 0, m.Size()))
	assert.Equal(t, []run{{65535, 65537}}, collectRuns(m, 65535, 65537))
	assert.Equal(t, []run{{131000, 200000}}, collectRuns(m, 131000, 200000))
	assert.Empty(t, collectRuns(m, 67000, 67100))
}

func TestRuns_MatchesBits(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for trial := range 6 {
		m := New()
		size := 140_000
		switch trial % 3 {
		case 0: // long runs
			for bit := true; m.Size() < size; bit = !bit {
				m.Extend(bit, min(1+rng.Intn(30_000), size-m.Size()))
			}
		case 1: // dense
			for range size {
				m.Append(rng.Intn(10) != 0)
			}
		default: // sparse
			for range size {
				m.Append(rng.Intn(50) == 0)
			}
		}
		begin := rng.Intn(size / 2)
		end := begin + rng.Intn(size-begin+1)

		assert.Equal(t, bitRuns(m, 0, size), collectRuns(m, 0, size), "trial %d", trial)
		assert.Equal(t, bitRuns(m, begin, end), collectRuns(m, begin, end), "trial %d [%d, %d)", trial, begin, end)
	}
}

func TestRuns_StopEarly(t *testing.T) {
	m := FromBools(true, false, true, false, true)
	n := 0
	for range m.Runs(0, m.Size()) {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestSetAlgebra(t *testing.T) {
	train := FromBools(true, true, false, false, true)
	test := train.Complement()

	assert.Equal(t, []int{2, 3}, slices.Collect(test.OneBits()))
	assert.Equal(t, 5, test.Size())
	assert.True(t, train.And(test).IsEmpty())
	assert.Equal(t, 5, train.Or(test).Count())

	longer := NewFilled(8, true)
	and := train.And(longer)
	assert.Equal(t, 8, and.Size())
	assert.Equal(t, []int{0, 1, 4}, slices.Collect(and.OneBits()))

	clone := train.Clone()
	clone.Append(true)
	assert.Equal(t, 5, train.Size())
	assert.Equal(t, 6, clone.Size())
}

func TestMarshalBinary(t *testing.T) {
	m := scenarioMask()
	data, err := m.MarshalBinary()
	require.NoError(t, err)

	var got Mask
	require.NoError(t, got.UnmarshalBinary(data))
	assert.True(t, m.Equal(&got))

	assert.ErrorIs(t, got.UnmarshalBinary([]byte{1, 2}), ErrInvalidEncoding)

	short := append([]byte(nil), data...)
	short[0] = 10 // size below the highest set bit
	short[1] = 0
	assert.ErrorIs(t, got.UnmarshalBinary(short), ErrInvalidEncoding)
}

func TestString(t *testing.T) {
	assert.Equal(t, "[1x2 0x3 1x1]", FromBools(true, true, false, false, false, true).String())
	assert.Equal(t, "[0x4]", NewFilled(4, false).String())
}

func TestExtendPanicsPastMaxSize(t *testing.T) {
	m := NewFilled(10, false)
	assert.Panics(t, func() { m.Extend(false, MaxSize) })
}

func BenchmarkOneBitsSparse(b *testing.B) {
	m := New()
	for range 1000 {
		m.Extend(false, 10000)
		m.Extend(true, 3)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		n := 0
		for range m.OneBits() {
			n++
		}
	}
}
