package testutil

import (
	"math/rand"
	"sync"

	"github.com/hupe1980/dframe/rowmask"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)), //nolint:gosec
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float32 returns, as a float32, a pseudo-random number in [0.0,1.0).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// FillUniform fills dst with random values in range [0, 1).
// Locks only once per call (preferred over calling Float32 in a loop).
func (r *RNG) FillUniform(dst []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		dst[i] = r.rand.Float32()
	}
}

// FillUniformRange fills dst with random values in range [minVal, maxVal).
func (r *RNG) FillUniformRange(dst []float32, minVal, maxVal float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	span := maxVal - minVal
	for i := range dst {
		dst[i] = minVal + r.rand.Float32()*span
	}
}

// UniformRows generates num rows of columns values in range [0, 1).
// Uses a single backing array for efficiency.
func (r *RNG) UniformRows(num, columns int) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*columns)
	rows := make([][]float32, num)
	for i := range num {
		row := data[i*columns : (i+1)*columns]
		for j := range row {
			row[j] = r.rand.Float32()
		}
		rows[i] = row
	}
	return rows
}

// RunMask builds a mask of size rows made of alternating runs whose
// lengths are uniform in [1, maxRun]. The first run is selected with
// probability one half.
func (r *RNG) RunMask(size, maxRun int) *rowmask.Mask {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := rowmask.New()
	bit := r.rand.Intn(2) == 0
	for m.Size() < size {
		n := min(1+r.rand.Intn(maxRun), size-m.Size())
		m.Extend(bit, n)
		bit = !bit
	}
	return m
}

// BernoulliMask builds a mask of size rows where each row is selected with
// probability p.
func (r *RNG) BernoulliMask(size int, p float64) *rowmask.Mask {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := rowmask.New()
	for range size {
		m.Append(r.rand.Float64() < p)
	}
	return m
}
