package dframe

import (
	"fmt"
	"iter"

	"github.com/hupe1980/dframe/internal/slice"
)

// Row is a borrowed view of one row. It is valid only inside the callback
// that received it.
type Row struct {
	values  []float32
	columns int
	index   int
	docHash *int32
}

// Index returns the global row index.
func (r Row) Index() int { return r.index }

// DocHash returns the document hash of the row.
func (r Row) DocHash() int32 { return *r.docHash }

// NumberColumns returns the number of columns.
func (r Row) NumberColumns() int { return r.columns }

// At returns column i.
func (r Row) At(i int) float64 { return float64(r.values[:r.columns][i]) }

// Data returns the columns in place. The first element is aligned to the
// frame alignment.
func (r Row) Data() []float32 { return r.values[:r.columns:r.columns] }

// CopyTo copies the columns into dst and returns the number copied.
func (r Row) CopyTo(dst []float64) int {
	n := min(len(dst), r.columns)
	for i, v := range r.values[:n] {
		dst[i] = float64(v)
	}
	return n
}

// CopyTo32 copies the columns into dst and returns the number copied.
func (r Row) CopyTo32(dst []float32) int {
	return copy(dst, r.values[:r.columns])
}

// WriteColumn sets column i. Only changes made inside WriteColumns are
// persisted for disk frames.
func (r Row) WriteColumn(i int, v float64) { r.values[:r.columns][i] = float32(v) }

// WriteDocHash replaces the document hash.
func (r Row) WriteDocHash(h int32) { *r.docHash = h }

// Rows is a run of consecutive rows of one slice.
type Rows struct {
	buf     *slice.Buffer
	columns int
	base    int // global index of the first buffer row
	first   int // buffer offset of the run
	n       int
}

// Len returns the number of rows in the run.
func (rs Rows) Len() int { return rs.n }

// First returns the global index of the first row.
func (rs Rows) First() int { return rs.base + rs.first }

// Row returns the i-th row of the run.
func (rs Rows) Row(i int) Row {
	if i < 0 || i >= rs.n {
		panic(fmt.Sprintf("dframe: row %d out of range [0, %d)", i, rs.n))
	}
	j := rs.first + i
	return Row{
		values:  rs.buf.Row(j),
		columns: rs.columns,
		index:   rs.base + j,
		docHash: &rs.buf.DocHashes[j],
	}
}

// All yields the rows in ascending index order.
func (rs Rows) All() iter.Seq[Row] {
	return func(yield func(Row) bool) {
		for i := range rs.n {
			if !yield(rs.Row(i)) {
				return
			}
		}
	}
}
