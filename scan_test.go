package dframe

import (
	"context"
	"slices"
	"strconv"
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/dframe/rowmask"
	"github.com/hupe1980/dframe/testutil"
)

// threadReader records the rows one group visited.
type threadReader struct {
	rows       []int
	values     map[int][]float32
	duplicates bool
}

func newThreadReader() threadReader {
	return threadReader{values: make(map[int][]float32)}
}

func (r *threadReader) visit(rows Rows) {
	for row := range rows.All() {
		if _, ok := r.values[row.Index()]; ok {
			r.duplicates = true
		}
		r.rows = append(r.rows, row.Index())
		r.values[row.Index()] = slices.Clone(row.Data())
	}
}

func TestReadRows_Balanced(t *testing.T) {
	ctx := context.Background()
	for _, factory := range factories {
		for _, rows := range []int{4000, 5000, 6000} {
			t.Run(factory.name+"/"+strconv.Itoa(rows), func(t *testing.T) {
				data := testutil.NewRNG(int64(rows)).UniformRows(rows, 10)
				f := factory.make(t, 10, rows, 1000)
				writeRows(t, f, data)
				require.NoError(t, f.FinishWritingRows(ctx))

				readers, err := ReadRows(ctx, f, newThreadReader, (*threadReader).visit, WithThreads(3))
				require.NoError(t, err)
				require.Len(t, readers, 3)

				read := make([]bool, rows)
				for _, r := range readers {
					assert.False(t, r.duplicates)
					assert.LessOrEqual(t, len(r.rows), 2000)
					assert.True(t, slices.IsSorted(r.rows))
					for _, i := range r.rows {
						require.False(t, read[i], "row %d read twice", i)
						read[i] = true
						require.Equal(t, data[i], r.values[i])
					}
				}
				assert.NotContains(t, read, false)
			})
		}
	}
}

func TestReadRows_ConcurrentCallers(t *testing.T) {
	ctx := context.Background()
	const rows = 3000
	for _, factory := range factories {
		t.Run(factory.name, func(t *testing.T) {
			data := testutil.NewRNG(9).UniformRows(rows, 4)
			f := factory.make(t, 4, rows, 250)
			writeRows(t, f, data)
			require.NoError(t, f.FinishWritingRows(ctx))

			results := make([][]readRow, 4)
			var wg sync.WaitGroup
			for i := range results {
				wg.Add(1)
				go func() {
					defer wg.Done()
					groups, err := ReadRows(ctx, f,
						func() []readRow { return nil },
						func(out *[]readRow, rs Rows) {
							for row := range rs.All() {
								*out = append(*out, readRow{row.Index(), row.DocHash(), slices.Clone(row.Data())})
							}
						}, WithThreads(3))
					assert.NoError(t, err)
					results[i] = slices.Concat(groups...)
				}()
			}
			wg.Wait()

			for _, got := range results {
				require.Len(t, got, rows)
				for i, r := range got {
					require.Equal(t, i, r.index)
					require.Equal(t, data[i], r.values)
				}
			}
		})
	}
}

func TestReadRows_StatesInRowOrder(t *testing.T) {
	ctx := context.Background()
	f, err := NewMemoryFrame(2, 100)
	require.NoError(t, err)
	writeRows(t, f, testutil.NewRNG(1).UniformRows(1000, 2))
	require.NoError(t, f.FinishWritingRows(ctx))

	firsts, err := ReadRows(ctx, f,
		func() int { return -1 },
		func(first *int, rows Rows) {
			if *first < 0 {
				*first = rows.First()
			}
		},
		WithThreads(4))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 300, 500, 800}, firsts)
}

// scenarioMask selects {0..100, 3999, 4000, 4998, 4999} of 5000 rows.
func scenarioMask() *rowmask.Mask {
	m := rowmask.NewFilled(1, true)
	m.Extend(true, 100)
	m.Extend(false, 3898)
	m.Extend(true, 2)
	m.Extend(false, 997)
	m.Extend(true, 2)
	return m
}

func TestReadRows_MaskScenario(t *testing.T) {
	ctx := context.Background()
	want := []int{95, 96, 97, 98, 99, 100, 3999, 4000, 4998, 4999}

	for _, factory := range factories {
		t.Run(factory.name, func(t *testing.T) {
			f := factory.make(t, 3, 5000, 1000)
			writeRows(t, f, testutil.NewRNG(1).UniformRows(5000, 3))
			require.NoError(t, f.FinishWritingRows(ctx))

			mask := scenarioMask()
			require.Equal(t, 5000, mask.Size())

			for threads := 1; threads <= 4; threads++ {
				readers, err := ReadRows(ctx, f, newThreadReader, (*threadReader).visit,
					WithThreads(threads), WithRange(95, 5000), WithMask(mask))
				require.NoError(t, err)

				var got []int
				for _, r := range readers {
					got = append(got, r.rows...)
				}
				slices.Sort(got)
				assert.Equal(t, want, got, "threads %d", threads)
			}

			readers, err := ReadRows(ctx, f, newThreadReader, (*threadReader).visit,
				WithThreads(3), WithRange(101, 3998), WithMask(mask))
			require.NoError(t, err)
			assert.Empty(t, readers)
		})
	}
}

func TestReadRows_RandomMasks(t *testing.T) {
	ctx := context.Background()
	rng := testutil.NewRNG(11)

	for _, factory := range factories {
		t.Run(factory.name, func(t *testing.T) {
			const rows = 3000
			f := factory.make(t, 2, rows, 250)
			writeRows(t, f, rng.UniformRows(rows, 2))
			require.NoError(t, f.FinishWritingRows(ctx))

			for trial := range 12 {
				mask := rng.RunMask(rows, 1+rng.Intn(400))
				begin := rng.Intn(rows)
				end := begin + rng.Intn(rows-begin+1)
				threads := 1 + trial%5

				readers, err := ReadRows(ctx, f, newThreadReader, (*threadReader).visit,
					WithThreads(threads), WithRange(begin, end), WithMask(mask))
				require.NoError(t, err)
				assert.LessOrEqual(t, len(readers), threads)

				var got []int
				for _, r := range readers {
					assert.False(t, r.duplicates)
					got = append(got, r.rows...)
				}
				slices.Sort(got)
				assert.Equal(t, slices.Collect(mask.OneBitsRange(begin, end)), got)
			}
		})
	}
}

func TestReadRows_EdgeCases(t *testing.T) {
	ctx := context.Background()
	f, err := NewMemoryFrame(2, 10)
	require.NoError(t, err)
	writeRows(t, f, testutil.NewRNG(1).UniformRows(35, 2))

	_, err = ReadRows(ctx, f, newThreadReader, (*threadReader).visit)
	assert.ErrorIs(t, err, ErrNotFinished)
	assert.ErrorIs(t, f.WriteColumns(ctx, func(Row) {}), ErrNotFinished)
	require.NoError(t, f.FinishWritingRows(ctx))

	t.Run("empty range", func(t *testing.T) {
		readers, err := ReadRows(ctx, f, newThreadReader, (*threadReader).visit, WithRange(20, 20))
		require.NoError(t, err)
		assert.Empty(t, readers)

		readers, err = ReadRows(ctx, f, newThreadReader, (*threadReader).visit, WithRange(30, 10))
		require.NoError(t, err)
		assert.Empty(t, readers)
	})

	t.Run("end clamped", func(t *testing.T) {
		assert.Len(t, readAll(t, f, WithRange(30, 1000)), 5)
	})

	t.Run("zero threads", func(t *testing.T) {
		readers, err := ReadRows(ctx, f, newThreadReader, (*threadReader).visit, WithThreads(0))
		require.NoError(t, err)
		require.Len(t, readers, 1)
		assert.Len(t, readers[0].rows, 35)
	})

	t.Run("mask selects nothing", func(t *testing.T) {
		readers, err := ReadRows(ctx, f, newThreadReader, (*threadReader).visit,
			WithThreads(3), WithMask(rowmask.NewFilled(35, false)))
		require.NoError(t, err)
		assert.Empty(t, readers)
	})

	t.Run("short mask", func(t *testing.T) {
		mask := rowmask.FromBools(false, true, true)
		got := readAll(t, f, WithMask(mask))
		require.Len(t, got, 2)
		assert.Equal(t, 1, got[0].index)
		assert.Equal(t, 2, got[1].index)
	})

	t.Run("mask too long", func(t *testing.T) {
		_, err := ReadRows(ctx, f, newThreadReader, (*threadReader).visit,
			WithMask(rowmask.NewFilled(36, true)))
		assert.ErrorIs(t, err, ErrMaskTooLong)
	})
}

func TestReadRows_Alignment(t *testing.T) {
	ctx := context.Background()
	for _, factory := range factories {
		for _, alignment := range []Alignment{Aligned8, Aligned16, Aligned32, Aligned64} {
			t.Run(factory.name+"/"+strconv.Itoa(int(alignment)), func(t *testing.T) {
				f := factory.make(t, 5, 2500, 1000, WithAlignment(alignment))
				writeRows(t, f, testutil.NewRNG(1).UniformRows(2500, 5))
				require.NoError(t, f.FinishWritingRows(ctx))

				misaligned := 0
				require.NoError(t, f.ReadRows(ctx, func(rows Rows) {
					for row := range rows.All() {
						if !alignment.IsAligned(unsafe.Pointer(&row.Data()[0])) {
							misaligned++
						}
					}
				}))
				assert.Zero(t, misaligned)
			})
		}
	}
}

func TestReadRows_AsyncPrefetchOverManySlices(t *testing.T) {
	ctx := context.Background()
	data := testutil.NewRNG(2).UniformRows(4000, 3)
	f, err := NewDiskFrame(t.TempDir(), 3, 4000, 100, WithIOMode(IOAsync), WithCompression(CompressionZSTD))
	require.NoError(t, err)
	defer f.Close(ctx)

	writeRows(t, f, data)
	require.NoError(t, f.FinishWritingRows(ctx))

	for _, threads := range []int{1, 2, 7} {
		readers, err := ReadRows(ctx, f, newThreadReader, (*threadReader).visit, WithThreads(threads))
		require.NoError(t, err)
		total := 0
		for _, r := range readers {
			total += len(r.rows)
			for _, i := range r.rows {
				require.Equal(t, data[i], r.values[i])
			}
		}
		assert.Equal(t, 4000, total)
	}
}

func TestWriteColumns_Scoped(t *testing.T) {
	ctx := context.Background()
	const rows, begin, end = 5000, 1500, 3700

	for _, factory := range factories {
		t.Run(factory.name, func(t *testing.T) {
			data := testutil.NewRNG(7).UniformRows(rows, 4)
			f := factory.make(t, 4, rows, 1000)
			writeRows(t, f, data)
			require.NoError(t, f.FinishWritingRows(ctx))

			require.NoError(t, f.WriteColumns(ctx, func(row Row) {
				row.WriteColumn(0, row.At(0)+1)
			}, WithThreads(3), WithRange(begin, end)))

			got := readAll(t, f)
			require.Len(t, got, rows)
			for i, r := range got {
				want := slices.Clone(data[i])
				if i >= begin && i < end {
					want[0] = float32(float64(want[0]) + 1)
				}
				require.Equal(t, want, r.values, "row %d", i)
			}
		})
	}
}

func TestWriteColumns_Mask(t *testing.T) {
	ctx := context.Background()
	for _, factory := range factories {
		t.Run(factory.name, func(t *testing.T) {
			f := factory.make(t, 2, 5000, 1000)
			writeRows(t, f, make([][]float32, 5000))
			require.NoError(t, f.FinishWritingRows(ctx))

			require.NoError(t, f.WriteColumns(ctx, func(row Row) {
				row.WriteColumn(1, float64(row.Index()))
				row.WriteDocHash(-1)
			}, WithThreads(2), WithMask(scenarioMask())))

			var changed []int
			for _, r := range readAll(t, f) {
				if r.docHash == -1 {
					changed = append(changed, r.index)
					assert.Equal(t, float32(r.index), r.values[1])
				} else {
					assert.Zero(t, r.values[1])
				}
			}
			assert.Equal(t, slices.Collect(scenarioMask().OneBits()), changed)
		})
	}
}

func TestRow_Accessors(t *testing.T) {
	ctx := context.Background()
	f, err := NewMemoryFrame(3, 10)
	require.NoError(t, err)
	require.NoError(t, f.AppendRow([]float64{1.5, -2, 3}, 42))
	require.NoError(t, f.FinishWritingRows(ctx))

	require.NoError(t, f.ReadRows(ctx, func(rows Rows) {
		require.Equal(t, 1, rows.Len())
		assert.Equal(t, 0, rows.First())
		row := rows.Row(0)

		assert.Equal(t, 0, row.Index())
		assert.Equal(t, int32(42), row.DocHash())
		assert.Equal(t, 3, row.NumberColumns())
		assert.Equal(t, -2.0, row.At(1))
		assert.Equal(t, []float32{1.5, -2, 3}, row.Data())

		dst := make([]float64, 2)
		assert.Equal(t, 2, row.CopyTo(dst))
		assert.Equal(t, []float64{1.5, -2}, dst)

		assert.Panics(t, func() { rows.Row(1) })
		assert.Panics(t, func() { row.At(3) })
	}))
}
