package benchmark_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/hupe1980/dframe"
	"github.com/hupe1980/dframe/executor"
	"github.com/hupe1980/dframe/testutil"
)

const (
	benchRows     = 100_000
	benchColumns  = 32
	benchCapacity = 10_000
)

type frameKind struct {
	name string
	open func(b *testing.B) *dframe.DataFrame
}

var kinds = []frameKind{
	{"memory", func(b *testing.B) *dframe.DataFrame {
		f, err := dframe.NewMemoryFrame(benchColumns, benchCapacity)
		if err != nil {
			b.Fatal(err)
		}
		return f
	}},
	{"disk_sync", func(b *testing.B) *dframe.DataFrame {
		f, err := dframe.NewDiskFrame(b.TempDir(), benchColumns, benchRows, benchCapacity)
		if err != nil {
			b.Fatal(err)
		}
		return f
	}},
	{"disk_async_lz4", func(b *testing.B) *dframe.DataFrame {
		f, err := dframe.NewDiskFrame(b.TempDir(), benchColumns, benchRows, benchCapacity,
			dframe.WithIOMode(dframe.IOAsync), dframe.WithCompression(dframe.CompressionLZ4))
		if err != nil {
			b.Fatal(err)
		}
		return f
	}},
}

func TestMain(m *testing.M) {
	executor.StartDefault(0)
	defer executor.StopDefault()
	m.Run()
}

// fill writes rows uniform random rows and finishes the frame.
func fill(b *testing.B, f *dframe.DataFrame, rows int) {
	b.Helper()
	rng := testutil.NewRNG(1)
	for i := range rows {
		err := f.WriteRow(func(columns []float32, docHash *int32) {
			rng.FillUniform(columns)
			*docHash = int32(i) //nolint:gosec
		})
		if err != nil {
			b.Fatal(err)
		}
	}
	if err := f.FinishWritingRows(context.Background()); err != nil {
		b.Fatal(err)
	}
}

func sum(s *float64, rows dframe.Rows) {
	for row := range rows.All() {
		for _, v := range row.Data() {
			*s += float64(v)
		}
	}
}

func BenchmarkWriteRows(b *testing.B) {
	for _, kind := range kinds {
		b.Run(kind.name, func(b *testing.B) {
			b.ReportAllocs()
			rng := testutil.NewRNG(1)
			row := make([]float32, benchColumns)
			rng.FillUniform(row)

			f := kind.open(b)
			defer f.Close(context.Background())

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				err := f.WriteRow(func(columns []float32, _ *int32) {
					copy(columns, row)
				})
				if err != nil {
					b.Fatal(err)
				}
			}
			b.StopTimer()
			b.ReportMetric(float64(f.NumberSlices()), "slices")
		})
	}
}

func BenchmarkReadRows(b *testing.B) {
	ctx := context.Background()
	for _, kind := range kinds {
		f := kind.open(b)
		fill(b, f, benchRows)

		for _, threads := range []int{1, 4, 8} {
			b.Run(fmt.Sprintf("%s/threads=%d", kind.name, threads), func(b *testing.B) {
				b.SetBytes(int64(benchRows * benchColumns * 4))
				for i := 0; i < b.N; i++ {
					if _, err := dframe.ReadRows(ctx, f, func() float64 { return 0 }, sum, dframe.WithThreads(threads)); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
		_ = f.Close(ctx)
	}
}

func BenchmarkReadRows_Masked(b *testing.B) {
	ctx := context.Background()
	f := kinds[0].open(b)
	defer f.Close(ctx)
	fill(b, f, benchRows)

	rng := testutil.NewRNG(2)
	for _, selectivity := range []float64{0.01, 0.1, 0.5} {
		mask := rng.BernoulliMask(benchRows, selectivity)
		b.Run(fmt.Sprintf("bernoulli=%.2f", selectivity), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if _, err := dframe.ReadRows(ctx, f, func() float64 { return 0 }, sum,
					dframe.WithThreads(4), dframe.WithMask(mask)); err != nil {
					b.Fatal(err)
				}
			}
		})

		runs := rng.RunMask(benchRows, int(1/selectivity))
		b.Run(fmt.Sprintf("runs=%.2f", selectivity), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if _, err := dframe.ReadRows(ctx, f, func() float64 { return 0 }, sum,
					dframe.WithThreads(4), dframe.WithMask(runs)); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkWriteColumns(b *testing.B) {
	ctx := context.Background()
	for _, kind := range kinds {
		b.Run(kind.name, func(b *testing.B) {
			f := kind.open(b)
			defer f.Close(ctx)
			fill(b, f, benchRows)

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				err := f.WriteColumns(ctx, func(row dframe.Row) {
					row.WriteColumn(0, row.At(0)+1)
				}, dframe.WithThreads(4))
				if err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkResizeColumns(b *testing.B) {
	ctx := context.Background()
	for _, kind := range kinds {
		b.Run(kind.name, func(b *testing.B) {
			f := kind.open(b)
			defer f.Close(ctx)
			fill(b, f, benchRows)

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				// Shrinking clears the dropped columns in place.
				columns := benchColumns + 8
				if i%2 == 1 {
					columns = benchColumns - 8
				}
				if err := f.ResizeColumns(ctx, 4, columns); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
