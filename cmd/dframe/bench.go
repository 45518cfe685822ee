package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"text/tabwriter"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hupe1980/dframe"
	"github.com/hupe1980/dframe/executor"
	"github.com/hupe1980/dframe/testutil"
)

var benchCmd = &cobra.Command{
	Use:     "bench",
	Short:   "Write, scan and resize a synthetic frame",
	Long:    "Fills a frame with uniform random rows, then times full scans, masked scans, in-place column writes and every resize operation.",
	PreRunE: bindFlags,
	RunE:    runBench,
}

func init() {
	setupFrameFlags(benchCmd)

	flags := benchCmd.Flags()
	flags.Int("rows", 100_000, wrapString("Number of rows to write"))
	flags.Int("columns", 32, wrapString("Number of columns per row"))
	flags.Int("capacity", 10_000, wrapString("Rows per slice"))
	flags.Int("threads", runtime.NumCPU(), wrapString("Parallel groups per scan"))
	flags.Int("extra-columns", 8, wrapString("Columns added by the reserve and resize steps"))
	flags.Float64("selectivity", 0.1, wrapString("Fraction of rows selected by the masked scan"))
	flags.Int64("seed", 42, wrapString("Seed of the random data"))
}

type benchConfig struct {
	Rows        int
	Columns     int
	Capacity    int
	Threads     int
	Extra       int
	Selectivity float64
	Seed        int64
}

func getBenchConfig() (benchConfig, error) {
	c := benchConfig{
		Rows:        viper.GetInt("rows"),
		Columns:     viper.GetInt("columns"),
		Capacity:    viper.GetInt("capacity"),
		Threads:     viper.GetInt("threads"),
		Extra:       viper.GetInt("extra-columns"),
		Selectivity: viper.GetFloat64("selectivity"),
		Seed:        viper.GetInt64("seed"),
	}
	if c.Rows < 0 || c.Columns < 1 || c.Capacity < 1 || c.Extra < 0 {
		return c, fmt.Errorf("%w: rows %d, columns %d, capacity %d, extra columns %d",
			dframe.ErrInvalidArgument, c.Rows, c.Columns, c.Capacity, c.Extra)
	}
	if c.Selectivity < 0 || c.Selectivity > 1 {
		return c, fmt.Errorf("%w: selectivity %g", dframe.ErrInvalidArgument, c.Selectivity)
	}
	return c, nil
}

type benchResult struct {
	step    string
	rows    int
	elapsed time.Duration
}

func runBench(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := getBenchConfig()
	if err != nil {
		return err
	}
	opts, err := getFrameOptions()
	if err != nil {
		return err
	}

	pool := executor.New(viper.GetInt("workers"))
	defer pool.Stop()
	metrics := &dframe.BasicMetricsCollector{}
	opts = append(opts, dframe.WithExecutor(pool), dframe.WithMetricsCollector(metrics))

	f, err := newFrame(ctx, cfg.Columns, cfg.Rows, cfg.Capacity, opts...)
	if err != nil {
		return err
	}

	results, err := bench(ctx, f, cfg)
	frameBytes := f.MemoryUsage()
	err = errors.Join(err, f.Close(ctx))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s frame, %d rows x %d columns, %d rows per slice, %d threads\n\n",
		f.StorageKind(), cfg.Rows, cfg.Columns, cfg.Capacity, cfg.Threads)
	printResults(out, results)
	fmt.Fprintln(out)
	printMemory(out, frameBytes)
	printMetrics(out, metrics.GetStats())
	return nil
}

// bench runs every step on f and stops at the first failure.
func bench(ctx context.Context, f *dframe.DataFrame, cfg benchConfig) ([]benchResult, error) {
	var results []benchResult
	step := func(name string, rows int, fn func() error) error {
		start := time.Now()
		if err := fn(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		results = append(results, benchResult{step: name, rows: rows, elapsed: time.Since(start)})
		return nil
	}
	rng := testutil.NewRNG(cfg.Seed)
	threads := dframe.WithThreads(cfg.Threads)

	mask := rng.BernoulliMask(cfg.Rows, cfg.Selectivity)
	selected := mask.Count()

	steps := []struct {
		name string
		rows int
		fn   func() error
	}{
		{"write", cfg.Rows, func() error {
			for i := range cfg.Rows {
				err := f.WriteRow(func(columns []float32, docHash *int32) {
					rng.FillUniform(columns)
					*docHash = int32(i) //nolint:gosec
				})
				if err != nil {
					return err
				}
			}
			return f.FinishWritingRows(ctx)
		}},
		{"read", cfg.Rows, func() error {
			_, err := dframe.ReadRows(ctx, f, func() float64 { return 0 }, sumRows, threads)
			return err
		}},
		{"read masked", selected, func() error {
			_, err := dframe.ReadRows(ctx, f, func() float64 { return 0 }, sumRows, threads, dframe.WithMask(mask))
			return err
		}},
		{"write columns", cfg.Rows, func() error {
			return f.WriteColumns(ctx, func(row dframe.Row) {
				row.WriteColumn(0, row.At(0)*2)
			}, threads)
		}},
		{"reserve", cfg.Rows, func() error {
			return f.Reserve(ctx, cfg.Threads, cfg.Extra)
		}},
		{"resize columns", cfg.Rows, func() error {
			return f.ResizeColumns(ctx, cfg.Threads, cfg.Columns+cfg.Extra)
		}},
		{"resize rows", cfg.Rows, func() error {
			if err := f.ResizeRows(ctx, cfg.Rows/2); err != nil {
				return err
			}
			return f.ResizeRows(ctx, cfg.Rows)
		}},
	}
	for _, s := range steps {
		if err := step(s.name, s.rows, s.fn); err != nil {
			return results, err
		}
	}
	return results, nil
}

func sumRows(sum *float64, rows dframe.Rows) {
	for row := range rows.All() {
		for _, v := range row.Data() {
			*sum += float64(v)
		}
	}
}

func printResults(out io.Writer, results []benchResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "step\trows\ttime\trows/s\t")
	for _, r := range results {
		rate := 0.0
		if r.elapsed > 0 {
			rate = float64(r.rows) / r.elapsed.Seconds()
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%.0f\t\n", r.step, r.rows, r.elapsed.Round(time.Microsecond), rate)
	}
	_ = w.Flush()
}

func printMemory(out io.Writer, frameBytes int) {
	fmt.Fprintf(out, "frame memory:   %.1f MB\n", mb(uint64(frameBytes))) //nolint:gosec
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil { //nolint:gosec
		if info, err := p.MemoryInfo(); err == nil {
			fmt.Fprintf(out, "process rss:    %.1f MB\n", mb(info.RSS))
		}
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		fmt.Fprintf(out, "system memory:  %.1f MB available of %.1f MB\n", mb(vm.Available), mb(vm.Total))
	}
}

func printMetrics(out io.Writer, s dframe.BasicMetricsStats) {
	fmt.Fprintf(out, "pages sealed:   %d (%.1f MB, %d errors)\n", s.SealCount, mb(uint64(s.SealBytes)), s.SealErrors) //nolint:gosec
	fmt.Fprintf(out, "pages loaded:   %d (%.1f MB, %d errors)\n", s.LoadCount, mb(uint64(s.LoadBytes)), s.LoadErrors) //nolint:gosec
	fmt.Fprintf(out, "scans:          %d (%d rows, avg %s)\n", s.ScanCount, s.ScanRows, time.Duration(s.ScanAvgNanos))
}

func mb(b uint64) float64 {
	return float64(b) / (1 << 20)
}
