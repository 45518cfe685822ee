package dframe

import (
	"log/slog"

	"github.com/hupe1980/dframe/blobstore"
	"github.com/hupe1980/dframe/executor"
	"github.com/hupe1980/dframe/internal/compress"
	"github.com/hupe1980/dframe/internal/fs"
	"github.com/hupe1980/dframe/resource"
)

// IOMode selects how disk slices write pages.
type IOMode int

const (
	// IOSync writes each page before the call that sealed it returns.
	IOSync IOMode = iota
	// IOAsync writes pages behind on the executor and prefetches the next
	// page during scans.
	IOAsync
)

func (m IOMode) String() string {
	if m == IOAsync {
		return "async"
	}
	return "sync"
}

// StorageKind tells where slices keep their rows.
type StorageKind int

const (
	StorageMemory StorageKind = iota
	StorageDisk
)

func (k StorageKind) String() string {
	if k == StorageDisk {
		return "disk"
	}
	return "memory"
}

// Compression is the codec applied to disk pages.
type Compression = compress.Type

const (
	CompressionNone = compress.None
	CompressionLZ4  = compress.LZ4
	CompressionZSTD = compress.ZSTD
)

// ParseCompression maps "none", "lz4" or "zstd" to a Compression.
func ParseCompression(s string) (Compression, error) {
	return compress.Parse(s)
}

type options struct {
	ioMode           IOMode
	alignment        Alignment
	store            blobstore.Store
	compression      Compression
	metricsCollector MetricsCollector
	logger           *Logger
	resources        *resource.Controller
	pool             *executor.Pool
	fs               fs.FileSystem
}

// Option configures frame construction.
type Option func(*options)

// WithIOMode selects synchronous or write-behind page I/O for disk frames.
// Memory frames ignore it.
func WithIOMode(mode IOMode) Option {
	return func(o *options) {
		o.ioMode = mode
	}
}

// WithAlignment sets the byte alignment of every row.
// The default is Aligned16.
func WithAlignment(a Alignment) Option {
	return func(o *options) {
		o.alignment = a
	}
}

// WithStore keeps disk pages in s instead of a local directory.
//
// Example with S3:
//
//	cfg, _ := config.LoadDefaultConfig(ctx)
//	store := s3.NewStore(awss3.NewFromConfig(cfg), "my-bucket", "frames/")
//	frame, _ := dframe.NewDiskFrame("", 10, rows, 10_000, dframe.WithStore(store))
func WithStore(s blobstore.Store) Option {
	return func(o *options) {
		o.store = s
	}
}

// WithCompression sets the page codec. Pages are stored raw when the
// codec saves less than 10%.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &dframe.BasicMetricsCollector{}
//	frame, _ := dframe.NewMemoryFrame(10, 1000, dframe.WithMetricsCollector(metrics))
//	// ... use frame ...
//	stats := metrics.GetStats()
//	fmt.Printf("Scans: %d, Avg latency: %dns\n", stats.ScanCount, stats.ScanAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithResourceController shares memory, write-behind and I/O limits
// between frames.
func WithResourceController(c *resource.Controller) Option {
	return func(o *options) {
		o.resources = c
	}
}

// WithExecutor runs scans and page I/O on p instead of executor.Default().
func WithExecutor(p *executor.Pool) Option {
	return func(o *options) {
		o.pool = p
	}
}

// WithFileSystem sets the file system of the default local page store.
func WithFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) {
		o.fs = fsys
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		ioMode:           IOSync,
		alignment:        DefaultAlignment,
		compression:      CompressionNone,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
