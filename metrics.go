package dframe

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like
// Prometheus; see observability.PrometheusCollector.
//
// Methods may be called concurrently from pool workers.
type MetricsCollector interface {
	// RecordSeal is called after each page write. bytes is the encoded
	// page size.
	RecordSeal(bytes int, err error)

	// RecordLoad is called after each page read.
	RecordLoad(bytes int, err error)

	// RecordScan is called after each ReadRows or WriteColumns call.
	// op is "read_rows" or "write_columns", rows is the number of rows visited.
	RecordScan(op string, rows int, duration time.Duration, err error)

	// RecordResize is called after each structural change.
	RecordResize(op string, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordSeal(int, error)                        {}
func (NoopMetricsCollector) RecordLoad(int, error)                        {}
func (NoopMetricsCollector) RecordScan(string, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordResize(string, time.Duration, error)    {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	SealCount      atomic.Int64
	SealErrors     atomic.Int64
	SealBytes      atomic.Int64
	LoadCount      atomic.Int64
	LoadErrors     atomic.Int64
	LoadBytes      atomic.Int64
	ScanCount      atomic.Int64
	ScanErrors     atomic.Int64
	ScanRows       atomic.Int64
	ScanTotalNanos atomic.Int64
	ResizeCount    atomic.Int64
	ResizeErrors   atomic.Int64
}

// RecordSeal implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSeal(bytes int, err error) {
	b.SealCount.Add(1)
	if err != nil {
		b.SealErrors.Add(1)
		return
	}
	b.SealBytes.Add(int64(bytes))
}

// RecordLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoad(bytes int, err error) {
	b.LoadCount.Add(1)
	if err != nil {
		b.LoadErrors.Add(1)
		return
	}
	b.LoadBytes.Add(int64(bytes))
}

// RecordScan implements MetricsCollector.
func (b *BasicMetricsCollector) RecordScan(_ string, rows int, duration time.Duration, err error) {
	b.ScanCount.Add(1)
	b.ScanRows.Add(int64(rows))
	b.ScanTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.ScanErrors.Add(1)
	}
}

// RecordResize implements MetricsCollector.
func (b *BasicMetricsCollector) RecordResize(_ string, _ time.Duration, err error) {
	b.ResizeCount.Add(1)
	if err != nil {
		b.ResizeErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		SealCount:    b.SealCount.Load(),
		SealErrors:   b.SealErrors.Load(),
		SealBytes:    b.SealBytes.Load(),
		LoadCount:    b.LoadCount.Load(),
		LoadErrors:   b.LoadErrors.Load(),
		LoadBytes:    b.LoadBytes.Load(),
		ScanCount:    b.ScanCount.Load(),
		ScanErrors:   b.ScanErrors.Load(),
		ScanRows:     b.ScanRows.Load(),
		ScanAvgNanos: b.getAvgScanNanos(),
		ResizeCount:  b.ResizeCount.Load(),
		ResizeErrors: b.ResizeErrors.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgScanNanos() int64 {
	count := b.ScanCount.Load()
	if count == 0 {
		return 0
	}
	return b.ScanTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	SealCount    int64
	SealErrors   int64
	SealBytes    int64
	LoadCount    int64
	LoadErrors   int64
	LoadBytes    int64
	ScanCount    int64
	ScanErrors   int64
	ScanRows     int64
	ScanAvgNanos int64
	ResizeCount  int64
	ResizeErrors int64
}
