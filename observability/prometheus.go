// Package observability exports frame metrics to Prometheus.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/dframe"
)

var _ dframe.MetricsCollector = (*PrometheusCollector)(nil)

// PrometheusCollector implements dframe.MetricsCollector.
type PrometheusCollector struct {
	pageOps     *prometheus.CounterVec
	pageBytes   *prometheus.CounterVec
	scanLatency *prometheus.HistogramVec
	scanRows    *prometheus.CounterVec
	resizes     *prometheus.HistogramVec
}

// NewPrometheusCollector creates the collector and registers its metrics
// with reg. A nil reg uses prometheus.DefaultRegisterer.
func NewPrometheusCollector(namespace string, reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &PrometheusCollector{
		pageOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "page",
			Name:      "operations_total",
			Help:      "Page seals and loads",
		}, []string{"op", "status"}),
		pageBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "page",
			Name:      "bytes_total",
			Help:      "Encoded page bytes written and read",
		}, []string{"op"}),
		scanLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "duration_seconds",
			Help:      "Duration of row scans",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"op", "status"}),
		scanRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "rows_total",
			Help:      "Rows visited by scans",
		}, []string{"op"}),
		resizes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "resize",
			Name:      "duration_seconds",
			Help:      "Duration of reserve and resize operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "status"}),
	}

	for _, col := range []prometheus.Collector{c.pageOps, c.pageBytes, c.scanLatency, c.scanRows, c.resizes} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordSeal implements dframe.MetricsCollector.
func (c *PrometheusCollector) RecordSeal(bytes int, err error) {
	c.pageOps.WithLabelValues("seal", status(err)).Inc()
	if err == nil {
		c.pageBytes.WithLabelValues("seal").Add(float64(bytes))
	}
}

// RecordLoad implements dframe.MetricsCollector.
func (c *PrometheusCollector) RecordLoad(bytes int, err error) {
	c.pageOps.WithLabelValues("load", status(err)).Inc()
	if err == nil {
		c.pageBytes.WithLabelValues("load").Add(float64(bytes))
	}
}

// RecordScan implements dframe.MetricsCollector.
func (c *PrometheusCollector) RecordScan(op string, rows int, duration time.Duration, err error) {
	c.scanLatency.WithLabelValues(op, status(err)).Observe(duration.Seconds())
	c.scanRows.WithLabelValues(op).Add(float64(rows))
}

// RecordResize implements dframe.MetricsCollector.
func (c *PrometheusCollector) RecordResize(op string, duration time.Duration, err error) {
	c.resizes.WithLabelValues(op, status(err)).Observe(duration.Seconds())
}
