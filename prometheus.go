package cmsketch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusCollector exports sketch operations as Prometheus metrics.
type PrometheusCollector struct {
	// OperationsTotal counts structural operations by op and status.
	OperationsTotal *prometheus.CounterVec
	// OperationDuration observes operation latency by op.
	OperationDuration *prometheus.HistogramVec
	// BytesTotal counts region and archive bytes moved by op.
	BytesTotal *prometheus.CounterVec
}

// NewPrometheusCollector registers the sketch metrics on reg. A nil reg
// registers on prometheus.DefaultRegisterer.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &PrometheusCollector{
		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cmsketch_operations_total",
				Help: "The total number of sketch operations",
			},
			[]string{"op", "status"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cmsketch_operation_duration_seconds",
				Help:    "The sketch operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		BytesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cmsketch_bytes_total",
				Help: "The total number of bytes attached, saved, exported or imported",
			},
			[]string{"op"},
		),
	}
}

func (p *PrometheusCollector) record(op string, bytes int64, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	p.OperationsTotal.WithLabelValues(op, status).Inc()
	p.OperationDuration.WithLabelValues(op).Observe(duration.Seconds())
	if err == nil && bytes > 0 {
		p.BytesTotal.WithLabelValues(op).Add(float64(bytes))
	}
}

// RecordAttach implements MetricsCollector.
func (p *PrometheusCollector) RecordAttach(op string, bytes int64, duration time.Duration, err error) {
	p.record(op, bytes, duration, err)
}

// RecordSave implements MetricsCollector.
func (p *PrometheusCollector) RecordSave(bytes int64, duration time.Duration, err error) {
	p.record("save", bytes, duration, err)
}

// RecordMerge implements MetricsCollector.
func (p *PrometheusCollector) RecordMerge(duration time.Duration, err error) {
	p.record("merge", 0, duration, err)
}

// RecordShrink implements MetricsCollector.
func (p *PrometheusCollector) RecordShrink(duration time.Duration, err error) {
	p.record("shrink", 0, duration, err)
}

// RecordExport implements MetricsCollector.
func (p *PrometheusCollector) RecordExport(bytes int64, duration time.Duration, err error) {
	p.record("export", bytes, duration, err)
}

// RecordImport implements MetricsCollector.
func (p *PrometheusCollector) RecordImport(bytes int64, duration time.Duration, err error) {
	p.record("import", bytes, duration, err)
}
