package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jittakal/ringlog/pkg/ringlog"
)

const namespace = "ringlog"

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// Flush worker metrics
	Drains        *prometheus.CounterVec
	DrainBytes    *prometheus.HistogramVec
	DrainDuration *prometheus.HistogramVec
	DrainErrors   *prometheus.CounterVec

	// Sink metrics
	ChunksWritten  *prometheus.CounterVec
	ChunkSize      *prometheus.HistogramVec
	AppendDuration *prometheus.HistogramVec
	SinkErrors     *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		// Flush worker metrics
		Drains: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "drains_total",
				Help:      "Total number of drain passes by wake-up reason",
			},
			[]string{"reason"},
		),
		DrainBytes: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "drain_bytes",
				Help:      "Bytes moved out of the ring buffer per drain",
				Buckets:   prometheus.ExponentialBuckets(1024, 4, 10), // 1KiB to 256MiB
			},
			[]string{"reason"},
		),
		DrainDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "drain_duration_seconds",
				Help:      "Duration of drain passes including the sink append",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"reason"},
		),
		DrainErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "drain_errors_total",
				Help:      "Total number of drains whose sink append failed",
			},
			[]string{"reason"},
		),

		// Sink metrics
		ChunksWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sink_chunks_total",
				Help:      "Total number of chunks handed to the sink",
			},
			[]string{"backend", "status"},
		),
		ChunkSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "sink_chunk_size_bytes",
				Help:      "Size of chunks written to the sink",
				Buckets:   prometheus.ExponentialBuckets(1024, 4, 10),
			},
			[]string{"backend"},
		),
		AppendDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "sink_append_duration_seconds",
				Help:      "Duration of sink append operations",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"backend"},
		),
		SinkErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sink_errors_total",
				Help:      "Total number of sink errors",
			},
			[]string{"backend", "operation"},
		),
	}
}

// ObserveDrain records a completed drain.
func (m *Metrics) ObserveDrain(reason string, bytes int, duration time.Duration) {
	m.Drains.WithLabelValues(reason).Inc()
	m.DrainBytes.WithLabelValues(reason).Observe(float64(bytes))
	m.DrainDuration.WithLabelValues(reason).Observe(duration.Seconds())
}

// IncDrainErrors increments the drain errors counter.
func (m *Metrics) IncDrainErrors(reason string) {
	m.DrainErrors.WithLabelValues(reason).Inc()
}

// IncChunksWritten increments chunks written counter.
func (m *Metrics) IncChunksWritten(backend string, status string) {
	m.ChunksWritten.WithLabelValues(backend, status).Inc()
}

// ObserveChunkSize observes chunk size.
func (m *Metrics) ObserveChunkSize(backend string, size float64) {
	m.ChunkSize.WithLabelValues(backend).Observe(size)
}

// ObserveAppendDuration observes sink append duration.
func (m *Metrics) ObserveAppendDuration(backend string, duration float64) {
	m.AppendDuration.WithLabelValues(backend).Observe(duration)
}

// IncSinkErrors increments sink errors counter.
func (m *Metrics) IncSinkErrors(backend string, operation string) {
	m.SinkErrors.WithLabelValues(backend, operation).Inc()
}

// RegisterStats exposes logger counters that are kept as atomics on the
// producer path. They are read at scrape time.
func RegisterStats(registry *prometheus.Registry, stats func() ringlog.Stats) {
	factory := promauto.With(registry)

	counter := func(name, help string, value func(s ringlog.Stats) uint64) {
		factory.NewCounterFunc(
			prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help},
			func() float64 { return float64(value(stats())) },
		)
	}
	gauge := func(name, help string, value func(s ringlog.Stats) int) {
		factory.NewGaugeFunc(
			prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help},
			func() float64 { return float64(value(stats())) },
		)
	}

	counter("log_accepted_total", "Payloads written to the ring buffer",
		func(s ringlog.Stats) uint64 { return s.Accepted })
	counter("log_rejected_total", "Payloads rejected for insufficient capacity",
		func(s ringlog.Stats) uint64 { return s.Rejected })
	counter("log_accepted_bytes_total", "Bytes written to the ring buffer",
		func(s ringlog.Stats) uint64 { return s.AcceptedBytes })
	counter("flush_triggers_total", "Deferred flushes scheduled by producers",
		func(s ringlog.Stats) uint64 { return s.Triggers })
	counter("flushed_bytes_total", "Bytes accepted by the sink",
		func(s ringlog.Stats) uint64 { return s.FlushedBytes })
	counter("dropped_bytes_total", "Drained bytes lost to sink failures",
		func(s ringlog.Stats) uint64 { return s.DroppedBytes })
	gauge("buffer_load_factor_percent", "Ring buffer occupancy in percent",
		func(s ringlog.Stats) int { return s.LoadFactor })
	gauge("buffer_capacity_bytes", "Ring buffer capacity",
		func(s ringlog.Stats) int { return s.Capacity })
}
