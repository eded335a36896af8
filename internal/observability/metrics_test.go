package observability

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/jittakal/ringlog/internal/flusher"
	"github.com/jittakal/ringlog/internal/sink"
	"github.com/jittakal/ringlog/pkg/ringlog"
)

var (
	_ flusher.MetricsCollector = (*Metrics)(nil)
	_ sink.MetricsCollector    = (*Metrics)(nil)
)

func TestNewMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	if metrics == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestMetrics_ObserveDrain(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	metrics.ObserveDrain("trigger", 4096, 3*time.Millisecond)
	metrics.ObserveDrain("trigger", 0, time.Millisecond)
	metrics.ObserveDrain("timeout", 0, time.Millisecond)

	if got := testutil.ToFloat64(metrics.Drains.WithLabelValues("trigger")); got != 2 {
		t.Errorf("drains{trigger} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(metrics.Drains.WithLabelValues("timeout")); got != 1 {
		t.Errorf("drains{timeout} = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(metrics.DrainBytes); got != 2 {
		t.Errorf("drain_bytes series = %d, want 2", got)
	}
}

func TestMetrics_IncDrainErrors(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	metrics.IncDrainErrors("timeout")
	metrics.IncDrainErrors("timeout")

	if got := testutil.ToFloat64(metrics.DrainErrors.WithLabelValues("timeout")); got != 2 {
		t.Errorf("drain_errors{timeout} = %v, want 2", got)
	}
}

func TestMetrics_SinkOperations(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	metrics.IncChunksWritten("s3", "success")
	metrics.IncChunksWritten("s3", "success")
	metrics.IncChunksWritten("s3", "error")
	metrics.ObserveChunkSize("s3", 1024*1024)
	metrics.ObserveAppendDuration("s3", 0.25)
	metrics.IncSinkErrors("s3", "upload")

	if got := testutil.ToFloat64(metrics.ChunksWritten.WithLabelValues("s3", "success")); got != 2 {
		t.Errorf("sink_chunks{s3,success} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(metrics.SinkErrors.WithLabelValues("s3", "upload")); got != 1 {
		t.Errorf("sink_errors{s3,upload} = %v, want 1", got)
	}
}

func TestMetrics_Names(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	metrics.ObserveDrain("stop", 1, time.Millisecond)
	metrics.IncSinkErrors("file", "write")

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "ringlog_") {
			t.Errorf("metric %s lacks the ringlog_ prefix", mf.GetName())
		}
	}
}

func TestRegisterStats(t *testing.T) {
	registry := prometheus.NewRegistry()

	stats := ringlog.Stats{
		Accepted:      10,
		Rejected:      2,
		AcceptedBytes: 640,
		Triggers:      1,
		FlushedBytes:  512,
		DroppedBytes:  64,
		LoadFactor:    12,
		Capacity:      1024,
	}
	RegisterStats(registry, func() ringlog.Stats { return stats })

	expected := `
# HELP ringlog_log_rejected_total Payloads rejected for insufficient capacity
# TYPE ringlog_log_rejected_total counter
ringlog_log_rejected_total 2
# HELP ringlog_buffer_load_factor_percent Ring buffer occupancy in percent
# TYPE ringlog_buffer_load_factor_percent gauge
ringlog_buffer_load_factor_percent 12
`
	err := testutil.GatherAndCompare(registry, strings.NewReader(expected),
		"ringlog_log_rejected_total", "ringlog_buffer_load_factor_percent")
	if err != nil {
		t.Error(err)
	}

	// Values are read at scrape time
	stats.Rejected = 5
	if got, err := testutil.GatherAndCount(registry); err != nil || got != 8 {
		t.Errorf("GatherAndCount() = %d, %v, want 8 series", got, err)
	}
	expected = `
# HELP ringlog_log_rejected_total Payloads rejected for insufficient capacity
# TYPE ringlog_log_rejected_total counter
ringlog_log_rejected_total 5
`
	if err := testutil.GatherAndCompare(registry, strings.NewReader(expected), "ringlog_log_rejected_total"); err != nil {
		t.Error(err)
	}
}
