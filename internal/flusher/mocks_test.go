package flusher

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jittakal/ringlog/internal/errors"
	"github.com/jittakal/ringlog/pkg/sink"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingSink keeps every appended byte in memory.
type recordingSink struct {
	mu      sync.Mutex
	buf     bytes.Buffer
	appends int
	closed  bool
	failing bool
	partial int // bytes kept from a failing append
}

func (s *recordingSink) Append(ctx context.Context, p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		kept := min(s.partial, len(p))
		s.buf.Write(p[:kept])
		return &errors.SinkError{Backend: "recording", Operation: "append", Err: stderrors.New("sink unavailable"), Delivered: kept}
	}
	s.buf.Write(p)
	s.appends++
	return nil
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *recordingSink) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func (s *recordingSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Len()
}

// countingOpener hands out one shared recordingSink and counts
// opens and closes.
type countingOpener struct {
	sink   *recordingSink
	opens  atomic.Int64
	closes atomic.Int64
	fail   atomic.Int64 // number of opens left to fail
}

func newCountingOpener() *countingOpener {
	return &countingOpener{sink: &recordingSink{}}
}

func (o *countingOpener) Open(ctx context.Context) (sink.Sink, error) {
	if o.fail.Load() > 0 {
		o.fail.Add(-1)
		return nil, stderrors.New("permission denied")
	}
	o.opens.Add(1)
	return &closeCounter{Sink: o.sink, closes: &o.closes}, nil
}

type closeCounter struct {
	sink.Sink
	closes *atomic.Int64
}

func (c *closeCounter) Close() error {
	c.closes.Add(1)
	return c.Sink.Close()
}

// mockMetricsCollector implements MetricsCollector for testing.
type mockMetricsCollector struct {
	mu     sync.Mutex
	drains map[string]int
	bytes  map[string]int
	errs   map[string]int
}

func newMockMetricsCollector() *mockMetricsCollector {
	return &mockMetricsCollector{
		drains: make(map[string]int),
		bytes:  make(map[string]int),
		errs:   make(map[string]int),
	}
}

func (m *mockMetricsCollector) ObserveDrain(reason string, n int, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drains[reason]++
	m.bytes[reason] += n
}

func (m *mockMetricsCollector) IncDrainErrors(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[reason]++
}

func (m *mockMetricsCollector) drainCount(reason string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drains[reason]
}

func (m *mockMetricsCollector) errorCount(reason string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errs[reason]
}

// waitFor polls cond until it holds or the timeout elapses.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before timeout")
		}
		time.Sleep(time.Millisecond)
	}
}
