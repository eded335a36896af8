package flusher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jittakal/ringlog/internal/buffer"
	"github.com/jittakal/ringlog/internal/errors"
	"github.com/jittakal/ringlog/pkg/ringlog"
	"github.com/jittakal/ringlog/pkg/sink"
)

// Ensure implementation satisfies interface at compile time.
var _ ringlog.Logger = (*Coordinator)(nil)

// MetricsCollector defines the interface for worker metrics collection.
type MetricsCollector interface {
	ObserveDrain(reason string, bytes int, duration time.Duration)
	IncDrainErrors(reason string)
}

type lifecycle int32

const (
	stateNew lifecycle = iota
	stateRunning
	stateStopped
)

// Coordinator accepts payloads from producers and owns the flush worker
// that persists them.
type Coordinator struct {
	cfg     Config
	ring    *buffer.RingBuffer
	trigger *Trigger
	opener  sink.Opener
	logger  *slog.Logger
	metrics MetricsCollector

	armed atomic.Bool
	state atomic.Int32
	wake  chan struct{}

	// Lifecycle resources, guarded by mu. The worker reads sink and
	// staging only between Start's spawn and Stop's join.
	mu      sync.Mutex
	sink    sink.Sink
	staging []byte
	stop    chan struct{}
	done    chan struct{}

	// startHook runs on the worker before it acknowledges start.
	startHook func()

	accepted      atomic.Uint64
	rejected      atomic.Uint64
	acceptedBytes atomic.Uint64
	triggers      atomic.Uint64
	drains        atomic.Uint64
	flushedBytes  atomic.Uint64
	droppedBytes  atomic.Uint64
	sinkErrors    atomic.Uint64
}

// New creates a coordinator and its ring buffer. The sink is not opened
// until Start.
func New(cfg Config, opener sink.Opener, logger *slog.Logger, metrics MetricsCollector) (*Coordinator, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opener == nil {
		return nil, fmt.Errorf("%w: sink opener is required", errors.ErrBadArgument)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	ring, err := buffer.NewRingBuffer(cfg.Capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create ring buffer: %w", err)
	}

	c := &Coordinator{
		cfg:     cfg,
		ring:    ring,
		opener:  opener,
		logger:  logger,
		metrics: metrics,
		wake:    make(chan struct{}, 1),
	}
	c.trigger = NewTrigger(c.signalWake)

	logger.Info("flush coordinator created",
		"capacity", humanize.IBytes(uint64(cfg.Capacity)),
		"threshold_percent", cfg.ThresholdPercent,
		"flush_interval", cfg.FlushInterval,
	)

	return c, nil
}

// Log copies p into the ring buffer and arms a deferred flush when the
// ring is filling up. It never blocks and never allocates.
func (c *Coordinator) Log(p []byte) error {
	if len(p) == 0 {
		return errors.ErrBadArgument
	}
	if lifecycle(c.state.Load()) == stateStopped {
		return errors.ErrStopped
	}

	err := c.ring.Write(p)
	if err != nil {
		c.rejected.Add(1)
	} else {
		c.accepted.Add(1)
		c.acceptedBytes.Add(uint64(len(p)))
	}

	load := c.ring.LoadFactor()
	if err != nil || load >= c.cfg.ThresholdPercent {
		if c.armed.CompareAndSwap(false, true) {
			c.triggers.Add(1)
			c.trigger.Schedule()
		}
	}
	return err
}

// Start opens the sink, launches the flush worker and waits for it to
// acknowledge. On failure every partially acquired resource is released
// and the coordinator may be started again.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch lifecycle(c.state.Load()) {
	case stateRunning:
		return errors.ErrAlreadyStarted
	case stateStopped:
		return errors.ErrStopped
	}

	staging := make([]byte, c.ring.Capacity())

	s, err := c.opener.Open(ctx)
	if err != nil {
		c.logger.Error("failed to open sink", "error", err)
		return &errors.StartError{Kind: errors.KindResourceUnavailable, Err: err}
	}

	c.sink = s
	c.staging = staging
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	started := make(chan struct{})

	c.trigger.Start()
	go c.run(c.stop, started, c.done)

	timer := time.NewTimer(c.cfg.StartTimeout)
	defer timer.Stop()

	var startErr *errors.StartError
	select {
	case <-started:
		c.state.Store(int32(stateRunning))
		c.logger.Info("flush worker started")
		return nil
	case <-timer.C:
		startErr = &errors.StartError{Kind: errors.KindStartTimeout}
	case <-ctx.Done():
		startErr = &errors.StartError{Kind: errors.KindCanceled, Err: ctx.Err()}
	}

	c.logger.Error("flush worker did not start", "kind", startErr.Kind, "timeout", c.cfg.StartTimeout)
	if err := c.shutdown(); err != nil {
		c.logger.Warn("failed to release sink after start failure", "error", err)
	}
	return startErr
}

// Stop flushes the deferred trigger, terminates the worker, waits for it
// to exit and closes the sink. Calling Stop again returns nil.
func (c *Coordinator) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch lifecycle(c.state.Load()) {
	case stateNew:
		return errors.ErrNotStarted
	case stateStopped:
		return nil
	}
	c.state.Store(int32(stateStopped))

	c.logger.Info("stopping flush worker", "buffered_bytes", c.ring.Len())
	if err := c.shutdown(); err != nil {
		return err
	}
	c.logger.Info("flush worker stopped")
	return nil
}

// shutdown tears down the worker and sink. Callers hold mu.
func (c *Coordinator) shutdown() error {
	c.trigger.Flush()
	close(c.stop)
	<-c.done

	var err error
	if c.sink != nil {
		if cerr := c.sink.Close(); cerr != nil {
			err = fmt.Errorf("failed to close sink: %w", cerr)
		}
	}
	c.sink = nil
	c.staging = nil
	c.stop = nil
	c.done = nil
	return err
}

// signalWake is the deferred trigger callback.
func (c *Coordinator) signalWake() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Running reports whether the flush worker is running.
func (c *Coordinator) Running() bool {
	return lifecycle(c.state.Load()) == stateRunning
}

// LoadFactor returns the ring buffer load factor.
func (c *Coordinator) LoadFactor() int {
	return c.ring.LoadFactor()
}

// Capacity returns the ring buffer capacity in bytes.
func (c *Coordinator) Capacity() int {
	return c.ring.Capacity()
}

// Stats returns a snapshot of the coordinator counters.
func (c *Coordinator) Stats() ringlog.Stats {
	return ringlog.Stats{
		Accepted:      c.accepted.Load(),
		Rejected:      c.rejected.Load(),
		AcceptedBytes: c.acceptedBytes.Load(),
		Triggers:      c.triggers.Load(),
		Drains:        c.drains.Load(),
		FlushedBytes:  c.flushedBytes.Load(),
		DroppedBytes:  c.droppedBytes.Load(),
		SinkErrors:    c.sinkErrors.Load(),
		LoadFactor:    c.ring.LoadFactor(),
		Capacity:      c.ring.Capacity(),
	}
}
