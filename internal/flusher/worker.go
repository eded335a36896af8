package flusher

import (
	"context"
	"time"

	"github.com/jittakal/ringlog/internal/errors"
)

const (
	reasonTrigger = "trigger"
	reasonTimeout = "timeout"
	reasonStop    = "stop"
)

// run is the flush worker loop.
func (c *Coordinator) run(stop <-chan struct{}, started, done chan<- struct{}) {
	defer close(done)

	if c.startHook != nil {
		c.startHook()
	}
	close(started)

	timer := time.NewTimer(c.cfg.FlushInterval)
	defer timer.Stop()

	for {
		select {
		case <-stop:
			if c.cfg.DrainOnStop {
				c.drain(reasonStop)
			}
			return
		case <-c.wake:
			c.drain(reasonTrigger)
			c.armed.Store(false)
		case <-timer.C:
			c.drain(reasonTimeout)
		}
		timer.Reset(c.cfg.FlushInterval)
	}
}

// drain moves everything currently buffered, up to one ring capacity,
// into the staging buffer and appends it to the sink.
func (c *Coordinator) drain(reason string) {
	start := time.Now()
	n := c.ring.Read(c.staging)

	if n > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.AppendTimeout)
		err := c.sink.Append(ctx, c.staging[:n])
		cancel()

		if err != nil {
			// bytes a multi-part sink already shipped are flushed, not dropped
			delivered := min(max(errors.DeliveredBytes(err), 0), n)
			c.sinkErrors.Add(1)
			c.flushedBytes.Add(uint64(delivered))
			c.droppedBytes.Add(uint64(n - delivered))
			c.logger.Error("failed to append drained bytes",
				"reason", reason,
				"bytes", n,
				"delivered", delivered,
				"error", err,
			)
			if c.metrics != nil {
				c.metrics.IncDrainErrors(reason)
			}
		} else {
			c.flushedBytes.Add(uint64(n))
		}
	}
	c.drains.Add(1)

	duration := time.Since(start)
	if c.metrics != nil {
		c.metrics.ObserveDrain(reason, n, duration)
	}
	c.logger.Debug("drain completed",
		"reason", reason,
		"bytes", n,
		"duration", duration,
		"load_factor", c.ring.LoadFactor(),
	)
}
