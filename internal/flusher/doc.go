// Package flusher moves log bytes from producers to a sink without ever
// blocking the producers.
//
// # Coordinator
//
// Coordinator owns a ring buffer, a deferred trigger and one background
// flush worker:
//
//	c, err := flusher.New(flusher.DefaultConfig(), opener, logger, metrics)
//	if err != nil {
//	    return err
//	}
//	if err := c.Start(ctx); err != nil {
//	    return err
//	}
//	defer c.Stop()
//
//	_ = c.Log([]byte("payload\n"))
//
// Log copies the payload into the ring and, once the ring is at least
// ThresholdPercent full (or a write was refused), arms a flush. Arming
// is a single compare-and-swap on an atomic flag, so any number of
// concurrent producers crossing the threshold schedule exactly one
// deferred flush until the worker has drained and disarmed.
//
// # Worker
//
// The worker acknowledges start, then loops:
//
//	Waiting  -> wake signal   -> Draining (then disarm) -> Waiting
//	Waiting  -> FlushInterval -> Draining               -> Waiting
//	Waiting  -> stop signal   -> Terminated
//
// A drain moves up to one ring capacity of bytes into a staging buffer
// and appends them to the sink. Sink failures are logged and counted;
// the drained bytes are lost and the worker keeps running.
//
// # Deferred Trigger
//
// Producers never signal the worker directly. They enqueue the one-slot
// Trigger, whose dispatcher goroutine raises the wake signal. Stop
// flushes the trigger queue before raising the stop signal.
package flusher
