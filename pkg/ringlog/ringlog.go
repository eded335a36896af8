// Package ringlog defines the producer and lifecycle surface of the
// buffered logger.
//
// Producers call Log from any goroutine, including latency sensitive
// ones: Log never blocks on I/O and never allocates. Bytes are persisted
// later by a background flush worker.
package ringlog

import "context"

// Logger accepts opaque payloads and persists them asynchronously.
type Logger interface {
	// Log copies p into the ring buffer. It returns an error when the
	// buffer does not have room for all of p; nothing is written then.
	Log(p []byte) error

	// Start opens the sink and launches the flush worker.
	Start(ctx context.Context) error

	// Stop terminates the flush worker and closes the sink. Bytes still
	// buffered at that point are discarded unless the logger was
	// configured to drain on stop.
	Stop() error
}

// Stats is a point-in-time snapshot of logger counters.
type Stats struct {
	Accepted      uint64 // payloads written to the ring
	Rejected      uint64 // payloads refused for lack of space
	AcceptedBytes uint64
	Triggers      uint64 // deferred flushes scheduled by producers
	Drains        uint64 // drain passes completed, including empty ones
	FlushedBytes  uint64 // bytes the sink accepted
	DroppedBytes  uint64 // drained bytes lost to sink failures
	SinkErrors    uint64
	LoadFactor    int
	Capacity      int
}
