// Package sink defines interfaces for the append-only destinations
// that drained log bytes are written to.
package sink

import "context"

// Sink receives drained chunks in drain order.
type Sink interface {
	// Append writes p to the end of the destination.
	// p is only valid for the duration of the call.
	Append(ctx context.Context, p []byte) error

	// Close flushes and releases the destination.
	Close() error
}

// Opener opens a sink. It is called once per logger start.
type Opener interface {
	Open(ctx context.Context) (Sink, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(ctx context.Context) (Sink, error)

// Open calls f(ctx).
func (f OpenerFunc) Open(ctx context.Context) (Sink, error) {
	return f(ctx)
}
