// Package buffer defines interfaces for byte ring buffering.
//
// A ring accepts opaque byte payloads from many concurrent producers and
// hands them back, in write order, to a single consumer.
package buffer

// Ring is a fixed-capacity circular byte store.
// Write is safe for concurrent use. Read must be called from one goroutine at a time.
type Ring interface {
	// Write appends p in its entirety or not at all.
	// Returns an error if fewer than len(p) bytes are free.
	Write(p []byte) error

	// Read moves up to len(dst) of the oldest bytes into dst and
	// returns how many were moved. Zero is a valid result.
	Read(dst []byte) int

	// LoadFactor returns the percentage (0..100) of capacity in use.
	LoadFactor() int

	// Len returns the number of bytes currently buffered.
	Len() int

	// Capacity returns the fixed capacity in bytes.
	Capacity() int
}
