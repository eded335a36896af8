// Package buffer provides a fixed-capacity concurrent byte ring buffer.
//
// # RingBuffer
//
// RingBuffer stores opaque byte payloads in a single contiguous arena
// allocated at construction time:
//
//	ring, err := buffer.NewRingBuffer(buffer.DefaultCapacity)
//	if err != nil {
//	    return err
//	}
//
//	// Producers, from any goroutine
//	if err := ring.Write(payload); errors.Is(err, errors.ErrInsufficientCapacity) {
//	    // nothing was written
//	}
//
//	// One consumer
//	n := ring.Read(staging)
//	persist(staging[:n])
//
// Writes are all-or-nothing. Reads are partial: a read moves as many of
// the oldest bytes as fit in the destination. Payload boundaries are not
// preserved, so a reader sees one continuous byte stream.
//
// # Cursors
//
// The head (next write position) and tail (next read position) are
// monotonically increasing 64-bit byte counts. The arena offset of a
// cursor is its value modulo the capacity and the number of buffered
// bytes is head minus tail. A full ring and an empty ring are therefore
// distinct states.
//
// # Locking
//
// Three busy-wait locks sequence access:
//
//   - the write lock serializes producers against each other
//   - the head lock guards publication of the head cursor
//   - the tail lock guards publication of the tail cursor
//
// Locks are always taken in write, head, tail order. Payload copies run
// outside the head and tail critical sections, so a producer and the
// consumer copy concurrently into disjoint regions of the arena. The
// producer path never sleeps, never allocates and never performs I/O.
//
// # Load Factor
//
// LoadFactor reports floor(100 * buffered / capacity) from a cursor
// snapshot. Under concurrent activity the value is advisory; it is the
// signal the flush coordinator uses to schedule a drain.
package buffer
