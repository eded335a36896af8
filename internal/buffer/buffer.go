package buffer

import (
	"github.com/jittakal/ringlog/internal/errors"
	"github.com/jittakal/ringlog/pkg/buffer"
)

const (
	// DefaultCapacity is the ring size used when none is configured.
	DefaultCapacity = 100 << 20

	// MaxCapacity is the largest ring that can be requested.
	MaxCapacity uint64 = 1 << 32
)

// Ensure implementation satisfies interface at compile time.
var _ buffer.Ring = (*RingBuffer)(nil)

// RingBuffer is a fixed-capacity circular byte store. Any number of
// goroutines may call Write concurrently; Read is single-consumer.
type RingBuffer struct {
	data []byte
	size uint64

	writeMu spinlock
	headMu  spinlock
	tailMu  spinlock

	head uint64 // guarded by headMu
	tail uint64 // guarded by tailMu
}

// NewRingBuffer allocates a ring of exactly capacity bytes.
func NewRingBuffer(capacity int) (*RingBuffer, error) {
	if capacity <= 0 {
		return nil, errors.ErrBadArgument
	}
	if uint64(capacity) > MaxCapacity {
		return nil, errors.ErrAllocation
	}
	return &RingBuffer{
		data: make([]byte, capacity),
		size: uint64(capacity),
	}, nil
}

// Write copies all of p into the ring, or nothing if there is not room.
// A zero-length write succeeds without touching the ring.
// A rejected write returns the unwrapped ErrInsufficientCapacity.
func (r *RingBuffer) Write(p []byte) error {
	n := uint64(len(p))
	if n == 0 {
		return nil
	}

	r.writeMu.lock()
	defer r.writeMu.unlock()

	head := r.loadHead()
	tail := r.loadTail()
	if n > r.size-used(head, tail, r.size) {
		return errors.ErrInsufficientCapacity
	}

	off := head % r.size
	c := copy(r.data[off:], p)
	copy(r.data, p[c:])

	r.headMu.lock()
	r.head = head + n
	r.headMu.unlock()
	return nil
}

// Read moves up to len(dst) of the oldest buffered bytes into dst and
// returns the number moved. It must not be called concurrently with
// itself.
func (r *RingBuffer) Read(dst []byte) int {
	head := r.loadHead()
	tail := r.loadTail()

	n := min(uint64(len(dst)), used(head, tail, r.size))
	if n == 0 {
		return 0
	}

	off := tail % r.size
	c := copy(dst[:n], r.data[off:])
	copy(dst[c:n], r.data)

	r.tailMu.lock()
	r.tail = tail + n
	r.tailMu.unlock()
	return int(n)
}

// LoadFactor returns floor(100 * buffered / capacity).
func (r *RingBuffer) LoadFactor() int {
	head := r.loadHead()
	tail := r.loadTail()
	return int(used(head, tail, r.size) * 100 / r.size)
}

// Len returns the number of buffered bytes.
func (r *RingBuffer) Len() int {
	head := r.loadHead()
	tail := r.loadTail()
	return int(used(head, tail, r.size))
}

// Free returns the number of bytes that can currently be written.
func (r *RingBuffer) Free() int {
	return r.Capacity() - r.Len()
}

// Capacity returns the ring size in bytes.
func (r *RingBuffer) Capacity() int {
	return int(r.size)
}

func (r *RingBuffer) loadHead() uint64 {
	r.headMu.lock()
	h := r.head
	r.headMu.unlock()
	return h
}

func (r *RingBuffer) loadTail() uint64 {
	r.tailMu.lock()
	t := r.tail
	r.tailMu.unlock()
	return t
}

// used derives the buffered byte count from a cursor snapshot. The head
// is always sampled first, so an observer racing with both a producer
// and the consumer can see a tail that has moved past its head sample.
func used(head, tail, size uint64) uint64 {
	if tail >= head {
		return 0
	}
	return min(head-tail, size)
}
