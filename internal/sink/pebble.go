package sink

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/jittakal/ringlog/internal/errors"
	"github.com/jittakal/ringlog/pkg/sink"
)

// Ensure implementation satisfies interface at compile time.
var _ sink.Sink = (*PebbleSink)(nil)

// DefaultPebblePrefix is the key prefix chunks are stored under.
const DefaultPebblePrefix = "chunk/"

// PebbleConfig contains embedded Pebble store configuration.
type PebbleConfig struct {
	Dir    string
	Prefix string
	Sync   bool
}

// Validate validates Pebble configuration.
func (c *PebbleConfig) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("pebble dir is required")
	}
	return nil
}

func (c *PebbleConfig) prefix() []byte {
	if c.Prefix == "" {
		return []byte(DefaultPebblePrefix)
	}
	return []byte(c.Prefix)
}

// PebbleSink stores each drained chunk under prefix + big-endian sequence,
// so iteration order is drain order. Sequences continue across restarts.
type PebbleSink struct {
	db      *pebble.DB
	prefix  []byte
	write   *pebble.WriteOptions
	logger  *slog.Logger
	metrics recorder

	mu  sync.Mutex
	seq uint64
	key []byte
}

// NewPebbleSink opens (creating if needed) the Pebble database.
func NewPebbleSink(cfg PebbleConfig, logger *slog.Logger, metrics MetricsCollector) (*PebbleSink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := pebble.Open(cfg.Dir, &pebble.Options{})
	if err != nil {
		return nil, &errors.SinkError{Backend: BackendPebble, Operation: "open", Err: err}
	}

	prefix := cfg.prefix()
	last, err := lastSequence(db, prefix)
	if err != nil {
		db.Close()
		return nil, &errors.SinkError{Backend: BackendPebble, Operation: "recover", Err: err}
	}

	write := pebble.NoSync
	if cfg.Sync {
		write = pebble.Sync
	}

	logger.Info("pebble sink created",
		"dir", cfg.Dir,
		"prefix", string(prefix),
		"sync", cfg.Sync,
		"next_sequence", last+1,
	)

	return &PebbleSink{
		db:      db,
		prefix:  prefix,
		write:   write,
		logger:  logger,
		metrics: recorder{backend: BackendPebble, metrics: metrics},
		seq:     last,
		key:     make([]byte, len(prefix)+8),
	}, nil
}

// Append stores p as the next chunk.
func (s *PebbleSink) Append(ctx context.Context, p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return errors.ErrSinkClosed
	}

	start := time.Now()
	copy(s.key, s.prefix)
	binary.BigEndian.PutUint64(s.key[len(s.prefix):], s.seq+1)

	if err := s.db.Set(s.key, p, s.write); err != nil {
		s.metrics.failure("set")
		return &errors.SinkError{Backend: BackendPebble, Operation: "set", Err: err}
	}
	s.seq++

	s.metrics.success(len(p), time.Since(start).Seconds())
	return nil
}

// Sequence returns the sequence of the last stored chunk.
func (s *PebbleSink) Sequence() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Close flushes and closes the database.
func (s *PebbleSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	s.logger.Info("closing pebble sink", "last_sequence", s.seq)

	flushErr := s.db.Flush()
	closeErr := s.db.Close()
	s.db = nil

	if flushErr != nil {
		return &errors.SinkError{Backend: BackendPebble, Operation: "flush", Err: flushErr}
	}
	if closeErr != nil {
		return &errors.SinkError{Backend: BackendPebble, Operation: "close", Err: closeErr}
	}
	return nil
}

// ReplayPebble opens the store read-only and calls fn for every chunk in
// sequence order. The chunk slice is only valid during the call.
func ReplayPebble(cfg PebbleConfig, fn func(seq uint64, chunk []byte) error) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	db, err := pebble.Open(cfg.Dir, &pebble.Options{ReadOnly: true})
	if err != nil {
		return &errors.SinkError{Backend: BackendPebble, Operation: "open", Err: err}
	}
	defer db.Close()

	prefix := cfg.prefix()
	it, err := db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: prefixEnd(prefix)})
	if err != nil {
		return &errors.SinkError{Backend: BackendPebble, Operation: "iterate", Err: err}
	}
	defer it.Close()

	for it.First(); it.Valid(); it.Next() {
		key := it.Key()
		if len(key) != len(prefix)+8 {
			continue
		}
		seq := binary.BigEndian.Uint64(key[len(prefix):])
		if err := fn(seq, it.Value()); err != nil {
			return err
		}
	}
	return it.Error()
}

// lastSequence returns the highest stored sequence, or 0 if none.
func lastSequence(db *pebble.DB, prefix []byte) (uint64, error) {
	it, err := db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: prefixEnd(prefix)})
	if err != nil {
		return 0, err
	}
	defer it.Close()

	for valid := it.Last(); valid; valid = it.Prev() {
		key := it.Key()
		if len(key) == len(prefix)+8 {
			return binary.BigEndian.Uint64(key[len(prefix):]), nil
		}
	}
	return 0, it.Error()
}

// prefixEnd returns the smallest key greater than every key with prefix.
func prefixEnd(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
