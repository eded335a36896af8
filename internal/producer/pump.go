package producer

import (
	"bufio"
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jittakal/ringlog/internal/errors"
)

const (
	DefaultMaxLineBytes  = 64 * 1024
	DefaultRetryInterval = 10 * time.Millisecond
	DefaultMaxRetries    = 100
)

// Target is the producer side of a logger.
type Target interface {
	Log(p []byte) error
}

// PumpConfig contains line pump settings. Zero values take defaults.
type PumpConfig struct {
	// MaxLineBytes bounds a single line, newline included.
	MaxLineBytes int
	// RetryInterval is the pause before retrying a rejected line.
	RetryInterval time.Duration
	// MaxRetries is how many times a rejected line is retried before it
	// is dropped. A negative value disables retries.
	MaxRetries int
}

func (c PumpConfig) withDefaults() PumpConfig {
	if c.MaxLineBytes <= 0 {
		c.MaxLineBytes = DefaultMaxLineBytes
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = DefaultRetryInterval
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	return c
}

// PumpStats summarizes a pump run.
type PumpStats struct {
	Lines   uint64
	Bytes   uint64
	Retries uint64
	Dropped uint64
}

// Pump copies newline-terminated lines from a reader into a Target.
type Pump struct {
	cfg    PumpConfig
	target Target
	logger *slog.Logger
}

// NewPump creates a line pump.
func NewPump(cfg PumpConfig, target Target, logger *slog.Logger) *Pump {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Pump{
		cfg:    cfg.withDefaults(),
		target: target,
		logger: logger,
	}
}

// Run logs every line read from r until EOF or ctx is done. Lines keep
// their trailing newline. A line the ring cannot hold is retried while
// the worker drains and dropped once retries run out.
func (p *Pump) Run(ctx context.Context, r io.Reader) (PumpStats, error) {
	var stats PumpStats

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, min(4096, p.cfg.MaxLineBytes)), p.cfg.MaxLineBytes)
	scanner.Split(scanLinesKeepNewline)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		retries, err := p.logLine(ctx, line)
		stats.Retries += uint64(retries)
		switch {
		case err == nil:
			stats.Lines++
			stats.Bytes += uint64(len(line))
		case stderrors.Is(err, errors.ErrInsufficientCapacity):
			stats.Dropped++
			p.logger.Warn("dropping line, ring buffer is full",
				"bytes", len(line),
				"retries", retries,
			)
		default:
			return stats, fmt.Errorf("failed to log line: %w", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("failed to read input: %w", err)
	}
	return stats, nil
}

func (p *Pump) logLine(ctx context.Context, line []byte) (int, error) {
	err := p.target.Log(line)
	retries := 0
	for stderrors.Is(err, errors.ErrInsufficientCapacity) && retries < p.cfg.MaxRetries {
		timer := time.NewTimer(p.cfg.RetryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return retries, ctx.Err()
		case <-timer.C:
		}
		retries++
		err = p.target.Log(line)
	}
	return retries, err
}

// scanLinesKeepNewline is bufio.ScanLines without stripping the line
// terminator.
func scanLinesKeepNewline(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return i + 1, data[:i+1], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
