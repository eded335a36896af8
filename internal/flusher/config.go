package flusher

import (
	"fmt"
	"time"

	"github.com/jittakal/ringlog/internal/buffer"
	"github.com/jittakal/ringlog/internal/errors"
)

const (
	DefaultThresholdPercent = 50
	DefaultFlushInterval    = 10 * time.Second
	DefaultStartTimeout     = 5 * time.Second
	DefaultAppendTimeout    = 30 * time.Second
)

// Config contains coordinator settings. Zero values take defaults.
type Config struct {
	// Capacity is the ring size in bytes.
	Capacity int
	// ThresholdPercent is the load factor at which producers arm a flush.
	ThresholdPercent int
	// FlushInterval bounds how long the worker waits between drains.
	FlushInterval time.Duration
	// StartTimeout bounds how long Start waits for the worker to acknowledge.
	StartTimeout time.Duration
	// AppendTimeout bounds a single sink append.
	AppendTimeout time.Duration
	// DrainOnStop performs one final drain when the worker terminates.
	DrainOnStop bool
}

// DefaultConfig returns the default coordinator configuration.
func DefaultConfig() Config {
	return Config{
		Capacity:         buffer.DefaultCapacity,
		ThresholdPercent: DefaultThresholdPercent,
		FlushInterval:    DefaultFlushInterval,
		StartTimeout:     DefaultStartTimeout,
		AppendTimeout:    DefaultAppendTimeout,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Capacity == 0 {
		c.Capacity = d.Capacity
	}
	if c.ThresholdPercent == 0 {
		c.ThresholdPercent = d.ThresholdPercent
	}
	if c.FlushInterval == 0 {
		c.FlushInterval = d.FlushInterval
	}
	if c.StartTimeout == 0 {
		c.StartTimeout = d.StartTimeout
	}
	if c.AppendTimeout == 0 {
		c.AppendTimeout = d.AppendTimeout
	}
	return c
}

// Validate validates the coordinator configuration.
func (c Config) Validate() error {
	if c.Capacity < 0 {
		return fmt.Errorf("%w: capacity must be positive, got %d", errors.ErrBadArgument, c.Capacity)
	}
	if c.ThresholdPercent < 1 || c.ThresholdPercent > 100 {
		return fmt.Errorf("%w: threshold percent must be in 1..100, got %d", errors.ErrBadArgument, c.ThresholdPercent)
	}
	if c.FlushInterval < 0 {
		return fmt.Errorf("%w: flush interval must be positive", errors.ErrBadArgument)
	}
	if c.StartTimeout < 0 {
		return fmt.Errorf("%w: start timeout must be positive", errors.ErrBadArgument)
	}
	if c.AppendTimeout < 0 {
		return fmt.Errorf("%w: append timeout must be positive", errors.ErrBadArgument)
	}
	return nil
}
