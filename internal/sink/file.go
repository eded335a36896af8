package sink

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jittakal/ringlog/internal/errors"
	"github.com/jittakal/ringlog/pkg/sink"
)

// Ensure implementation satisfies interface at compile time.
var _ sink.Sink = (*FileSink)(nil)

// FileConfig contains local filesystem configuration.
type FileConfig struct {
	Path string
	Sync bool
}

// FileSink appends drained bytes to a local file.
type FileSink struct {
	path    string
	file    *os.File
	sync    bool
	logger  *slog.Logger
	metrics recorder
	mu      sync.Mutex
}

// NewFileSink opens (creating if needed) the log file in append mode.
func NewFileSink(cfg FileConfig, logger *slog.Logger, metrics MetricsCollector) (*FileSink, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: file path is required", errors.ErrBadArgument)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, &errors.SinkError{Backend: BackendFile, Operation: "mkdir", Err: err}
	}

	f, err := os.OpenFile(cfg.Path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return nil, &errors.SinkError{Backend: BackendFile, Operation: "open", Err: err}
	}

	logger.Info("file sink created",
		"path", cfg.Path,
		"sync", cfg.Sync,
	)

	return &FileSink{
		path:    cfg.Path,
		file:    f,
		sync:    cfg.Sync,
		logger:  logger,
		metrics: recorder{backend: BackendFile, metrics: metrics},
	}, nil
}

// Append writes p at the end of the file.
func (s *FileSink) Append(ctx context.Context, p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return errors.ErrSinkClosed
	}

	start := time.Now()
	if n, err := s.file.Write(p); err != nil {
		s.metrics.failure("write")
		return &errors.SinkError{Backend: BackendFile, Operation: "write", Err: err, Delivered: n}
	}
	if s.sync {
		if err := s.file.Sync(); err != nil {
			s.metrics.failure("sync")
			return &errors.SinkError{Backend: BackendFile, Operation: "sync", Err: err}
		}
	}

	s.metrics.success(len(p), time.Since(start).Seconds())
	return nil
}

// Close syncs and closes the file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	s.logger.Info("closing file sink", "path", s.path)

	syncErr := s.file.Sync()
	closeErr := s.file.Close()
	s.file = nil

	if syncErr != nil {
		return &errors.SinkError{Backend: BackendFile, Operation: "sync", Err: syncErr}
	}
	if closeErr != nil {
		return &errors.SinkError{Backend: BackendFile, Operation: "close", Err: closeErr}
	}
	return nil
}
