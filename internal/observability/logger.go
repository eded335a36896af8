package observability

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string
	Format string
	// Output is stdout, stderr or a file path.
	Output string
}

// NewLogger creates a new structured logger based on configuration.
// A file output that cannot be opened falls back to stderr.
func NewLogger(config LoggingConfig) *slog.Logger {
	output, err := openOutput(config.Output)
	if err != nil {
		logger := NewLoggerWithWriter(config, os.Stderr)
		logger.Warn("failed to open log output, using stderr",
			"output", config.Output,
			"error", err,
		)
		return logger
	}
	return NewLoggerWithWriter(config, output)
}

// NewLoggerWithWriter creates a logger writing to w.
func NewLoggerWithWriter(config LoggingConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(config.Level),
	}

	var handler slog.Handler
	switch strings.ToLower(config.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler)
}

// ParseLevel maps a level name to a slog level. Unknown names map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openOutput(output string) (io.Writer, error) {
	switch strings.ToLower(output) {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}

	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return nil, err
	}
	// Kept open for the life of the process
	return os.OpenFile(output, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
}
