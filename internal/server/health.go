// Package server implements health check handlers.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jittakal/ringlog/pkg/ringlog"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// StatusSource is the part of the flush coordinator health checks read.
type StatusSource interface {
	Running() bool
	Stats() ringlog.Stats
}

// Ensure implementation satisfies interface at compile time.
var _ HealthChecker = (*LoggerHealthChecker)(nil)

// LoggerHealthChecker reports the logger ready while its flush worker runs.
type LoggerHealthChecker struct {
	source StatusSource
}

// NewLoggerHealthChecker creates a health checker for source.
func NewLoggerHealthChecker(source StatusSource) *LoggerHealthChecker {
	return &LoggerHealthChecker{source: source}
}

// Liveness reports whether the process is alive.
func (c *LoggerHealthChecker) Liveness() bool {
	return true
}

// Readiness reports whether the flush worker is running.
func (c *LoggerHealthChecker) Readiness(ctx context.Context) bool {
	return c.source.Running()
}

// IsHealthy reports whether the flush worker is running.
func (c *LoggerHealthChecker) IsHealthy() bool {
	return c.source.Running()
}

// GetStatus returns per-check details for the readiness response.
func (c *LoggerHealthChecker) GetStatus() map[string]string {
	stats := c.source.Stats()

	worker := "stopped"
	if c.source.Running() {
		worker = "running"
	}

	return map[string]string{
		"worker":        worker,
		"load_factor":   fmt.Sprintf("%d%%", stats.LoadFactor),
		"capacity":      humanize.IBytes(uint64(stats.Capacity)),
		"rejected":      strconv.FormatUint(stats.Rejected, 10),
		"sink_errors":   strconv.FormatUint(stats.SinkErrors, 10),
		"dropped_bytes": humanize.IBytes(stats.DroppedBytes),
	}
}

// LivenessHandler returns a handler for Kubernetes liveness probes.
// Liveness probes should only fail if the process needs to be restarted.
func LivenessHandler(checker HealthChecker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "alive"
		statusCode := http.StatusOK

		if !checker.Liveness() {
			status = "not alive"
			statusCode = http.StatusServiceUnavailable
		}

		response := HealthResponse{
			Status:    status,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)

		if err := json.NewEncoder(w).Encode(response); err != nil {
			logger.Error("failed to encode liveness response", "error", err)
		}
	}
}

// ReadinessHandler returns a handler for Kubernetes readiness probes.
// The logger is ready once its flush worker has acknowledged start.
func ReadinessHandler(checker HealthChecker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ready"
		statusCode := http.StatusOK

		if !checker.Readiness(r.Context()) {
			status = "not ready"
			statusCode = http.StatusServiceUnavailable
		}

		response := HealthResponse{
			Status:    status,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Checks:    checker.GetStatus(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)

		if err := json.NewEncoder(w).Encode(response); err != nil {
			logger.Error("failed to encode readiness response", "error", err)
		}
	}
}
