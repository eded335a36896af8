// Package server implements HTTP server for health checks and metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthChecker interface for checking component health.
type HealthChecker interface {
	Liveness() bool
	Readiness(ctx context.Context) bool
	IsHealthy() bool
	GetStatus() map[string]string
}

// Config contains HTTP server configuration. A zero port picks a free one.
type Config struct {
	HealthEnabled  bool
	HealthPort     int
	LivenessPath   string
	ReadinessPath  string
	MetricsEnabled bool
	MetricsPort    int
	MetricsPath    string
}

func (c Config) withDefaults() Config {
	if c.LivenessPath == "" {
		c.LivenessPath = "/health/live"
	}
	if c.ReadinessPath == "" {
		c.ReadinessPath = "/health/ready"
	}
	if c.MetricsPath == "" {
		c.MetricsPath = "/metrics"
	}
	return c
}

// Server represents the HTTP server for health and metrics.
type Server struct {
	healthServer  *http.Server
	metricsServer *http.Server
	listeners     map[*http.Server]net.Listener
	logger        *slog.Logger
}

// NewServer creates a new HTTP server. Disabled endpoints are not served.
func NewServer(
	cfg Config,
	healthChecker HealthChecker,
	registry *prometheus.Registry,
	logger *slog.Logger,
) *Server {
	cfg = cfg.withDefaults()
	s := &Server{
		listeners: make(map[*http.Server]net.Listener),
		logger:    logger,
	}

	// Health server
	if cfg.HealthEnabled {
		healthMux := http.NewServeMux()
		healthMux.HandleFunc(cfg.LivenessPath, LivenessHandler(healthChecker, logger))
		healthMux.HandleFunc(cfg.ReadinessPath, ReadinessHandler(healthChecker, logger))

		s.healthServer = &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.HealthPort),
			Handler:      healthMux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		}
	}

	// Metrics server
	if cfg.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.MetricsPath, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

		s.metricsServer = &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.MetricsPort),
			Handler:      metricsMux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		}
	}

	return s
}

// Start binds the enabled servers and serves them in the background.
func (s *Server) Start() error {
	for _, srv := range s.servers() {
		ln, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			s.closeListeners()
			return fmt.Errorf("failed to listen on %s: %w", srv.Addr, err)
		}
		s.listeners[srv] = ln
	}

	for srv, ln := range s.listeners {
		go func() {
			s.logger.Info("starting HTTP server", "addr", ln.Addr().String())
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("HTTP server failed", "addr", ln.Addr().String(), "error", err)
			}
		}()
	}

	return nil
}

// HealthAddr returns the bound health address, or "" before Start.
func (s *Server) HealthAddr() string {
	return s.addr(s.healthServer)
}

// MetricsAddr returns the bound metrics address, or "" before Start.
func (s *Server) MetricsAddr() string {
	return s.addr(s.metricsServer)
}

// Shutdown gracefully shuts down both servers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP servers")

	servers := s.servers()
	errChan := make(chan error, len(servers))

	for _, srv := range servers {
		go func() {
			errChan <- srv.Shutdown(ctx)
		}()
	}

	var lastErr error
	for range servers {
		if err := <-errChan; err != nil {
			s.logger.Error("error shutting down server", "error", err)
			lastErr = err
		}
	}

	return lastErr
}

func (s *Server) servers() []*http.Server {
	var servers []*http.Server
	if s.healthServer != nil {
		servers = append(servers, s.healthServer)
	}
	if s.metricsServer != nil {
		servers = append(servers, s.metricsServer)
	}
	return servers
}

func (s *Server) addr(srv *http.Server) string {
	if ln, ok := s.listeners[srv]; ok && srv != nil {
		return ln.Addr().String()
	}
	return ""
}

func (s *Server) closeListeners() {
	for srv, ln := range s.listeners {
		ln.Close()
		delete(s.listeners, srv)
	}
}
