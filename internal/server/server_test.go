package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func newTestRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ringlog_test_metric_total",
		Help: "Test metric",
	})
	registry.MustRegister(counter)
	counter.Inc()
	return registry
}

func startServer(t *testing.T, cfg Config, checker HealthChecker) *Server {
	t.Helper()
	server := NewServer(cfg, checker, newTestRegistry(), discardLogger())
	if err := server.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	})
	return server
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s error = %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestServer_Endpoints(t *testing.T) {
	checker := &mockHealthChecker{liveness: true, readiness: true, healthy: true}
	server := startServer(t, Config{HealthEnabled: true, MetricsEnabled: true}, checker)

	tests := []struct {
		name     string
		url      string
		wantCode int
		wantBody string
	}{
		{name: "liveness", url: "http://" + server.HealthAddr() + "/health/live", wantCode: http.StatusOK, wantBody: "alive"},
		{name: "readiness", url: "http://" + server.HealthAddr() + "/health/ready", wantCode: http.StatusOK, wantBody: "ready"},
		{name: "metrics", url: "http://" + server.MetricsAddr() + "/metrics", wantCode: http.StatusOK, wantBody: "ringlog_test_metric_total 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := get(t, tt.url)
			if code != tt.wantCode {
				t.Errorf("status code = %d, want %d", code, tt.wantCode)
			}
			if !strings.Contains(body, tt.wantBody) {
				t.Errorf("body = %q, want it to contain %q", body, tt.wantBody)
			}
		})
	}
}

func TestServer_CustomPaths(t *testing.T) {
	checker := &mockHealthChecker{liveness: true, readiness: true}
	server := startServer(t, Config{
		HealthEnabled:  true,
		LivenessPath:   "/livez",
		ReadinessPath:  "/readyz",
		MetricsEnabled: true,
		MetricsPath:    "/prom",
	}, checker)

	if code, _ := get(t, "http://"+server.HealthAddr()+"/livez"); code != http.StatusOK {
		t.Errorf("/livez status = %d, want 200", code)
	}
	if code, _ := get(t, "http://"+server.HealthAddr()+"/readyz"); code != http.StatusOK {
		t.Errorf("/readyz status = %d, want 200", code)
	}
	if code, _ := get(t, "http://"+server.MetricsAddr()+"/prom"); code != http.StatusOK {
		t.Errorf("/prom status = %d, want 200", code)
	}
	if code, _ := get(t, "http://"+server.HealthAddr()+"/health/live"); code != http.StatusNotFound {
		t.Errorf("default path status = %d, want 404", code)
	}
}

func TestServer_DisabledEndpoints(t *testing.T) {
	server := startServer(t, Config{HealthEnabled: true}, &mockHealthChecker{liveness: true})

	if server.MetricsAddr() != "" {
		t.Errorf("MetricsAddr() = %q, want empty when metrics are disabled", server.MetricsAddr())
	}
	if server.HealthAddr() == "" {
		t.Error("HealthAddr() should be set after Start")
	}
}

func TestServer_StartPortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	server := NewServer(Config{HealthEnabled: true, HealthPort: port, MetricsEnabled: true},
		&mockHealthChecker{}, newTestRegistry(), discardLogger())
	if err := server.Start(); err == nil {
		server.Shutdown(context.Background())
		t.Fatal("Start() should fail when the port is taken")
	}
}

func TestServer_Shutdown(t *testing.T) {
	server := NewServer(Config{HealthEnabled: true, MetricsEnabled: true},
		&mockHealthChecker{liveness: true}, newTestRegistry(), discardLogger())
	if err := server.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	addr := server.HealthAddr()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	client := &http.Client{Timeout: time.Second}
	if _, err := client.Get("http://" + addr + "/health/live"); err == nil {
		t.Error("requests should fail after Shutdown")
	}
}
