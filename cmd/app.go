package main

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jittakal/ringlog/internal/config"
	"github.com/jittakal/ringlog/internal/config/dto"
	"github.com/jittakal/ringlog/internal/flusher"
	"github.com/jittakal/ringlog/internal/kafka"
	"github.com/jittakal/ringlog/internal/observability"
	"github.com/jittakal/ringlog/internal/server"
	"github.com/jittakal/ringlog/internal/sink"
	"github.com/jittakal/ringlog/pkg/encoder"
)

type cleanup struct {
	name string
	fn   func() error
}

// application holds the components wired from configuration.
type application struct {
	cfg         *dto.ApplicationConfig
	logger      *slog.Logger
	registry    *prometheus.Registry
	metrics     *observability.Metrics
	coordinator *flusher.Coordinator
	cleanups    []cleanup
}

// bootstrap loads configuration and wires logger, metrics, sink factory
// and flush coordinator. The coordinator is not started.
func bootstrap(configPath string) (*application, error) {
	loader := config.NewLoader()
	cfg, err := loader.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := observability.NewLogger(loggingConfig(cfg))
	logger.Info("configuration loaded",
		"config", configPath,
		"version", version,
		"environment", cfg.Application.Environment,
		"backend", cfg.Sink.Backend,
	)

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	factory, err := sink.NewFactory(sinkConfig(cfg), logger, metrics)
	if err != nil {
		return nil, err
	}

	capacity := loader.Capacity(logger)
	coordinator, err := flusher.New(flusherConfig(cfg, capacity), factory, logger, metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create flush coordinator: %w", err)
	}
	observability.RegisterStats(registry, coordinator.Stats)

	logger.Info("logger wired",
		"capacity", humanize.IBytes(uint64(capacity)),
		"threshold_percent", cfg.Buffer.ThresholdPercent,
		"flush_interval", cfg.Flush.Interval,
	)

	return &application{
		cfg:         cfg,
		logger:      logger,
		registry:    registry,
		metrics:     metrics,
		coordinator: coordinator,
	}, nil
}

func (a *application) addCleanup(name string, fn func() error) {
	a.cleanups = append(a.cleanups, cleanup{name: name, fn: fn})
	a.logger.Debug("registered cleanup", "component", name)
}

// close runs the registered cleanups in reverse order.
func (a *application) close() error {
	var errs []error
	for _, c := range slices.Backward(a.cleanups) {
		if err := c.fn(); err != nil {
			a.logger.Error("cleanup failed", "component", c.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
		}
	}
	a.cleanups = nil
	return errors.Join(errs...)
}

func loggingConfig(cfg *dto.ApplicationConfig) observability.LoggingConfig {
	return observability.LoggingConfig{
		Level:  cfg.Observability.Logging.Level,
		Format: cfg.Observability.Logging.Format,
		Output: cfg.Observability.Logging.Output,
	}
}

func flusherConfig(cfg *dto.ApplicationConfig, capacity int) flusher.Config {
	return flusher.Config{
		Capacity:         capacity,
		ThresholdPercent: cfg.Buffer.ThresholdPercent,
		FlushInterval:    cfg.Flush.Interval,
		StartTimeout:     cfg.Flush.StartTimeout,
		AppendTimeout:    cfg.Flush.AppendTimeout,
		DrainOnStop:      cfg.Flush.DrainOnStop,
	}
}

func serverConfig(cfg *dto.ApplicationConfig) server.Config {
	return server.Config{
		HealthEnabled:  cfg.Observability.Health.Enabled,
		HealthPort:     cfg.Observability.Health.Port,
		LivenessPath:   cfg.Observability.Health.LivenessPath,
		ReadinessPath:  cfg.Observability.Health.ReadinessPath,
		MetricsEnabled: cfg.Observability.Metrics.Enabled,
		MetricsPort:    cfg.Observability.Metrics.Port,
		MetricsPath:    cfg.Observability.Metrics.Path,
	}
}

func sinkConfig(cfg *dto.ApplicationConfig) sink.Config {
	s := cfg.Sink
	return sink.Config{
		Backend:     s.Backend,
		Format:      encoder.Format(s.Format),
		Compression: s.Compression,
		Instance:    s.Instance,
		File: sink.FileConfig{
			Path: s.File.Path,
			Sync: s.File.Sync,
		},
		S3: sink.S3Config{
			Bucket:       s.S3.Bucket,
			Region:       s.S3.Region,
			BasePath:     s.S3.BasePath,
			Endpoint:     s.S3.Endpoint,
			UsePathStyle: s.S3.UsePathStyle,
			SSEEnabled:   s.S3.SSEEnabled,
			SSEKMSKeyID:  s.S3.SSEKMSKeyID,
		},
		Azure: sink.AzureConfig{
			AccountName:      s.Azure.AccountName,
			AccountKey:       s.Azure.AccountKey,
			ConnectionString: s.Azure.ConnectionString,
			Container:        s.Azure.Container,
			Endpoint:         s.Azure.Endpoint,
			BasePath:         s.Azure.BasePath,
			BlobName:         s.Azure.BlobName,
		},
		GCS: sink.GCSConfig{
			Bucket:               s.GCS.Bucket,
			ProjectID:            s.GCS.ProjectID,
			BasePath:             s.GCS.BasePath,
			CredentialsFile:      s.GCS.CredentialsFile,
			CredentialsJSON:      s.GCS.CredentialsJSON,
			Endpoint:             s.GCS.Endpoint,
			UseDefaultCredential: s.GCS.UseDefaultCredential,
		},
		Kafka: kafka.ProducerConfig{
			BootstrapServers:      s.Kafka.BootstrapServers,
			Topic:                 s.Kafka.Topic,
			ClientID:              s.Kafka.ClientID,
			SecurityProtocol:      s.Kafka.SecurityProtocol,
			SASLMechanism:         s.Kafka.SASLMechanism,
			SASLUsername:          s.Kafka.SASLUsername,
			SASLPassword:          s.Kafka.SASLPassword,
			AWSRegion:             s.Kafka.AWSRegion,
			TLSInsecureSkipVerify: s.Kafka.TLSInsecureSkipVerify,
			MaxMessageBytes:       s.Kafka.MaxMessageBytes,
			RetryMax:              s.Kafka.RetryMax,
		},
		NATS: sink.NATSConfig{
			URL:           s.NATS.URL,
			Subject:       s.NATS.Subject,
			Stream:        s.NATS.Stream,
			CreateStream:  s.NATS.CreateStream,
			ClientName:    s.NATS.ClientName,
			Username:      s.NATS.Username,
			Password:      s.NATS.Password,
			Token:         s.NATS.Token,
			MaxReconnects: s.NATS.MaxReconnects,
			ReconnectWait: s.NATS.ReconnectWait,
			Timeout:       s.NATS.Timeout,
		},
		Pebble: pebbleConfig(s.Pebble),
	}
}

func pebbleConfig(p dto.PebbleConfig) sink.PebbleConfig {
	return sink.PebbleConfig{
		Dir:    p.Dir,
		Prefix: p.Prefix,
		Sync:   p.Sync,
	}
}
