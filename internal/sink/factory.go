package sink

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jittakal/ringlog/internal/kafka"
	"github.com/jittakal/ringlog/pkg/encoder"
	"github.com/jittakal/ringlog/pkg/sink"
)

// Ensure implementation satisfies interface at compile time.
var _ sink.Opener = (*Factory)(nil)

// Config selects and configures one sink backend.
type Config struct {
	Backend     string
	Format      encoder.Format
	Compression string
	Instance    string
	File        FileConfig
	S3          S3Config
	Azure       AzureConfig
	GCS         GCSConfig
	Kafka       kafka.ProducerConfig
	NATS        NATSConfig
	Pebble      PebbleConfig
}

// SupportedBackends returns the backend names the factory can open.
func SupportedBackends() []string {
	return []string{BackendFile, BackendS3, BackendAzure, BackendGCS, BackendKafka, BackendNATS, BackendPebble}
}

// Validate validates the configuration of the selected backend.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendFile:
		if c.File.Path == "" {
			return fmt.Errorf("file path is required")
		}
		return nil
	case BackendS3:
		return c.S3.Validate()
	case BackendAzure:
		return c.Azure.Validate()
	case BackendGCS:
		return c.GCS.Validate()
	case BackendKafka:
		return c.Kafka.Validate()
	case BackendNATS:
		return c.NATS.Validate()
	case BackendPebble:
		return c.Pebble.Validate()
	default:
		return fmt.Errorf("unsupported sink backend: %s (supported: %v)", c.Backend, SupportedBackends())
	}
}

// Factory opens the configured sink. It is handed to the flush
// coordinator, which opens a fresh sink on every Start.
type Factory struct {
	config  Config
	router  *Router
	logger  *slog.Logger
	metrics MetricsCollector
}

// NewFactory creates a new sink factory.
func NewFactory(cfg Config, logger *slog.Logger, metrics MetricsCollector) (*Factory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sink configuration: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Factory{
		config:  cfg,
		router:  NewRouter(routerBase(cfg), cfg.Instance),
		logger:  logger,
		metrics: metrics,
	}, nil
}

// Open creates the sink for the configured backend.
func (f *Factory) Open(ctx context.Context) (sink.Sink, error) {
	cfg := f.config
	logger := f.logger.With("backend", cfg.Backend)

	switch cfg.Backend {
	case BackendFile:
		return opened(NewFileSink(cfg.File, logger, f.metrics))
	case BackendS3:
		return opened(NewS3Sink(ctx, cfg.S3, f.router, cfg.Format, cfg.Compression, logger, f.metrics))
	case BackendAzure:
		return opened(NewAzureSink(ctx, cfg.Azure, f.router, logger, f.metrics))
	case BackendGCS:
		return opened(NewGCSSink(ctx, cfg.GCS, f.router, cfg.Format, cfg.Compression, logger, f.metrics))
	case BackendKafka:
		return opened(NewKafkaSink(cfg.Kafka, f.router, logger, f.metrics))
	case BackendNATS:
		return opened(NewNATSSink(ctx, cfg.NATS, f.router, logger, f.metrics))
	case BackendPebble:
		return opened(NewPebbleSink(cfg.Pebble, logger, f.metrics))
	default:
		return nil, fmt.Errorf("unsupported sink backend: %s", cfg.Backend)
	}
}

// Router returns the router shared by segment-writing sinks.
func (f *Factory) Router() *Router {
	return f.router
}

// opened drops typed nil sinks so failed opens return a nil interface.
func opened[S sink.Sink](s S, err error) (sink.Sink, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}

func routerBase(cfg Config) string {
	switch cfg.Backend {
	case BackendS3:
		return cfg.S3.BasePath
	case BackendGCS:
		return cfg.GCS.BasePath
	case BackendAzure:
		return cfg.Azure.BasePath
	default:
		return ""
	}
}
