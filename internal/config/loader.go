package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/jittakal/ringlog/internal/buffer"
	"github.com/jittakal/ringlog/internal/config/dto"
)

// CapacityKey is the config key holding the ring capacity
const CapacityKey = "buffer.capacity"

// EnvPrefix prefixes environment overrides, e.g. RINGLOG_SINK_BACKEND
const EnvPrefix = "RINGLOG"

var (
	supportedBackends = []string{"file", "s3", "azure", "gcs", "kafka", "nats", "pebble"}
	supportedFormats  = []string{"raw", "avro", "parquet"}
)

// Loader handles configuration loading and validation
type Loader struct {
	v    *viper.Viper
	path string
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Loader{v: v}
}

// Load loads configuration from file and environment variables
func (l *Loader) Load(path string) (*dto.ApplicationConfig, error) {
	// Set defaults
	l.setDefaults()

	// Load from file if provided
	l.path = path
	if path != "" {
		l.v.SetConfigFile(path)
		if err := l.v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	// Expand environment variables in config values
	// Only expand if the value contains ${...} pattern
	for _, key := range l.v.AllKeys() {
		value := l.v.GetString(key)
		if strings.Contains(value, "${") {
			l.v.Set(key, os.ExpandEnv(value))
		}
	}

	// Unmarshal configuration
	var config dto.ApplicationConfig
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := l.Validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Capacity returns the ring capacity in bytes. The value may be a plain
// byte count or a humanized size ("64MiB", "1 GB"). When it is absent or
// invalid the default capacity is returned and persisted to the config
// file, so that later starts read it back.
func (l *Loader) Capacity(logger *slog.Logger) int {
	def := buffer.DefaultCapacity

	raw := strings.TrimSpace(l.v.GetString(CapacityKey))
	if raw != "" {
		n, err := ParseCapacity(raw)
		if err == nil {
			return n
		}
		logger.Warn("invalid buffer capacity, using default",
			"value", raw,
			"default", humanize.IBytes(uint64(def)),
			"error", err,
		)
	} else {
		logger.Info("buffer capacity not configured, using default",
			"default", humanize.IBytes(uint64(def)),
		)
	}

	if err := l.persistCapacity(def); err != nil {
		logger.Warn("failed to persist default buffer capacity",
			"path", l.path,
			"error", err,
		)
	}
	return def
}

// ParseCapacity parses a ring capacity.
func ParseCapacity(raw string) (int, error) {
	n, err := humanize.ParseBytes(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", raw, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("capacity must be positive")
	}
	if n > buffer.MaxCapacity {
		return 0, fmt.Errorf("capacity %s exceeds maximum %s",
			humanize.IBytes(n), humanize.IBytes(buffer.MaxCapacity))
	}
	return int(n), nil
}

// persistCapacity writes capacity into the config file. A separate viper
// instance keeps defaults and expanded values out of the file.
func (l *Loader) persistCapacity(capacity int) error {
	if l.path == "" {
		return fmt.Errorf("no config file path set")
	}

	pv := viper.New()
	pv.SetConfigType("yaml")
	pv.SetConfigFile(l.path)
	if err := pv.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	pv.Set(CapacityKey, capacity)
	if err := pv.WriteConfigAs(l.path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// setDefaults sets default configuration values
func (l *Loader) setDefaults() {
	// Application defaults
	l.v.SetDefault("application.name", "ringlog")
	l.v.SetDefault("application.version", "1.0.0")
	l.v.SetDefault("application.environment", "development")

	// Buffer defaults (capacity is resolved by Capacity)
	l.v.SetDefault("buffer.threshold_percent", 50)

	// Flush defaults
	l.v.SetDefault("flush.interval", 10*time.Second)
	l.v.SetDefault("flush.start_timeout", 5*time.Second)
	l.v.SetDefault("flush.append_timeout", 30*time.Second)
	l.v.SetDefault("flush.drain_on_stop", true)

	// Sink defaults
	l.v.SetDefault("sink.backend", "file")
	l.v.SetDefault("sink.format", "raw")
	l.v.SetDefault("sink.compression", "none")
	l.v.SetDefault("sink.file.path", "logs/ringlog.log")
	l.v.SetDefault("sink.file.sync", false)
	l.v.SetDefault("sink.s3.use_path_style", false)
	l.v.SetDefault("sink.s3.sse_enabled", true)
	l.v.SetDefault("sink.kafka.security_protocol", "PLAINTEXT")
	l.v.SetDefault("sink.kafka.max_message_bytes", 1000000)
	l.v.SetDefault("sink.kafka.retry_max", 5)
	l.v.SetDefault("sink.nats.url", "nats://127.0.0.1:4222")
	l.v.SetDefault("sink.nats.max_reconnects", 10)
	l.v.SetDefault("sink.nats.reconnect_wait", 2*time.Second)
	l.v.SetDefault("sink.nats.timeout", 5*time.Second)
	l.v.SetDefault("sink.pebble.dir", "data/ringlog")
	l.v.SetDefault("sink.pebble.prefix", "chunk/")

	// Observability defaults
	l.v.SetDefault("observability.logging.level", "info")
	l.v.SetDefault("observability.logging.format", "json")
	l.v.SetDefault("observability.logging.output", "stdout")
	l.v.SetDefault("observability.metrics.enabled", true)
	l.v.SetDefault("observability.metrics.port", 9090)
	l.v.SetDefault("observability.metrics.path", "/metrics")
	l.v.SetDefault("observability.health.enabled", true)
	l.v.SetDefault("observability.health.port", 8080)
	l.v.SetDefault("observability.health.liveness_path", "/health/live")
	l.v.SetDefault("observability.health.readiness_path", "/health/ready")

	// Shutdown defaults
	l.v.SetDefault("shutdown.grace_period", 30*time.Second)
}

// Validate validates the configuration
func (l *Loader) Validate(config *dto.ApplicationConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}

	// Sink validation
	sinkCfg := config.Sink
	switch sinkCfg.Backend {
	case "file":
		if err := sinkCfg.File.Validate(); err != nil {
			return fmt.Errorf("sink.file.path is required for file backend")
		}
	case "s3":
		if sinkCfg.S3.Bucket == "" {
			return errors.New("sink.s3.bucket is required for S3 backend")
		}
		if sinkCfg.S3.Region == "" {
			return errors.New("sink.s3.region is required for S3 backend")
		}
	case "azure":
		if sinkCfg.Azure.AccountName == "" && sinkCfg.Azure.ConnectionString == "" {
			return errors.New("sink.azure.account_name or sink.azure.connection_string is required for Azure backend")
		}
		if sinkCfg.Azure.Container == "" {
			return errors.New("sink.azure.container is required for Azure backend")
		}
	case "gcs":
		if sinkCfg.GCS.Bucket == "" {
			return errors.New("sink.gcs.bucket is required for GCS backend")
		}
	case "kafka":
		if len(sinkCfg.Kafka.BootstrapServers) == 0 {
			return errors.New("sink.kafka.bootstrap_servers is required for Kafka backend")
		}
		if sinkCfg.Kafka.Topic == "" {
			return errors.New("sink.kafka.topic is required for Kafka backend")
		}
	case "nats":
		if sinkCfg.NATS.Subject == "" {
			return errors.New("sink.nats.subject is required for NATS backend")
		}
	case "pebble":
		if sinkCfg.Pebble.Dir == "" {
			return errors.New("sink.pebble.dir is required for Pebble backend")
		}
	default:
		return fmt.Errorf("unsupported sink backend: %s (supported: %s)",
			sinkCfg.Backend, strings.Join(supportedBackends, ", "))
	}

	// Format validation
	if !slices.Contains(supportedFormats, sinkCfg.Format) {
		return fmt.Errorf("unsupported sink format: %s", sinkCfg.Format)
	}

	// Port validation
	obs := config.Observability
	if obs.Metrics.Enabled && (obs.Metrics.Port < 1 || obs.Metrics.Port > 65535) {
		return fmt.Errorf("invalid metrics port: %d", obs.Metrics.Port)
	}
	if obs.Health.Enabled && (obs.Health.Port < 1 || obs.Health.Port > 65535) {
		return fmt.Errorf("invalid health port: %d", obs.Health.Port)
	}

	return nil
}
