package dto

import (
	"fmt"
	"time"
)

// ApplicationConfig is the root configuration structure
type ApplicationConfig struct {
	Application   ApplicationInfo     `mapstructure:"application"`
	Buffer        BufferConfig        `mapstructure:"buffer"`
	Flush         FlushConfig         `mapstructure:"flush"`
	Sink          SinkConfig          `mapstructure:"sink"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Shutdown      ShutdownConfig      `mapstructure:"shutdown"`
}

// ApplicationInfo contains application metadata
type ApplicationInfo struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// BufferConfig contains ring buffer settings
type BufferConfig struct {
	// Capacity is resolved separately by Loader.Capacity, which accepts
	// plain byte counts and humanized sizes such as "64MiB".
	Capacity         string `mapstructure:"capacity"`
	ThresholdPercent int    `mapstructure:"threshold_percent"`
}

// FlushConfig contains background worker settings
type FlushConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	StartTimeout  time.Duration `mapstructure:"start_timeout"`
	AppendTimeout time.Duration `mapstructure:"append_timeout"`
	DrainOnStop   bool          `mapstructure:"drain_on_stop"`
}

// SinkConfig contains sink backend configuration
type SinkConfig struct {
	Backend     string       `mapstructure:"backend"`
	Format      string       `mapstructure:"format"`
	Compression string       `mapstructure:"compression"`
	Instance    string       `mapstructure:"instance"`
	File        FileConfig   `mapstructure:"file"`
	S3          S3Config     `mapstructure:"s3"`
	Azure       AzureConfig  `mapstructure:"azure"`
	GCS         GCSConfig    `mapstructure:"gcs"`
	Kafka       KafkaConfig  `mapstructure:"kafka"`
	NATS        NATSConfig   `mapstructure:"nats"`
	Pebble      PebbleConfig `mapstructure:"pebble"`
}

// FileConfig contains local filesystem configuration
type FileConfig struct {
	Path string `mapstructure:"path"`
	Sync bool   `mapstructure:"sync"`
}

// S3Config contains AWS S3 configuration
type S3Config struct {
	Bucket       string `mapstructure:"bucket"`
	Region       string `mapstructure:"region"`
	BasePath     string `mapstructure:"base_path"`
	Endpoint     string `mapstructure:"endpoint"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
	SSEEnabled   bool   `mapstructure:"sse_enabled"`
	SSEKMSKeyID  string `mapstructure:"sse_kms_key_id"`
}

// AzureConfig contains Azure Blob Storage configuration
type AzureConfig struct {
	AccountName      string `mapstructure:"account_name"`
	AccountKey       string `mapstructure:"account_key"`
	ConnectionString string `mapstructure:"connection_string"`
	Container        string `mapstructure:"container"`
	Endpoint         string `mapstructure:"endpoint"`
	BasePath         string `mapstructure:"base_path"`
	BlobName         string `mapstructure:"blob_name"`
}

// GCSConfig contains Google Cloud Storage configuration
type GCSConfig struct {
	Bucket               string `mapstructure:"bucket"`
	ProjectID            string `mapstructure:"project_id"`
	BasePath             string `mapstructure:"base_path"`
	Endpoint             string `mapstructure:"endpoint"`
	CredentialsFile      string `mapstructure:"credentials_file"`
	CredentialsJSON      string `mapstructure:"credentials_json"`
	UseDefaultCredential bool   `mapstructure:"use_default_credential"`
}

// KafkaConfig contains Kafka producer configuration
type KafkaConfig struct {
	BootstrapServers      []string `mapstructure:"bootstrap_servers"`
	Topic                 string   `mapstructure:"topic"`
	ClientID              string   `mapstructure:"client_id"`
	SecurityProtocol      string   `mapstructure:"security_protocol"`
	SASLMechanism         string   `mapstructure:"sasl_mechanism"`
	SASLUsername          string   `mapstructure:"sasl_username"`
	SASLPassword          string   `mapstructure:"sasl_password"`
	AWSRegion             string   `mapstructure:"aws_region"`
	TLSInsecureSkipVerify bool     `mapstructure:"tls_insecure_skip_verify"`
	MaxMessageBytes       int      `mapstructure:"max_message_bytes"`
	RetryMax              int      `mapstructure:"retry_max"`
}

// NATSConfig contains NATS JetStream configuration
type NATSConfig struct {
	URL           string        `mapstructure:"url"`
	Subject       string        `mapstructure:"subject"`
	Stream        string        `mapstructure:"stream"`
	CreateStream  bool          `mapstructure:"create_stream"`
	ClientName    string        `mapstructure:"client_name"`
	Username      string        `mapstructure:"username"`
	Password      string        `mapstructure:"password"`
	Token         string        `mapstructure:"token"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// PebbleConfig contains embedded Pebble store configuration
type PebbleConfig struct {
	Dir    string `mapstructure:"dir"`
	Prefix string `mapstructure:"prefix"`
	Sync   bool   `mapstructure:"sync"`
}

// ObservabilityConfig contains observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Health  HealthConfig  `mapstructure:"health"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// MetricsConfig contains metrics settings
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// HealthConfig contains health check settings
type HealthConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Port          int    `mapstructure:"port"`
	LivenessPath  string `mapstructure:"liveness_path"`
	ReadinessPath string `mapstructure:"readiness_path"`
}

// ShutdownConfig contains shutdown settings
type ShutdownConfig struct {
	GracePeriod time.Duration `mapstructure:"grace_period"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.Application.Name == "" {
		return fmt.Errorf("application name is required")
	}
	if err := c.Buffer.Validate(); err != nil {
		return err
	}
	if err := c.Flush.Validate(); err != nil {
		return err
	}
	if c.Sink.Backend == "" {
		return fmt.Errorf("sink backend is required")
	}
	return nil
}

// Validate validates buffer configuration.
func (c *BufferConfig) Validate() error {
	if c.ThresholdPercent < 1 || c.ThresholdPercent > 100 {
		return fmt.Errorf("buffer threshold percent must be in 1..100, got %d", c.ThresholdPercent)
	}
	return nil
}

// Validate validates flush configuration.
func (c *FlushConfig) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("flush interval must be positive")
	}
	if c.StartTimeout <= 0 {
		return fmt.Errorf("flush start timeout must be positive")
	}
	if c.AppendTimeout <= 0 {
		return fmt.Errorf("flush append timeout must be positive")
	}
	return nil
}

// Validate validates file configuration.
func (c *FileConfig) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("file path is required")
	}
	return nil
}
