package sink

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/jittakal/ringlog/internal/errors"
	"github.com/jittakal/ringlog/pkg/encoder"
	"github.com/jittakal/ringlog/pkg/sink"
)

// Ensure implementation satisfies interface at compile time.
var _ sink.Sink = (*GCSSink)(nil)

// GCSConfig contains Google Cloud Storage configuration.
type GCSConfig struct {
	Bucket               string
	ProjectID            string
	BasePath             string
	CredentialsFile      string
	CredentialsJSON      string
	Endpoint             string
	UseDefaultCredential bool
}

// Validate validates GCS configuration.
func (c *GCSConfig) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("gcs bucket is required")
	}
	return nil
}

// objectWriterFunc opens a writer for one object.
type objectWriterFunc func(ctx context.Context, key, contentType string) io.WriteCloser

// GCSSink uploads each drained chunk as an encoded GCS object.
type GCSSink struct {
	client    *storage.Client
	newWriter objectWriterFunc
	bucket    string
	segments  *segmenter
	logger    *slog.Logger
	metrics   recorder
}

// NewGCSSink creates a new Google Cloud Storage sink.
func NewGCSSink(
	ctx context.Context,
	cfg GCSConfig,
	router *Router,
	format encoder.Format,
	compression string,
	logger *slog.Logger,
	metrics MetricsCollector,
) (*GCSSink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var clientOpts []option.ClientOption
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(cfg.Endpoint))
	}

	switch {
	case cfg.UseDefaultCredential:
		logger.Info("using default GCP credentials")
	case cfg.CredentialsJSON != "":
		clientOpts = append(clientOpts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
		logger.Info("using GCP credentials from JSON string")
	case cfg.CredentialsFile != "":
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
		logger.Info("using GCP credentials from file", "file", cfg.CredentialsFile)
	default:
		logger.Info("no explicit credentials provided, using default GCP credentials")
	}

	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	bucket := client.Bucket(cfg.Bucket)
	newWriter := func(ctx context.Context, key, contentType string) io.WriteCloser {
		w := bucket.Object(key).NewWriter(ctx)
		w.ContentType = contentType
		return w
	}

	s, err := newGCSSink(newWriter, cfg, router, format, compression, logger, metrics)
	if err != nil {
		client.Close()
		return nil, err
	}
	s.client = client
	return s, nil
}

func newGCSSink(
	newWriter objectWriterFunc,
	cfg GCSConfig,
	router *Router,
	format encoder.Format,
	compression string,
	logger *slog.Logger,
	metrics MetricsCollector,
) (*GCSSink, error) {
	segments, err := newSegmenter(format, compression, router)
	if err != nil {
		return nil, err
	}

	logger.Info("GCS sink created",
		"bucket", cfg.Bucket,
		"project_id", cfg.ProjectID,
		"format", segments.enc.Format(),
		"compression", compression,
	)

	return &GCSSink{
		newWriter: newWriter,
		bucket:    cfg.Bucket,
		segments:  segments,
		logger:    logger,
		metrics:   recorder{backend: BackendGCS, metrics: metrics},
	}, nil
}

// Append uploads p as the next segment object.
func (s *GCSSink) Append(ctx context.Context, p []byte) error {
	start := time.Now()

	key, body, err := s.segments.next(p, start)
	if err != nil {
		s.metrics.failure("encode")
		return &errors.SinkError{Backend: BackendGCS, Operation: "encode", Err: err}
	}

	w := s.newWriter(ctx, key, s.segments.enc.ContentType())
	written, err := io.Copy(w, body)
	if err != nil {
		s.metrics.failure("upload")
		w.Close()
		return &errors.SinkError{Backend: BackendGCS, Operation: "upload", Err: err}
	}

	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		s.metrics.failure("close")
		return &errors.SinkError{Backend: BackendGCS, Operation: "close", Err: err}
	}

	duration := time.Since(start)
	s.logger.Debug("uploaded segment to GCS",
		"bucket", s.bucket,
		"object", key,
		"chunk_bytes", len(p),
		"object_bytes", written,
		"duration_ms", duration.Milliseconds(),
	)
	s.metrics.success(int(written), duration.Seconds())
	return nil
}

// Close closes the GCS client.
func (s *GCSSink) Close() error {
	s.logger.Info("closing GCS sink")
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
