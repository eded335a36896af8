package sink

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/jittakal/ringlog/internal/errors"
	"github.com/jittakal/ringlog/pkg/encoder"
	"github.com/jittakal/ringlog/pkg/sink"
)

// Ensure implementation satisfies interface at compile time.
var _ sink.Sink = (*S3Sink)(nil)

// S3Config contains AWS S3 configuration.
type S3Config struct {
	Bucket       string
	Region       string
	BasePath     string
	Endpoint     string
	UsePathStyle bool
	SSEEnabled   bool
	SSEKMSKeyID  string
}

// Validate validates S3 configuration.
func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("s3 bucket is required")
	}
	if c.Region == "" {
		return fmt.Errorf("s3 region is required")
	}
	return nil
}

// s3Uploader is the subset of manager.Uploader used by S3Sink.
type s3Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Sink uploads each drained chunk as an encoded S3 object, with
// multipart upload support and server-side encryption (SSE).
type S3Sink struct {
	uploader    s3Uploader
	bucket      string
	sseEnabled  bool
	sseKMSKeyID string
	segments    *segmenter
	logger      *slog.Logger
	metrics     recorder
}

// NewS3Sink creates a new S3 sink.
func NewS3Sink(
	ctx context.Context,
	cfg S3Config,
	router *Router,
	format encoder.Format,
	compression string,
	logger *slog.Logger,
	metrics MetricsCollector,
) (*S3Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	awsConfig, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	uploader := manager.NewUploader(s3Client, func(u *manager.Uploader) {
		u.PartSize = 10 * 1024 * 1024 // 10MB parts
		u.Concurrency = 5
	})

	return newS3Sink(uploader, cfg, router, format, compression, logger, metrics)
}

func newS3Sink(
	uploader s3Uploader,
	cfg S3Config,
	router *Router,
	format encoder.Format,
	compression string,
	logger *slog.Logger,
	metrics MetricsCollector,
) (*S3Sink, error) {
	segments, err := newSegmenter(format, compression, router)
	if err != nil {
		return nil, err
	}

	logger.Info("S3 sink created",
		"bucket", cfg.Bucket,
		"region", cfg.Region,
		"format", segments.enc.Format(),
		"compression", compression,
		"sse_enabled", cfg.SSEEnabled,
	)

	return &S3Sink{
		uploader:    uploader,
		bucket:      cfg.Bucket,
		sseEnabled:  cfg.SSEEnabled,
		sseKMSKeyID: cfg.SSEKMSKeyID,
		segments:    segments,
		logger:      logger,
		metrics:     recorder{backend: BackendS3, metrics: metrics},
	}, nil
}

// Append uploads p as the next segment object.
func (s *S3Sink) Append(ctx context.Context, p []byte) error {
	start := time.Now()

	key, body, err := s.segments.next(p, start)
	if err != nil {
		s.metrics.failure("encode")
		return &errors.SinkError{Backend: BackendS3, Operation: "encode", Err: err}
	}
	size := body.Len()

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body.Bytes()),
		ContentType: aws.String(s.segments.enc.ContentType()),
	}
	if s.sseEnabled {
		if s.sseKMSKeyID != "" {
			input.ServerSideEncryption = types.ServerSideEncryptionAwsKms
			input.SSEKMSKeyId = aws.String(s.sseKMSKeyID)
		} else {
			input.ServerSideEncryption = types.ServerSideEncryptionAes256
		}
	}

	result, err := s.uploader.Upload(ctx, input)
	if err != nil {
		s.metrics.failure("upload")
		return &errors.SinkError{Backend: BackendS3, Operation: "upload", Err: err}
	}

	duration := time.Since(start)
	s.logger.Debug("uploaded segment to S3",
		"bucket", s.bucket,
		"key", key,
		"chunk_bytes", len(p),
		"object_bytes", size,
		"location", result.Location,
		"duration_ms", duration.Milliseconds(),
	)
	s.metrics.success(size, duration.Seconds())
	return nil
}

// Close closes the S3 sink.
func (s *S3Sink) Close() error {
	s.logger.Info("closing S3 sink")
	return nil
}
