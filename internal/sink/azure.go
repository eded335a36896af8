package sink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/streaming"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/appendblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/jittakal/ringlog/internal/errors"
	"github.com/jittakal/ringlog/pkg/sink"
)

// Ensure implementation satisfies interface at compile time.
var _ sink.Sink = (*AzureSink)(nil)

// azureMaxBlockBytes is the largest block a single AppendBlock call carries.
const azureMaxBlockBytes = 4 << 20

// AzureConfig contains Azure Blob Storage configuration.
type AzureConfig struct {
	AccountName      string
	AccountKey       string
	ConnectionString string
	Container        string
	Endpoint         string
	BasePath         string
	BlobName         string
}

// Validate validates Azure configuration.
func (c *AzureConfig) Validate() error {
	if c.ConnectionString == "" && c.AccountName == "" {
		return fmt.Errorf("azure account name or connection string is required")
	}
	if c.Container == "" {
		return fmt.Errorf("azure container is required")
	}
	return nil
}

func (c *AzureConfig) connectionString() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	if c.Endpoint != "" {
		return fmt.Sprintf("DefaultEndpointsProtocol=https;AccountName=%s;AccountKey=%s;BlobEndpoint=%s",
			c.AccountName, c.AccountKey, c.Endpoint)
	}
	return fmt.Sprintf("DefaultEndpointsProtocol=https;AccountName=%s;AccountKey=%s;EndpointSuffix=core.windows.net",
		c.AccountName, c.AccountKey)
}

// appendBlobClient is the subset of appendblob.Client used by AzureSink.
type appendBlobClient interface {
	Create(ctx context.Context, o *appendblob.CreateOptions) (appendblob.CreateResponse, error)
	AppendBlock(ctx context.Context, body io.ReadSeekCloser, o *appendblob.AppendBlockOptions) (appendblob.AppendBlockResponse, error)
}

// AzureSink appends drained bytes to a single Azure append blob, so the
// blob holds the drained byte stream in order.
type AzureSink struct {
	blob      appendBlobClient
	container string
	blobName  string
	logger    *slog.Logger
	metrics   recorder
}

// NewAzureSink creates the append blob if it does not exist yet and
// returns a sink appending to it.
func NewAzureSink(
	ctx context.Context,
	cfg AzureConfig,
	router *Router,
	logger *slog.Logger,
	metrics MetricsCollector,
) (*AzureSink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := azblob.NewClientFromConnectionString(cfg.connectionString(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure client: %w", err)
	}

	blobName := cfg.BlobName
	if blobName == "" {
		date := time.Now().UTC().Format("2006-01-02")
		blobName = path.Join(cfg.BasePath, "dt="+date, router.Instance()+".log")
	}

	appendClient := client.ServiceClient().
		NewContainerClient(cfg.Container).
		NewAppendBlobClient(blobName)

	return newAzureSink(ctx, appendClient, cfg.Container, blobName, logger, metrics)
}

func newAzureSink(
	ctx context.Context,
	client appendBlobClient,
	container, blobName string,
	logger *slog.Logger,
	metrics MetricsCollector,
) (*AzureSink, error) {
	rec := recorder{backend: BackendAzure, metrics: metrics}

	etag := azcore.ETagAny
	contentType := "text/plain"
	_, err := client.Create(ctx, &appendblob.CreateOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
		AccessConditions: &blob.AccessConditions{
			ModifiedAccessConditions: &blob.ModifiedAccessConditions{IfNoneMatch: &etag},
		},
	})
	if err != nil && !bloberror.HasCode(err, bloberror.BlobAlreadyExists, bloberror.ConditionNotMet) {
		rec.failure("create")
		return nil, &errors.SinkError{Backend: BackendAzure, Operation: "create", Err: err}
	}

	logger.Info("Azure sink created",
		"container", container,
		"blob", blobName,
		"existing", err != nil,
	)

	return &AzureSink{
		blob:      client,
		container: container,
		blobName:  blobName,
		logger:    logger,
		metrics:   rec,
	}, nil
}

// Append appends p to the blob, split into blocks of at most 4 MiB.
func (s *AzureSink) Append(ctx context.Context, p []byte) error {
	start := time.Now()

	for off := 0; off < len(p); off += azureMaxBlockBytes {
		end := min(off+azureMaxBlockBytes, len(p))
		body := streaming.NopCloser(bytes.NewReader(p[off:end]))
		if _, err := s.blob.AppendBlock(ctx, body, nil); err != nil {
			s.metrics.failure("append_block")
			return &errors.SinkError{
				Backend:   BackendAzure,
				Operation: "append_block",
				Err:       fmt.Errorf("block at offset %d: %w", off, err),
				Delivered: off,
			}
		}
	}

	duration := time.Since(start)
	s.logger.Debug("appended chunk to Azure blob",
		"container", s.container,
		"blob", s.blobName,
		"bytes", len(p),
		"duration_ms", duration.Milliseconds(),
	)
	s.metrics.success(len(p), duration.Seconds())
	return nil
}

// Close closes the Azure sink.
func (s *AzureSink) Close() error {
	s.logger.Info("Azure sink closed", "blob", s.blobName)
	return nil
}
