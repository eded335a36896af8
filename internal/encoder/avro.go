package encoder

import (
	"compress/gzip"
	"fmt"
	"io"
	"time"

	"github.com/jittakal/ringlog/pkg/encoder"
	"github.com/linkedin/goavro/v2"
)

// Ensure implementation satisfies interface at compile time.
var _ encoder.Encoder = (*AvroEncoder)(nil)

// AvroEncoder implements encoder.Encoder for Apache Avro Object Container
// Files with optional gzip compression of the whole container.
type AvroEncoder struct {
	codec       *goavro.Codec
	compression string
}

// NewAvroEncoder creates a new Avro encoder with specified compression.
func NewAvroEncoder(compression string) (*AvroEncoder, error) {
	codec, err := goavro.NewCodec(avroSchema())
	if err != nil {
		return nil, fmt.Errorf("failed to create avro codec: %w", err)
	}

	return &AvroEncoder{
		codec:       codec,
		compression: compression,
	}, nil
}

// avroSchema returns the Avro schema for log line records.
func avroSchema() string {
	return `{
		"type": "record",
		"name": "LogLine",
		"namespace": "io.ringlog",
		"fields": [
			{"name": "segment_sequence", "type": "long"},
			{"name": "line", "type": "long"},
			{"name": "drained_at", "type": "string"},
			{"name": "payload", "type": "bytes"}
		]
	}`
}

// Encode writes the chunk lines to w as an OCF container.
func (e *AvroEncoder) Encode(w io.Writer, chunk encoder.Chunk) (int64, error) {
	lines := splitLines(chunk.Payload)
	if len(lines) == 0 {
		return 0, fmt.Errorf("no payload to encode")
	}

	cw := &countingWriter{w: w}
	var writer io.Writer = cw
	var gzipWriter *gzip.Writer
	if isGzip(e.compression) {
		gzipWriter = gzip.NewWriter(cw)
		writer = gzipWriter
	}

	ocfWriter, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:     writer,
		Codec: e.codec,
	})
	if err != nil {
		return cw.n, fmt.Errorf("failed to create OCF writer: %w", err)
	}

	drainedAt := chunk.DrainedAt.UTC().Format(time.RFC3339Nano)
	records := make([]interface{}, len(lines))
	for i, line := range lines {
		records[i] = map[string]interface{}{
			"segment_sequence": int64(chunk.Sequence),
			"line":             int64(i),
			"drained_at":       drainedAt,
			"payload":          line,
		}
	}

	if err := ocfWriter.Append(records); err != nil {
		return cw.n, fmt.Errorf("failed to write records: %w", err)
	}

	if gzipWriter != nil {
		if err := gzipWriter.Close(); err != nil {
			return cw.n, fmt.Errorf("failed to close gzip writer: %w", err)
		}
	}

	return cw.n, nil
}

// Format returns the segment format.
func (e *AvroEncoder) Format() encoder.Format {
	return encoder.FormatAvro
}

// FileExtension returns the file extension.
func (e *AvroEncoder) FileExtension() string {
	if isGzip(e.compression) {
		return ".avro.gz"
	}
	return ".avro"
}

// ContentType returns the upload content type.
func (e *AvroEncoder) ContentType() string {
	return "application/avro"
}
