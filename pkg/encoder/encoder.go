// Package encoder defines interfaces for encoding drained chunks into
// self-describing segment objects.
package encoder

import (
	"io"
	"time"
)

// Format identifies a segment encoding.
type Format string

const (
	FormatRaw     Format = "raw"
	FormatAvro    Format = "avro"
	FormatParquet Format = "parquet"
)

// Chunk is one drain pass worth of log bytes.
type Chunk struct {
	Sequence  uint64
	DrainedAt time.Time
	Payload   []byte
}

// Encoder encodes a chunk to a specific segment format.
type Encoder interface {
	// Encode writes chunk to w and returns the number of bytes written.
	Encode(w io.Writer, chunk Chunk) (int64, error)

	// Format returns the format this encoder produces.
	Format() Format

	// FileExtension returns the segment extension (e.g., ".parquet", ".avro").
	FileExtension() string

	// ContentType returns the MIME type used for object uploads.
	ContentType() string
}
