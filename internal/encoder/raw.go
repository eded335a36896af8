package encoder

import (
	"compress/gzip"
	"fmt"
	"io"

	"github.com/jittakal/ringlog/pkg/encoder"
)

// Ensure implementation satisfies interface at compile time.
var _ encoder.Encoder = (*RawEncoder)(nil)

// RawEncoder writes the chunk payload unchanged, optionally gzip compressed.
type RawEncoder struct {
	compression string
}

// NewRawEncoder creates a raw encoder.
func NewRawEncoder(compression string) *RawEncoder {
	return &RawEncoder{compression: compression}
}

// Encode writes the chunk payload to w.
func (e *RawEncoder) Encode(w io.Writer, chunk encoder.Chunk) (int64, error) {
	if len(chunk.Payload) == 0 {
		return 0, fmt.Errorf("no payload to encode")
	}

	cw := &countingWriter{w: w}
	if !isGzip(e.compression) {
		if _, err := cw.Write(chunk.Payload); err != nil {
			return cw.n, fmt.Errorf("failed to write payload: %w", err)
		}
		return cw.n, nil
	}

	gz := gzip.NewWriter(cw)
	if _, err := gz.Write(chunk.Payload); err != nil {
		gz.Close()
		return cw.n, fmt.Errorf("failed to write payload: %w", err)
	}
	if err := gz.Close(); err != nil {
		return cw.n, fmt.Errorf("failed to close gzip writer: %w", err)
	}
	return cw.n, nil
}

// Format returns the segment format.
func (e *RawEncoder) Format() encoder.Format {
	return encoder.FormatRaw
}

// FileExtension returns the segment extension.
func (e *RawEncoder) FileExtension() string {
	if isGzip(e.compression) {
		return ".log.gz"
	}
	return ".log"
}

// ContentType returns the upload content type.
func (e *RawEncoder) ContentType() string {
	if isGzip(e.compression) {
		return "application/gzip"
	}
	return "text/plain"
}
