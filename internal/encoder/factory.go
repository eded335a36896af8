package encoder

import (
	"fmt"

	"github.com/jittakal/ringlog/pkg/encoder"
)

// Factory creates encoders based on format and configuration.
type Factory struct {
	format      encoder.Format
	compression string
}

// NewFactory creates a new encoder factory.
func NewFactory(format encoder.Format, compression string) *Factory {
	return &Factory{
		format:      format,
		compression: compression,
	}
}

// CreateEncoder creates an encoder based on the configured format.
func (f *Factory) CreateEncoder() (encoder.Encoder, error) {
	switch f.format {
	case encoder.FormatRaw, "":
		return NewRawEncoder(f.compression), nil
	case encoder.FormatParquet:
		return NewParquetEncoder(f.compression), nil
	case encoder.FormatAvro:
		return NewAvroEncoder(f.compression)
	default:
		return nil, fmt.Errorf("unsupported segment format: %s", f.format)
	}
}

// SupportedFormats returns a list of supported segment formats.
func SupportedFormats() []encoder.Format {
	return []encoder.Format{
		encoder.FormatRaw,
		encoder.FormatParquet,
		encoder.FormatAvro,
	}
}

// DefaultCompression returns the default compression for a format.
func DefaultCompression(format encoder.Format) string {
	switch format {
	case encoder.FormatParquet:
		return "snappy"
	case encoder.FormatAvro:
		return "gzip"
	default:
		return "none"
	}
}
