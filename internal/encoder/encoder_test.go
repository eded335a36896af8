package encoder

import (
	"bytes"
	"compress/gzip"
	"io"
	"testing"
	"time"

	"github.com/jittakal/ringlog/pkg/encoder"
)

func testChunk() encoder.Chunk {
	return encoder.Chunk{
		Sequence:  7,
		DrainedAt: time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC),
		Payload:   []byte("first line\nsecond line\npartial"),
	}
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", nil},
		{"single terminated", "a\n", []string{"a"}},
		{"single unterminated", "a", []string{"a"}},
		{"mixed", "a\nb\nc", []string{"a", "b", "c"}},
		{"blank lines", "\n\n", []string{"", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitLines([]byte(tt.input))
			if len(got) != len(tt.want) {
				t.Fatalf("splitLines() returned %d lines, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if string(got[i]) != tt.want[i] {
					t.Errorf("line %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestNewFactory(t *testing.T) {
	tests := []struct {
		name        string
		format      encoder.Format
		compression string
		wantFormat  encoder.Format
		wantErr     bool
	}{
		{"raw", encoder.FormatRaw, "none", encoder.FormatRaw, false},
		{"default raw", "", "", encoder.FormatRaw, false},
		{"parquet with snappy", encoder.FormatParquet, "snappy", encoder.FormatParquet, false},
		{"avro with gzip", encoder.FormatAvro, "gzip", encoder.FormatAvro, false},
		{"unknown", encoder.Format("csv"), "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := NewFactory(tt.format, tt.compression).CreateEncoder()
			if (err != nil) != tt.wantErr {
				t.Fatalf("CreateEncoder() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if enc.Format() != tt.wantFormat {
				t.Errorf("Format() = %v, want %v", enc.Format(), tt.wantFormat)
			}
		})
	}
}

func TestRawEncoder_Encode(t *testing.T) {
	tests := []struct {
		name        string
		compression string
		wantExt     string
	}{
		{"uncompressed", "none", ".log"},
		{"gzip", "gzip", ".log.gz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := NewRawEncoder(tt.compression)
			chunk := testChunk()

			var buf bytes.Buffer
			n, err := enc.Encode(&buf, chunk)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if n != int64(buf.Len()) {
				t.Errorf("Encode() = %d bytes, buffer holds %d", n, buf.Len())
			}
			if enc.FileExtension() != tt.wantExt {
				t.Errorf("FileExtension() = %s, want %s", enc.FileExtension(), tt.wantExt)
			}

			var r io.Reader = &buf
			if tt.compression == "gzip" {
				gz, err := gzip.NewReader(&buf)
				if err != nil {
					t.Fatalf("gzip.NewReader() error = %v", err)
				}
				r = gz
			}
			got, err := io.ReadAll(r)
			if err != nil {
				t.Fatalf("ReadAll() error = %v", err)
			}
			if !bytes.Equal(got, chunk.Payload) {
				t.Errorf("decoded = %q, want %q", got, chunk.Payload)
			}
		})
	}
}

func TestEncoders_EmptyPayload(t *testing.T) {
	avroEnc, err := NewAvroEncoder("none")
	if err != nil {
		t.Fatalf("NewAvroEncoder() error = %v", err)
	}
	encoders := []encoder.Encoder{
		NewRawEncoder("none"),
		avroEnc,
		NewParquetEncoder("snappy"),
	}

	for _, enc := range encoders {
		t.Run(string(enc.Format()), func(t *testing.T) {
			var buf bytes.Buffer
			if _, err := enc.Encode(&buf, encoder.Chunk{}); err == nil {
				t.Error("Encode() with empty payload should fail")
			}
		})
	}
}
