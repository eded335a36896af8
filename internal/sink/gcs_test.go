package sink

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/jittakal/ringlog/pkg/encoder"
)

func TestGCSConfig_Validate(t *testing.T) {
	if err := (&GCSConfig{}).Validate(); err == nil {
		t.Error("Validate() should require a bucket")
	}
	if err := (&GCSConfig{Bucket: "logs"}).Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestGCSSink_Append(t *testing.T) {
	tests := []struct {
		name        string
		format      encoder.Format
		compression string
		ext         string
		contentType string
	}{
		{name: "raw", format: encoder.FormatRaw, compression: "none", ext: ".log", contentType: "text/plain"},
		{name: "avro", format: encoder.FormatAvro, compression: "none", ext: ".avro", contentType: "application/avro"},
		{name: "parquet", format: encoder.FormatParquet, compression: "snappy", ext: ".parquet", contentType: "application/vnd.apache.parquet"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket := &fakeBucket{}
			metrics := newMockMetricsCollector()

			s, err := newGCSSink(bucket.newWriter, GCSConfig{Bucket: "logs"},
				NewRouter("app", "host-a"), tt.format, tt.compression, discardLogger(), metrics)
			if err != nil {
				t.Fatalf("newGCSSink() error = %v", err)
			}

			if err := s.Append(context.Background(), []byte("a\nb\n")); err != nil {
				t.Fatalf("Append() error = %v", err)
			}

			if len(bucket.objects) != 1 {
				t.Fatalf("objects = %d, want 1", len(bucket.objects))
			}
			obj := bucket.objects[0]
			if !obj.closed {
				t.Error("object writer should be closed to finalize the upload")
			}
			if !strings.HasSuffix(obj.key, "host-a-"+s.segments.run+"-00000000000000000001"+tt.ext) {
				t.Errorf("key = %s, want suffix %s", obj.key, tt.ext)
			}
			if obj.contentType != tt.contentType {
				t.Errorf("content type = %s, want %s", obj.contentType, tt.contentType)
			}
			if obj.buf.Len() == 0 {
				t.Error("object should not be empty")
			}
			if got := metrics.writtenCount("gcs/success"); got != 1 {
				t.Errorf("chunks written = %d, want 1", got)
			}
		})
	}
}

func TestGCSSink_CloseFailure(t *testing.T) {
	bucket := &fakeBucket{closeErr: errInjected}
	metrics := newMockMetricsCollector()

	s, err := newGCSSink(bucket.newWriter, GCSConfig{Bucket: "logs"},
		NewRouter("", "host-a"), encoder.FormatRaw, "none", discardLogger(), metrics)
	if err != nil {
		t.Fatalf("newGCSSink() error = %v", err)
	}

	if err := s.Append(context.Background(), []byte("x\n")); !stderrors.Is(err, errInjected) {
		t.Errorf("Append() error = %v, want injected failure", err)
	}
	if got := metrics.errorCount("gcs/close"); got != 1 {
		t.Errorf("close errors = %d, want 1", got)
	}
}

func TestGCSSink_CloseWithoutClient(t *testing.T) {
	s, err := newGCSSink((&fakeBucket{}).newWriter, GCSConfig{Bucket: "logs"},
		NewRouter("", "host-a"), encoder.FormatRaw, "none", discardLogger(), nil)
	if err != nil {
		t.Fatalf("newGCSSink() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
