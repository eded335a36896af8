package sink

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jittakal/ringlog/internal/errors"
)

func TestNewFileSink_EmptyPath(t *testing.T) {
	_, err := NewFileSink(FileConfig{}, discardLogger(), nil)
	if !stderrors.Is(err, errors.ErrBadArgument) {
		t.Errorf("NewFileSink() error = %v, want ErrBadArgument", err)
	}
}

func TestFileSink_Append(t *testing.T) {
	tests := []struct {
		name string
		sync bool
	}{
		{name: "buffered", sync: false},
		{name: "fsync per chunk", sync: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", "dir", "app.log")
			metrics := newMockMetricsCollector()

			s, err := NewFileSink(FileConfig{Path: path, Sync: tt.sync}, discardLogger(), metrics)
			if err != nil {
				t.Fatalf("NewFileSink() error = %v", err)
			}

			ctx := context.Background()
			for _, chunk := range []string{"first line\n", "second line\n"} {
				if err := s.Append(ctx, []byte(chunk)); err != nil {
					t.Fatalf("Append() error = %v", err)
				}
			}
			if err := s.Close(); err != nil {
				t.Fatalf("Close() error = %v", err)
			}

			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("ReadFile() error = %v", err)
			}
			if string(data) != "first line\nsecond line\n" {
				t.Errorf("file contents = %q", data)
			}
			if got := metrics.writtenCount("file/success"); got != 2 {
				t.Errorf("chunks written = %d, want 2", got)
			}
		})
	}
}

func TestFileSink_AppendsToExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	if err := os.WriteFile(path, []byte("existing\n"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	s, err := NewFileSink(FileConfig{Path: path}, discardLogger(), nil)
	if err != nil {
		t.Fatalf("NewFileSink() error = %v", err)
	}
	if err := s.Append(context.Background(), []byte("new\n")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	s.Close()

	data, _ := os.ReadFile(path)
	if string(data) != "existing\nnew\n" {
		t.Errorf("file contents = %q, want existing data preserved", data)
	}
}

func TestFileSink_Closed(t *testing.T) {
	s, err := NewFileSink(FileConfig{Path: filepath.Join(t.TempDir(), "app.log")}, discardLogger(), nil)
	if err != nil {
		t.Fatalf("NewFileSink() error = %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v, want nil", err)
	}
	if err := s.Append(context.Background(), []byte("late\n")); !stderrors.Is(err, errors.ErrSinkClosed) {
		t.Errorf("Append() after Close error = %v, want ErrSinkClosed", err)
	}
}

func TestNewFileSink_Unwritable(t *testing.T) {
	dir := t.TempDir()
	// A regular file where a directory is expected
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	_, err := NewFileSink(FileConfig{Path: filepath.Join(blocker, "app.log")}, discardLogger(), nil)
	var sinkErr *errors.SinkError
	if !stderrors.As(err, &sinkErr) {
		t.Fatalf("NewFileSink() error = %v, want SinkError", err)
	}
	if sinkErr.Backend != BackendFile {
		t.Errorf("Backend = %s, want %s", sinkErr.Backend, BackendFile)
	}
}
