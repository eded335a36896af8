package producer

import (
	"bytes"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/jittakal/ringlog/internal/errors"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingTarget keeps every logged payload.
type recordingTarget struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	calls int
}

func (t *recordingTarget) Log(p []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.Write(p)
	t.calls++
	return nil
}

func (t *recordingTarget) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.String()
}

// rejectingTarget refuses the first rejections calls, then accepts.
type rejectingTarget struct {
	rejections int64
	calls      atomic.Int64
	accepted   atomic.Int64
}

func (t *rejectingTarget) Log(p []byte) error {
	if t.calls.Add(1) <= t.rejections {
		return errors.ErrInsufficientCapacity
	}
	t.accepted.Add(1)
	return nil
}

// everyNthTarget rejects every nth call.
type everyNthTarget struct {
	n     int64
	calls atomic.Int64
}

func (t *everyNthTarget) Log(p []byte) error {
	if t.calls.Add(1)%t.n == 0 {
		return errors.ErrInsufficientCapacity
	}
	return nil
}

// stoppedTarget behaves like a logger after Stop.
type stoppedTarget struct{}

func (stoppedTarget) Log(p []byte) error {
	return errors.ErrStopped
}
