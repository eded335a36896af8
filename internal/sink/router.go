package sink

import (
	"fmt"
	"path"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Router names segment objects and message ids. Every sink open takes a
// fresh run id, so a reopened sink whose counters restart at 1 never
// reuses a key or id handed out earlier. Keys produced by one Router sort
// lexically by run and then by sequence within a day.
type Router struct {
	basePath string
	instance string

	mu      sync.Mutex
	lastRun int64
}

// NewRouter creates a router. An empty instance is replaced by a random
// UUID so that concurrent processes never collide.
func NewRouter(basePath, instance string) *Router {
	if instance == "" {
		instance = uuid.NewString()
	}
	return &Router{
		basePath: basePath,
		instance: instance,
	}
}

// NewRun returns a run id for a sink opened at now. Ids are fixed width
// and strictly increasing for the lifetime of the router, even when the
// clock stalls or steps back.
func (r *Router) NewRun(now time.Time) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	run := max(now.UnixNano(), r.lastRun+1)
	r.lastRun = run
	return fmt.Sprintf("%019d", run)
}

// Route returns the object key for a segment.
// Format: basePath/dt=YYYY-MM-DD/instance-RUN-NNNNNNNNNNNNNNNNNNNN.ext
func (r *Router) Route(run string, sequence uint64, t time.Time, ext string) string {
	date := t.UTC().Format("2006-01-02")
	name := fmt.Sprintf("%s-%s-%020d%s", r.instance, run, sequence, ext)
	return path.Join(r.basePath, "dt="+date, name)
}

// MessageID returns the deduplication id of the sequence-th message
// published during run.
func (r *Router) MessageID(run string, sequence uint64) string {
	return r.instance + "-" + run + "-" + strconv.FormatUint(sequence, 10)
}

// Instance returns the instance id embedded in keys.
func (r *Router) Instance() string {
	return r.instance
}
