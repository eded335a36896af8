package flusher

import "sync"

// Trigger runs a callback on a dispatcher goroutine, decoupled from the
// goroutine that requested it. At most one request is queued at a time.
type Trigger struct {
	fn    func()
	queue chan struct{}

	mu   sync.Mutex
	quit chan struct{}
	done chan struct{}
}

// NewTrigger creates a trigger for fn. Requests made before Start stay
// queued until the dispatcher runs or Flush is called.
func NewTrigger(fn func()) *Trigger {
	return &Trigger{
		fn:    fn,
		queue: make(chan struct{}, 1),
	}
}

// Schedule queues one run of the callback without blocking.
// It returns false if a run is already queued.
func (t *Trigger) Schedule() bool {
	select {
	case t.queue <- struct{}{}:
		return true
	default:
		return false
	}
}

// Start launches the dispatcher. It is a no-op if already running.
func (t *Trigger) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.quit != nil {
		return
	}
	t.quit = make(chan struct{})
	t.done = make(chan struct{})
	go t.dispatch(t.quit, t.done)
}

// Flush stops the dispatcher and runs any request still queued on the
// calling goroutine. When Flush returns no callback is executing.
func (t *Trigger) Flush() {
	t.mu.Lock()
	quit, done := t.quit, t.done
	t.quit, t.done = nil, nil
	t.mu.Unlock()

	if quit != nil {
		close(quit)
		<-done
	}

	select {
	case <-t.queue:
		t.fn()
	default:
	}
}

func (t *Trigger) dispatch(quit <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case <-t.queue:
			t.fn()
		case <-quit:
			return
		}
	}
}
