package buffer

import (
	"runtime"
	"sync/atomic"
)

// spinYieldThreshold is the number of failed acquire attempts before
// the spinning goroutine yields its processor with runtime.Gosched().
const spinYieldThreshold = 64

// spinlock is a busy-wait lock. Critical sections guarded by it are a
// handful of loads and stores, so waiters never park.
type spinlock struct {
	held atomic.Bool
}

func (l *spinlock) lock() {
	for spins := 0; !l.held.CompareAndSwap(false, true); spins++ {
		if spins >= spinYieldThreshold {
			runtime.Gosched()
			spins = 0
		}
	}
}

func (l *spinlock) unlock() {
	l.held.Store(false)
}
