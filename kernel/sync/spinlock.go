// Package sync provides synchronization primitive implementations for spinlocks
// and wait queues.
package sync

import (
	"runtime"
	"sync/atomic"
)

var (
	// yieldFn is invoked by tasks that failed to acquire a spinlock after
	// spinning for a while. Hosted kernels hand the processor back to the
	// Go scheduler.
	yieldFn = runtime.Gosched
)

// Locker is implemented by objects that guard a critical section.
type Locker interface {
	Acquire()
	Release()
}

// Spinlock implements a lock where each task trying to acquire it busy-waits
// till the lock becomes available.
type Spinlock struct {
	state uint32
}

// Acquire blocks until the lock can be acquired by the currently active task.
// Any attempt to re-acquire a lock already held by the current task will cause
// a deadlock.
func (l *Spinlock) Acquire() {
	archAcquireSpinlock(&l.state, 1)
}

// TryToAcquire attempts to acquire the lock and returns true if the lock could
// be acquired or false otherwise.
func (l *Spinlock) TryToAcquire() bool {
	return atomic.SwapUint32(&l.state, 1) == 0
}

// Release relinquishes a held lock allowing other tasks to acquire it. Calling
// Release while the lock is free has no effect.
func (l *Spinlock) Release() {
	atomic.StoreUint32(&l.state, 0)
}

// archAcquireSpinlock spins on state until it can be flipped from 0 to 1,
// yielding after every attemptsBeforeYielding failed attempts.
func archAcquireSpinlock(state *uint32, attemptsBeforeYielding uint32) {
	for {
		for i := uint32(0); i < attemptsBeforeYielding; i++ {
			if atomic.CompareAndSwapUint32(state, 0, 1) {
				return
			}
		}

		yieldFn()
	}
}
