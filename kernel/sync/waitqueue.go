package sync

import "context"

// WaitQueue allows tasks to sleep until another task signals a change to the
// state guarded by a Locker. Wakeups are hints: a woken task must re-check
// its wait condition after re-acquiring the lock.
//
// The zero value is ready to use.
type WaitQueue struct {
	// lock guards ch; it is never held while a task sleeps.
	lock Spinlock

	// ch is closed to wake up all tasks currently sleeping on the queue.
	ch chan struct{}
}

// Sleep atomically releases l and suspends the caller until WakeupAll is
// invoked or ctx is cancelled. Sleep re-acquires l before returning. The
// caller must hold l.
//
// Sleep returns false if it returned because ctx was cancelled.
func (q *WaitQueue) Sleep(ctx context.Context, l Locker) bool {
	// Snapshot the channel while l is still held so that a wakeup issued
	// by a task acquiring l after us cannot be missed.
	q.lock.Acquire()
	if q.ch == nil {
		q.ch = make(chan struct{})
	}
	ch := q.ch
	q.lock.Release()

	l.Release()
	defer l.Acquire()

	select {
	case <-ch:
		return true
	case <-ctx.Done():
		return false
	}
}

// WakeupAll wakes up every task sleeping on the queue.
func (q *WaitQueue) WakeupAll() {
	q.lock.Acquire()
	if q.ch != nil {
		close(q.ch)
		q.ch = nil
	}
	q.lock.Release()
}
