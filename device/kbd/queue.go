// Package kbd provides the keyboard input device for kernels running hosted.
// Key presses captured by the host are queued until the keyboard interrupt
// handler drains them into the console.
package kbd

import (
	"io"

	"kconsole/kernel"
	"kconsole/kernel/kfmt"
	"kconsole/kernel/sync"
)

// queueSize is the capacity of the keyboard controller buffer.
const queueSize = 64

// Queue emulates the output buffer of a keyboard controller that delivers
// already translated ASCII codes.
type Queue struct {
	lock sync.Spinlock
	buf  [queueSize]byte
	head int
	len  int

	overruns uint32
}

// Feed queues a key code. It returns false and counts an overrun if the
// buffer is full.
func (q *Queue) Feed(c byte) bool {
	q.lock.Acquire()
	defer q.lock.Release()

	if q.len == queueSize {
		q.overruns++
		return false
	}

	q.buf[(q.head+q.len)%queueSize] = c
	q.len++
	return true
}

// Getc returns the next queued key code or false if the buffer is empty.
func (q *Queue) Getc() (byte, bool) {
	q.lock.Acquire()
	defer q.lock.Release()

	if q.len == 0 {
		return 0, false
	}

	c := q.buf[q.head]
	q.head = (q.head + 1) % queueSize
	q.len--
	return c, true
}

// Overruns returns the number of key codes lost because the buffer was full.
func (q *Queue) Overruns() uint32 {
	q.lock.Acquire()
	defer q.lock.Release()

	return q.overruns
}

// DriverName returns the name of this driver.
func (q *Queue) DriverName() string {
	return "hosted_kbd"
}

// DriverVersion returns the version of this driver.
func (q *Queue) DriverVersion() (uint16, uint16, uint16) {
	return 0, 0, 1
}

// DriverInit initializes this driver.
func (q *Queue) DriverInit(w io.Writer) *kernel.Error {
	kfmt.Fprintf(w, "%d key buffer\n", kfmt.Int(queueSize))
	return nil
}
