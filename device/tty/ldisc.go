package tty

import (
	"context"

	"kconsole/kernel"
	"kconsole/kernel/sync"
)

// InputBufSize is the capacity of the line discipline buffer.
const InputBufSize = 128

// Control characters interpreted by the line discipline.
const (
	ctrlD byte = 0x04 // end of transmission
)

// PushResult describes the outcome of pushing a character into an
// InputBuffer.
type PushResult uint8

// The possible outcomes of InputBuffer.Push.
const (
	// The character was appended to the line being edited.
	Pending PushResult = iota

	// The character was appended and the edited line was committed.
	LineCompleted

	// The buffer was full and the character was discarded.
	Dropped
)

// InputBuffer implements the console line discipline on top of a fixed size
// circular buffer. Its indices grow monotonically and are reduced modulo
// InputBufSize when indexing:
//  - r: next byte to be handed to a reader
//  - w: end of the committed region; bytes in [r, w) may be read
//  - e: end of the line being edited; bytes in [w, e) may still be erased
//
// The indices always satisfy r <= w <= e <= r+InputBufSize. InputBuffer
// methods must be invoked while holding the console exclusion token.
type InputBuffer struct {
	buf     [InputBufSize]byte
	r, w, e uint32

	readers sync.WaitQueue
}

// Push appends c to the line being edited. A newline, an EOT or a full
// buffer commits the edited line.
func (b *InputBuffer) Push(c byte) PushResult {
	if b.e-b.r >= InputBufSize {
		return Dropped
	}

	b.buf[b.e%InputBufSize] = c
	b.e++

	if c == '\n' || c == ctrlD || b.e == b.r+InputBufSize {
		b.w = b.e
		return LineCompleted
	}

	return Pending
}

// EraseLast removes the last uncommitted character. It returns false if the
// edited line is empty.
func (b *InputBuffer) EraseLast() bool {
	if b.e == b.w {
		return false
	}

	b.e--
	return true
}

// KillLine erases the line being edited and returns the number of erased
// characters.
func (b *InputBuffer) KillLine() int {
	var erased int
	for b.e != b.w && b.buf[(b.e-1)%InputBufSize] != '\n' {
		b.e--
		erased++
	}

	return erased
}

// ReadInto copies committed input into dst, blocking until at least some
// input is available. It stops after a newline, once dst is full or when an
// EOT is reached. An EOT that follows data delivered by the same call is
// left in the buffer so the next call reports end-of-input by returning 0.
//
// The caller must hold lock; ReadInto releases it while waiting for input.
// If ctx is cancelled before input arrives, ReadInto returns the bytes
// delivered so far together with kernel.ErrInterrupted.
func (b *InputBuffer) ReadInto(ctx context.Context, lock sync.Locker, dst []byte) (int, *kernel.Error) {
	var n int

	for n < len(dst) {
		for b.r == b.w {
			if ctx.Err() != nil {
				return n, kernel.ErrInterrupted
			}

			if !b.readers.Sleep(ctx, lock) {
				return n, kernel.ErrInterrupted
			}
		}

		c := b.buf[b.r%InputBufSize]
		b.r++

		if c == ctrlD {
			if n > 0 {
				// Keep the EOT so that the next read returns 0
				b.r--
			}
			break
		}

		dst[n] = c
		n++

		if c == '\n' {
			break
		}
	}

	return n, nil
}

// Wakeup wakes up all readers blocked in ReadInto.
func (b *InputBuffer) Wakeup() {
	b.readers.WakeupAll()
}

// Len returns the number of committed bytes that have not been read yet.
func (b *InputBuffer) Len() int {
	return int(b.w - b.r)
}

// Indices returns the read, commit and edit indices.
func (b *InputBuffer) Indices() (r, w, e uint32) {
	return b.r, b.w, b.e
}
