package tty

import (
	"io"
	"runtime"
	"sync/atomic"

	"kconsole/kernel/cpu"
	"kconsole/kernel/kfmt"
	"kconsole/kernel/sync"
)

// panicFrames is the number of return addresses printed by Panic.
const panicFrames = 10

// Output multiplexes kernel output to the serial port and the display. All
// writers share the console exclusion token; once Panic has run, every
// further write halts the calling CPU instead of producing output.
type Output struct {
	lock *sync.Spinlock

	// locking is cleared by Panic so that diagnostics can still be
	// printed if the token is held by the panicking task.
	locking   atomic.Bool
	panicking atomic.Bool
	frozen    atomic.Bool

	display *Display
	serial  io.ByteWriter
	cpu     cpu.CPU
}

// NewOutput creates an output multiplexer guarded by lock. The serial writer
// may be nil.
func NewOutput(lock *sync.Spinlock, serial io.ByteWriter, c cpu.CPU) *Output {
	o := &Output{
		lock:   lock,
		serial: serial,
		cpu:    c,
	}
	o.display = NewDisplay(o.Panic)
	o.locking.Store(true)
	return o
}

// Display returns the display sink fed by this multiplexer.
func (o *Output) Display() *Display {
	return o.display
}

// Frozen returns true once a panic has frozen all console output.
func (o *Output) Frozen() bool {
	return o.frozen.Load()
}

// WriteByte emits b to the serial port and the display. The caller must hold
// the exclusion token.
func (o *Output) WriteByte(b byte) error {
	if o.frozen.Load() {
		o.halt()
		return nil
	}

	if o.serial != nil {
		if b == '\b' {
			o.serial.WriteByte('\b')
			o.serial.WriteByte(' ')
			o.serial.WriteByte('\b')
		} else {
			o.serial.WriteByte(b)
		}
	}

	return o.display.WriteByte(b)
}

// Write implements io.Writer. The caller must hold the exclusion token.
func (o *Output) Write(p []byte) (int, error) {
	for _, b := range p {
		o.WriteByte(b)
	}

	return len(p), nil
}

// Echo renders a typed character on the display only. The caller must hold
// the exclusion token.
func (o *Output) Echo(b byte) {
	if o.frozen.Load() {
		o.halt()
		return
	}

	o.display.WriteByte(b)
}

// Printf formats and emits a diagnostic message. The exclusion token is
// acquired for the duration of the call unless a panic is in progress.
func (o *Output) Printf(format string, args ...kfmt.Arg) {
	if o.locking.Load() {
		o.lock.Acquire()
		defer o.lock.Release()
	}

	kfmt.Fprintf(o, format, args...)
}

// LogWriter returns an io.Writer that emits each write while holding the
// exclusion token. It is suitable as the kfmt output sink.
func (o *Output) LogWriter() io.Writer {
	return lockedWriter{o}
}

// Panic reports msg together with the caller's return addresses, freezes
// all console output and halts the CPU. On real hardware Panic never
// returns. A panic raised while another one is being reported halts
// silently.
func (o *Output) Panic(msg string) {
	o.cpu.DisableInterrupts()
	o.locking.Store(false)

	if o.panicking.Swap(true) {
		o.cpu.Halt()
		return
	}

	kfmt.Fprintf(o, "lapicid %d: panic: ", kfmt.Uint(o.cpu.ID()))
	o.Write([]byte(msg))
	o.WriteByte('\n')

	var pcs [panicFrames]uintptr
	runtime.Callers(2, pcs[:])
	for _, pc := range pcs {
		kfmt.Fprintf(o, " %p", kfmt.Ptr(pc))
	}

	o.frozen.Store(true)
	o.cpu.Halt()
}

func (o *Output) halt() {
	o.cpu.DisableInterrupts()
	o.cpu.Halt()
}

// lockedWriter emits writes under the exclusion token.
type lockedWriter struct {
	o *Output
}

func (w lockedWriter) Write(p []byte) (int, error) {
	if w.o.locking.Load() {
		w.o.lock.Acquire()
		defer w.o.lock.Release()
	}

	return w.o.Write(p)
}
