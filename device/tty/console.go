package tty

import (
	"context"
	"io"

	"kconsole/device"
	"kconsole/device/video/console"
	"kconsole/kernel"
	"kconsole/kernel/cpu"
	"kconsole/kernel/kfmt"
	"kconsole/kernel/sync"
)

// Control characters handled by the input interrupt handler.
const (
	ctrlP     byte = 'P' - '@' // process listing
	ctrlU     byte = 'U' - '@' // kill line
	ctrlH     byte = 'H' - '@' // backspace
	asciiDEL  byte = 0x7f
	asciiNUL  byte = 0x00
	asciiCR   byte = '\r'
	backspace byte = '\b'
)

// RawSource returns the next pending input character or false if no more
// input is available.
type RawSource func() (c byte, ok bool)

// ProcDumper prints a listing of the running processes. It is invoked
// without holding the console exclusion token.
type ProcDumper func()

// Config defines the collaborators of a Console.
type Config struct {
	// Device is the text console used for display output.
	Device console.Device

	// Serial receives a copy of all console output. It may be nil.
	Serial io.ByteWriter

	// CPU is used to mask interrupts and halt when the console panics.
	CPU cpu.CPU

	// ProcDump is invoked when ^P is typed. It may be nil.
	ProcDump ProcDumper

	// Echo controls whether typed characters are rendered on the display.
	Echo bool
}

// Console is the kernel console character device. Input interrupts fill a
// line discipline buffer that is drained by readers, while writers and
// kernel diagnostics are multiplexed onto the serial port and the display.
// A single exclusion token guards the buffer and the output path.
type Console struct {
	lock     sync.Spinlock
	input    InputBuffer
	out      *Output
	procDump ProcDumper
	echo     bool
}

// New creates a console from the supplied configuration.
func New(cfg Config) *Console {
	cons := &Console{
		procDump: cfg.ProcDump,
		echo:     cfg.Echo,
	}
	cons.out = NewOutput(&cons.lock, cfg.Serial, cfg.CPU)
	cons.out.Display().AttachTo(cfg.Device)
	return cons
}

// Output returns the console output multiplexer.
func (cons *Console) Output() *Output {
	return cons.out
}

// SetEcho enables or disables the echoing of typed characters.
func (cons *Console) SetEcho(enabled bool) {
	cons.lock.Acquire()
	cons.echo = enabled
	cons.lock.Release()
}

// HandleInputInterrupt drains all pending characters from src into the line
// discipline buffer. Readers are woken up if at least one line was
// committed.
func (cons *Console) HandleInputInterrupt(src RawSource) {
	var doProcDump, committed bool

	cons.lock.Acquire()
	for {
		c, ok := src()
		if !ok {
			break
		}

		switch c {
		case ctrlP:
			// Defer the dump until the token is released; it prints
			// through the console itself.
			doProcDump = true
		case ctrlU:
			for erased := cons.input.KillLine(); erased > 0; erased-- {
				cons.out.WriteByte(backspace)
			}
		case ctrlH, asciiDEL:
			if cons.input.EraseLast() {
				cons.out.WriteByte(backspace)
			}
		case asciiNUL:
		default:
			if c == asciiCR {
				c = '\n'
			}

			res := cons.input.Push(c)
			if res == Dropped {
				continue
			}

			if cons.echo {
				cons.out.Echo(c)
			}

			if res == LineCompleted {
				committed = true
			}
		}
	}

	if committed {
		cons.input.Wakeup()
	}
	cons.lock.Release()

	if doProcDump && cons.procDump != nil {
		cons.procDump()
	}
}

// Read implements device.CharDevice. It blocks until a line of input is
// available and copies at most len(dst) bytes of it into dst. A return value
// of 0 with a nil error indicates end-of-input.
func (cons *Console) Read(ctx context.Context, ip device.Inode, dst []byte) (int, *kernel.Error) {
	ip.Unlock()
	defer ip.Lock()

	cons.lock.Acquire()
	defer cons.lock.Release()

	return cons.input.ReadInto(ctx, &cons.lock, dst)
}

// Write implements device.CharDevice.
func (cons *Console) Write(ip device.Inode, src []byte) (int, *kernel.Error) {
	ip.Unlock()
	defer ip.Lock()

	cons.lock.Acquire()
	defer cons.lock.Release()

	for _, b := range src {
		cons.out.WriteByte(b)
	}

	return len(src), nil
}

// Printf formats and prints a diagnostic message to the console.
func (cons *Console) Printf(format string, args ...kfmt.Arg) {
	cons.out.Printf(format, args...)
}

// Panic reports msg and freezes the console. See Output.Panic.
func (cons *Console) Panic(msg string) {
	cons.out.Panic(msg)
}

// LogWriter returns an io.Writer suitable for use as the kfmt output sink.
func (cons *Console) LogWriter() io.Writer {
	return cons.out.LogWriter()
}

// Snapshot copies the visible display contents into dst.
func (cons *Console) Snapshot(dst []uint16) int {
	cons.lock.Acquire()
	defer cons.lock.Release()

	return cons.out.Display().Snapshot(dst)
}

// Cursor returns the display cursor offset.
func (cons *Console) Cursor() uint32 {
	cons.lock.Acquire()
	defer cons.lock.Release()

	return cons.out.Display().Cursor()
}

// InputLen returns the number of committed input bytes waiting for a reader.
func (cons *Console) InputLen() int {
	cons.lock.Acquire()
	defer cons.lock.Release()

	return cons.input.Len()
}

// DriverName returns the name of this driver.
func (cons *Console) DriverName() string {
	return "console"
}

// DriverVersion returns the version of this driver.
func (cons *Console) DriverVersion() (uint16, uint16, uint16) {
	return 0, 0, 1
}

// DriverInit initializes the console.
func (cons *Console) DriverInit(w io.Writer) *kernel.Error {
	width, height := cons.out.Display().Dimensions()
	kfmt.Fprintf(w, "%dx%d display, %d byte input buffer\n", kfmt.Uint(width), kfmt.Uint(height), kfmt.Int(InputBufSize))
	return nil
}
