package tty

import (
	"bytes"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"kconsole/kernel/kfmt"
	"kconsole/kernel/sync"
)

// mockCPU terminates the calling goroutine when halted so tests can observe
// that a halted execution context never resumes.
type mockCPU struct {
	id           uint32
	intrDisabled atomic.Bool
	halts        atomic.Int32
}

func (c *mockCPU) ID() uint32 { return c.id }

func (c *mockCPU) EnableInterrupts() { c.intrDisabled.Store(false) }

func (c *mockCPU) DisableInterrupts() { c.intrDisabled.Store(true) }

func (c *mockCPU) Halt() {
	c.halts.Add(1)
	runtime.Goexit()
}

func (c *mockCPU) haltCount() int32 { return c.halts.Load() }

func (c *mockCPU) interruptsOff() bool { return c.intrDisabled.Load() }

// runUntilHalt runs fn in its own goroutine and reports whether fn returned.
// A halted goroutine exits without returning from fn.
func runUntilHalt(t *testing.T, fn func()) bool {
	t.Helper()

	var returned atomic.Bool
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
		returned.Store(true)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the execution context to finish")
	}

	return returned.Load()
}

func newTestOutput(width, height uint32) (*Output, []uint16, *bytes.Buffer, *mockCPU) {
	var (
		lock   sync.Spinlock
		serial bytes.Buffer
		c      = &mockCPU{id: 3}
	)

	cons, fb, _ := newTestCga(width, height)
	out := NewOutput(&lock, &serial, c)
	out.Display().AttachTo(cons)
	return out, fb, &serial, c
}

func TestOutputMirrorsToSerial(t *testing.T) {
	out, fb, serial, _ := newTestOutput(20, 5)

	out.Write([]byte("abc\bd\n"))

	if exp, got := "abc\b \bd\n", serial.String(); got != exp {
		t.Fatalf("expected serial output %q; got %q", exp, got)
	}

	if exp, got := "abd", rowText(fb, 20, 0); got != exp {
		t.Fatalf("expected display row %q; got %q", exp, got)
	}
}

func TestOutputWithoutSerial(t *testing.T) {
	var lock sync.Spinlock

	cons, fb, _ := newTestCga(20, 5)
	out := NewOutput(&lock, nil, &mockCPU{})
	out.Display().AttachTo(cons)

	out.Write([]byte("ok"))
	if exp, got := "ok", rowText(fb, 20, 0); got != exp {
		t.Fatalf("expected display row %q; got %q", exp, got)
	}
}

func TestOutputEchoSkipsSerial(t *testing.T) {
	out, fb, serial, _ := newTestOutput(20, 5)

	out.Echo('k')

	if serial.Len() != 0 {
		t.Fatalf("expected echo to bypass the serial port; got %q", serial.String())
	}

	if exp, got := "k", rowText(fb, 20, 0); got != exp {
		t.Fatalf("expected display row %q; got %q", exp, got)
	}
}

func TestOutputPrintf(t *testing.T) {
	specs := []struct {
		format string
		args   []kfmt.Arg
		exp    string
	}{
		{"%d items", []kfmt.Arg{kfmt.Int(-42)}, "-42 items"},
		{"0x%x", []kfmt.Arg{kfmt.Uint(0xbeef)}, "0xbeef"},
		{"%p", []kfmt.Arg{kfmt.Ptr(0x10a0)}, "10a0"},
		{"%s!", []kfmt.Arg{kfmt.Str("hi")}, "hi!"},
		{"%s", []kfmt.Arg{kfmt.StrPtr(nil)}, "(null)"},
		{"100%%", nil, "100%"},
		{"%q", nil, "%q"},
	}

	for specIndex, spec := range specs {
		out, _, serial, _ := newTestOutput(40, 5)
		out.Printf(spec.format, spec.args...)

		if got := serial.String(); got != spec.exp {
			t.Errorf("[spec %d] expected %q; got %q", specIndex, spec.exp, got)
		}

		// The token is released once Printf returns
		if !out.lock.TryToAcquire() {
			t.Errorf("[spec %d] expected Printf to release the exclusion token", specIndex)
		}
	}
}

func TestOutputLogWriter(t *testing.T) {
	out, _, serial, _ := newTestOutput(40, 5)

	kfmt.Fprintf(out.LogWriter(), "[hal] %s\n", kfmt.Str("ready"))

	if exp, got := "[hal] ready\n", serial.String(); got != exp {
		t.Fatalf("expected %q; got %q", exp, got)
	}

	if !out.lock.TryToAcquire() {
		t.Fatal("expected the log writer to release the exclusion token")
	}
}

func TestOutputPanic(t *testing.T) {
	out, fb, serial, c := newTestOutput(80, 25)

	if returned := runUntilHalt(t, func() { out.Panic("boom") }); returned {
		t.Fatal("expected Panic not to return")
	}

	if !out.Frozen() {
		t.Fatal("expected output to be frozen")
	}

	if !c.interruptsOff() {
		t.Fatal("expected Panic to disable interrupts")
	}

	if c.haltCount() != 1 {
		t.Fatalf("expected 1 halt; got %d", c.haltCount())
	}

	report := serial.String()
	prefix := "lapicid 3: panic: boom\n"
	if !strings.HasPrefix(report, prefix) {
		t.Fatalf("expected panic report to start with %q; got %q", prefix, report)
	}

	if pcs := strings.Fields(strings.TrimPrefix(report, prefix)); len(pcs) != panicFrames {
		t.Fatalf("expected %d return addresses; got %d (%q)", panicFrames, len(pcs), report)
	}

	if exp, got := "lapicid 3: panic: boom", rowText(fb, 80, 0); got != exp {
		t.Fatalf("expected display row 0 to be %q; got %q", exp, got)
	}
}

func TestOutputFrozenAfterPanic(t *testing.T) {
	out, fb, serial, c := newTestOutput(80, 25)
	runUntilHalt(t, func() { out.Panic("frozen") })

	serialBefore := serial.String()
	fbBefore := append([]uint16(nil), fb...)

	specs := []func(){
		func() { out.WriteByte('x') },
		func() { out.Write([]byte("more")) },
		func() { out.Echo('y') },
		func() { out.Printf("late %d\n", kfmt.Int(1)) },
	}

	for specIndex, spec := range specs {
		if returned := runUntilHalt(t, spec); returned {
			t.Errorf("[spec %d] expected writer to halt", specIndex)
		}
	}

	if serial.String() != serialBefore {
		t.Fatalf("expected no serial output after the freeze; got %q", strings.TrimPrefix(serial.String(), serialBefore))
	}

	for i := range fb {
		if fb[i] != fbBefore[i] {
			t.Fatalf("expected display to stay unchanged after the freeze; offset %d changed", i)
		}
	}

	if exp, got := int32(1+len(specs)), c.haltCount(); got != exp {
		t.Fatalf("expected %d halts; got %d", exp, got)
	}
}

func TestOutputPanicWhileHoldingToken(t *testing.T) {
	out, _, serial, _ := newTestOutput(80, 25)

	// The panicking task holds the token; Panic must not wait for it
	out.lock.Acquire()
	runUntilHalt(t, func() { out.Panic("locked") })

	if !strings.HasPrefix(serial.String(), "lapicid 3: panic: locked\n") {
		t.Fatalf("unexpected panic report %q", serial.String())
	}
}

func TestOutputReentrantPanic(t *testing.T) {
	out, _, serial, c := newTestOutput(80, 25)

	// Flag a panic in progress without freezing the output
	out.panicking.Store(true)

	if returned := runUntilHalt(t, func() { out.Panic("second") }); returned {
		t.Fatal("expected re-entrant Panic not to return")
	}

	if serial.Len() != 0 {
		t.Fatalf("expected re-entrant panic to halt silently; got %q", serial.String())
	}

	if c.haltCount() != 1 {
		t.Fatalf("expected 1 halt; got %d", c.haltCount())
	}
}

func TestDisplayOverflowPanics(t *testing.T) {
	out, fb, serial, _ := newTestOutput(80, 25)

	returned := runUntilHalt(t, func() {
		out.lock.Acquire()
		out.Display().cursor = 80*25 + 1
		out.WriteByte('x')
	})

	if returned {
		t.Fatal("expected a corrupted cursor to halt the writer")
	}

	if !strings.HasPrefix(serial.String(), "xlapicid 3: panic: pos under/overflow\n") {
		t.Fatalf("unexpected serial output %q", serial.String())
	}

	if exp, got := "lapicid 3: panic: pos under/overflow", rowText(fb, 80, 0); got != exp {
		t.Fatalf("expected display row 0 to be %q; got %q", exp, got)
	}
}
