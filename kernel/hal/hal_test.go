package hal

import (
	"bytes"
	"context"
	"runtime"
	"strings"
	"testing"
	"time"

	"kconsole/device"
	"kconsole/device/kbd"
	"kconsole/device/serial"
	"kconsole/device/video/console"
	"kconsole/kernel/cpu"
	"kconsole/kernel/irq"
	"kconsole/kernel/kfmt"
)

type mockInode struct{}

func (mockInode) Lock()   {}
func (mockInode) Unlock() {}

// exitingCPU terminates the calling goroutine when halted.
type exitingCPU struct {
	*cpu.Hosted
}

func (c *exitingCPU) Halt() { runtime.Goexit() }

type testPlatform struct {
	Platform
	serialOut *bytes.Buffer
	host      *serial.HostUART
}

func newTestPlatform(c cpu.CPU) *testPlatform {
	var (
		out  bytes.Buffer
		host = serial.NewHostUART(serial.COM1, &out)
	)

	return &testPlatform{
		Platform: Platform{
			CRTC:        &console.CRTC{},
			SerialPorts: host,
			Keyboard:    &kbd.Queue{},
			CPU:         c,
		},
		serialOut: &out,
		host:      host,
	}
}

func resetKfmt() {
	kfmt.SetOutputSink(nil)
	kfmt.SetPanicHandler(nil)
}

func readLine(t *testing.T, devs *Devices) string {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	dst := make([]byte, 64)
	n, err := devs.Switch.Read(ctx, device.ConsoleMajor, mockInode{}, dst)
	if err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}

	return string(dst[:n])
}

func TestInit(t *testing.T) {
	defer resetKfmt()

	p := newTestPlatform(cpu.NewHosted(0))
	devs, err := Init(DefaultConfig(), p.Platform)
	if err != nil {
		t.Fatal(err)
	}

	if devs.Display == nil || devs.UART == nil || devs.Keyboard == nil || devs.Console == nil {
		t.Fatalf("expected all devices to be detected; got %+v", devs)
	}

	drivers := devs.ActiveDrivers()
	if exp, got := 4, len(drivers); got != exp {
		t.Fatalf("expected %d active drivers; got %d", exp, got)
	}

	// The display is detected first and the console last
	if exp, got := "cga_text_console", drivers[0].DriverName(); got != exp {
		t.Errorf("expected first driver to be %q; got %q", exp, got)
	}
	if exp, got := "console", drivers[3].DriverName(); got != exp {
		t.Errorf("expected last driver to be %q; got %q", exp, got)
	}

	log := p.serialOut.String()
	for _, exp := range []string{
		"[hal] cga_text_console(0.0.1): 80x25 cells, cursor at 0\n",
		"[hal] uart8250(0.0.1): port 0x3f8, 9600 baud\n",
		"[hal] hosted_kbd(0.0.1): 64 key buffer\n",
		"[hal] console(0.0.1): 80x25 display, 128 byte input buffer\n",
		"[hal] console(0.0.1): initialized\n",
	} {
		if !strings.Contains(log, exp) {
			t.Errorf("expected console log to contain %q; got:\n%s", exp, log)
		}
	}

	if kfmt.GetOutputSink() == nil {
		t.Fatal("expected the console to become the kfmt output sink")
	}
}

func TestInitInputInterrupts(t *testing.T) {
	defer resetKfmt()

	p := newTestPlatform(cpu.NewHosted(0))
	devs, err := Init(DefaultConfig(), p.Platform)
	if err != nil {
		t.Fatal(err)
	}

	for _, c := range []byte("kbd\r") {
		p.Keyboard.Feed(c)
	}
	if !devs.IRQ.Dispatch(irq.Keyboard) {
		t.Fatal("expected a keyboard interrupt handler")
	}

	if exp, got := "kbd\n", readLine(t, devs); got != exp {
		t.Fatalf("expected to read %q; got %q", exp, got)
	}

	for _, c := range []byte("uart\n") {
		p.host.Feed(c)
	}
	if !devs.IRQ.Dispatch(irq.COM1) {
		t.Fatal("expected a serial interrupt handler")
	}

	if exp, got := "uart\n", readLine(t, devs); got != exp {
		t.Fatalf("expected to read %q; got %q", exp, got)
	}
}

func TestInitWithoutSerial(t *testing.T) {
	defer resetKfmt()

	specs := []struct {
		cmdLine     string
		serialPorts cpu.Ports
	}{
		{"console.serial=off", serial.NewHostUART(serial.COM1, nil)},
		// A missing UART fails to initialize
		{"", serial.NewHostUART(0x2f8, nil)},
		{"", nil},
	}

	for specIndex, spec := range specs {
		cfg, err := ParseCmdLine(spec.cmdLine)
		if err != nil {
			t.Fatal(err)
		}

		p := newTestPlatform(cpu.NewHosted(0))
		p.SerialPorts = spec.serialPorts

		devs, err := Init(cfg, p.Platform)
		if err != nil {
			t.Errorf("[spec %d] unexpected error: %v", specIndex, err)
			continue
		}

		if devs.UART != nil {
			t.Errorf("[spec %d] expected no UART to be active", specIndex)
		}

		if devs.IRQ.Dispatch(irq.COM1) {
			t.Errorf("[spec %d] expected no serial interrupt handler", specIndex)
		}

		resetKfmt()
	}
}

func TestInitWithoutDisplay(t *testing.T) {
	defer resetKfmt()

	p := newTestPlatform(cpu.NewHosted(0))
	p.CRTC = nil

	if _, err := Init(DefaultConfig(), p.Platform); err != errNoConsole {
		t.Fatalf("expected errNoConsole; got %v", err)
	}
}

func TestInitRejectsBadDimensions(t *testing.T) {
	defer resetKfmt()

	specs := []struct {
		cols, rows uint32
	}{
		{0, 0},
		{0, 25},
		{80, 0},
		{10, 1},
	}

	for specIndex, spec := range specs {
		cfg := DefaultConfig()
		cfg.Columns, cfg.Rows = spec.cols, spec.rows

		done := make(chan *Devices, 1)
		var initErr error
		go func() {
			devs, err := Init(cfg, newTestPlatform(cpu.NewHosted(0)).Platform)
			if err != nil {
				initErr = err
			}
			done <- devs
		}()

		select {
		case devs := <-done:
			if initErr != errNoConsole {
				t.Errorf("[spec %d] expected errNoConsole for %dx%d; got %v", specIndex, spec.cols, spec.rows, initErr)
			}
			if devs != nil && devs.Display != nil {
				t.Errorf("[spec %d] expected the display driver to fail initialization", specIndex)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("[spec %d] timed out waiting for Init with a %dx%d console", specIndex, spec.cols, spec.rows)
		}

		resetKfmt()
	}
}

func TestOnConsoleInitLogsWiringFailures(t *testing.T) {
	defer resetKfmt()

	p := newTestPlatform(cpu.NewHosted(0))
	devs, err := Init(DefaultConfig(), p.Platform)
	if err != nil {
		t.Fatal(err)
	}

	// Attaching the console a second time finds both interrupt lines taken
	var buf bytes.Buffer
	devs.onConsoleInit(devs.Console, &buf)

	for specIndex, exp := range []string{
		"keyboard IRQ 1: interrupt line already has a handler\n",
		"serial IRQ 4: interrupt line already has a handler\n",
	} {
		if !strings.Contains(buf.String(), exp) {
			t.Errorf("[spec %d] expected log to contain %q; got:\n%s", specIndex, exp, buf.String())
		}
	}
}

func TestInitRoutesKernelPanics(t *testing.T) {
	defer resetKfmt()

	c := &exitingCPU{cpu.NewHosted(7)}
	p := newTestPlatform(c)

	devs, err := Init(DefaultConfig(), p.Platform)
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		kfmt.Panic("out of cheese")
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the panicking task")
	}

	if exp := "lapicid 7: panic: [rt] out of cheese\n"; !strings.Contains(p.serialOut.String(), exp) {
		t.Fatalf("expected serial output to contain %q; got:\n%s", exp, p.serialOut.String())
	}

	if !devs.Console.Output().Frozen() {
		t.Fatal("expected the console to be frozen")
	}
}
