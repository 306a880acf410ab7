package main

import (
	"fmt"
	"io"
	"sync/atomic"

	"kconsole/device/kbd"
	"kconsole/device/serial"
	"kconsole/device/video/console"
	"kconsole/kernel/cpu"
	"kconsole/kernel/hal"
	"kconsole/kernel/irq"
	"kconsole/kernel/kfmt"
	"kconsole/kernel/kmain"
)

// simulator hosts a console kernel: it owns the emulated hardware and
// exposes the entry points used by the host front-ends.
type simulator struct {
	cfg hal.Config

	fb   []uint16
	crtc *console.CRTC
	host *serial.HostUART
	kbd  *kbd.Queue
	cpu  *cpu.Hosted
	devs *hal.Devices

	// shellWaiting is set while the shell is blocked on console input.
	shellWaiting atomic.Bool
}

func newSimulator(cfg hal.Config, serialOut io.Writer) (*simulator, error) {
	s := &simulator{
		cfg:  cfg,
		fb:   make([]uint16, cfg.Columns*cfg.Rows),
		crtc: &console.CRTC{},
		host: serial.NewHostUART(serial.COM1, serialOut),
		kbd:  &kbd.Queue{},
		cpu:  cpu.NewHosted(cfg.APICID),
	}

	for i := range s.fb {
		s.fb[i] = console.BlankCell
	}

	devs, err := kmain.Kmain(cfg, hal.Platform{
		Framebuffer: s.fb,
		CRTC:        s.crtc,
		SerialPorts: s.host,
		Keyboard:    s.kbd,
		CPU:         s.cpu,
		ProcDump:    s.procDump,
	})
	if err != nil {
		return nil, fmt.Errorf("boot: %w", err)
	}

	s.devs = devs
	return s, nil
}

// frozen returns true once the kernel has panicked.
func (s *simulator) frozen() bool {
	return s.devs.Console.Output().Frozen()
}

// keyPress delivers a key code through the keyboard interrupt.
func (s *simulator) keyPress(c byte) {
	if s.frozen() {
		return
	}

	s.kbd.Feed(c)
	s.devs.IRQ.Dispatch(irq.Keyboard)
}

// serialReceive delivers bytes received by COM1 through the serial
// interrupt.
func (s *simulator) serialReceive(p []byte) {
	if s.frozen() {
		return
	}

	for _, c := range p {
		if !s.host.Feed(c) {
			// Let the console drain the FIFO before queueing more
			s.devs.IRQ.Dispatch(irq.COM1)
			s.host.Feed(c)
		}
	}
	s.devs.IRQ.Dispatch(irq.COM1)
}

// snapshot copies the display contents into dst and returns the cursor
// offset. A frozen console is read without the exclusion token as its
// holder may have halted.
func (s *simulator) snapshot(dst []uint16) uint32 {
	if s.frozen() {
		copy(dst, s.fb)
		return uint32(s.crtc.Cursor())
	}

	s.devs.Console.Snapshot(dst)
	return s.devs.Console.Cursor()
}

// procDump lists the simulator tasks.
func (s *simulator) procDump() {
	state := "run  "
	if s.shellWaiting.Load() {
		state = "sleep"
	}

	kfmt.Printf("\n1 run   kbd\n2 %s shell\n", kfmt.Str(state))
}
