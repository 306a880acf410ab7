// Package hal detects the console hardware, initializes the matching drivers
// and wires them together into the system console.
package hal

import (
	"bytes"
	"io"
	"sort"

	"kconsole/device"
	"kconsole/device/kbd"
	"kconsole/device/serial"
	"kconsole/device/tty"
	"kconsole/device/video/console"
	"kconsole/kernel"
	"kconsole/kernel/cpu"
	"kconsole/kernel/irq"
	"kconsole/kernel/kfmt"
)

// Platform describes the hardware available to the kernel.
type Platform struct {
	// Framebuffer holds the text-mode cells. If nil, a framebuffer
	// matching the configured dimensions is allocated.
	Framebuffer []uint16

	// CRTC provides access to the display controller ports.
	CRTC cpu.Ports

	// SerialPorts provides access to the COM1 ports. It may be nil if
	// the machine has no serial port.
	SerialPorts cpu.Ports

	// Keyboard is the keyboard controller. It may be nil.
	Keyboard *kbd.Queue

	// CPU is the processor running the kernel.
	CPU cpu.CPU

	// ProcDump prints the process table when ^P is typed. It may be nil.
	ProcDump tty.ProcDumper
}

// Devices contains the devices discovered by the HAL.
type Devices struct {
	Display  *console.CgaTextConsole
	UART     *serial.UART
	Keyboard *kbd.Queue
	Console  *tty.Console

	// Switch maps device numbers to character devices.
	Switch device.Switch

	// IRQ routes the keyboard and serial interrupts to the console.
	IRQ irq.Dispatcher

	// activeDrivers tracks all initialized device drivers.
	activeDrivers []device.Driver
}

// ActiveDrivers returns the successfully initialized drivers in detection
// order.
func (d *Devices) ActiveDrivers() []device.Driver {
	return d.activeDrivers
}

var errNoConsole = &kernel.Error{Module: "hal", Message: "no console device detected"}

// Init probes for the console hardware described by p, initializes the
// drivers and attaches the system console. Once Init returns, kfmt output and
// kernel panics are routed through the console.
func Init(cfg Config, p Platform) (*Devices, *kernel.Error) {
	devs := &Devices{}

	drivers := driverList(cfg, p, devs)
	sort.Sort(drivers)
	devs.probe(drivers)

	if devs.Console == nil {
		return nil, errNoConsole
	}

	return devs, nil
}

// driverList returns the probe list for the devices of p. Probes run in
// detection order, so the console probe can rely on the display having been
// initialized.
func driverList(cfg Config, p Platform, devs *Devices) device.DriverInfoList {
	return device.DriverInfoList{
		{
			Order: device.DetectOrderLast,
			Probe: func() device.Driver {
				if devs.Display == nil || p.CPU == nil {
					return nil
				}

				var out io.ByteWriter
				if devs.UART != nil {
					out = devs.UART
				}

				return tty.New(tty.Config{
					Device:   devs.Display,
					Serial:   out,
					CPU:      p.CPU,
					ProcDump: p.ProcDump,
					Echo:     cfg.Echo,
				})
			},
		},
		{
			Order: device.DetectOrderNormal,
			Probe: func() device.Driver {
				if !cfg.Serial || p.SerialPorts == nil {
					return nil
				}
				return serial.NewUART(serial.COM1, p.SerialPorts)
			},
		},
		{
			Order: device.DetectOrderNormal,
			Probe: func() device.Driver {
				if p.Keyboard == nil {
					return nil
				}
				return p.Keyboard
			},
		},
		{
			Order: device.DetectOrderEarly,
			Probe: func() device.Driver {
				if p.CRTC == nil {
					return nil
				}

				fb := p.Framebuffer
				if fb == nil {
					fb = make([]uint16, cfg.Columns*cfg.Rows)
				}
				return console.NewCgaTextConsole(cfg.Columns, cfg.Rows, fb, p.CRTC)
			},
		},
	}
}

// probe executes the probe function for each driver and invokes
// onDriverInit for each successfully initialized driver.
func (d *Devices) probe(driverInfoList device.DriverInfoList) {
	var (
		w      = kfmt.PrefixWriter{Sink: kfmt.OutputWriter()}
		strBuf bytes.Buffer
	)

	for _, info := range driverInfoList {
		drv := info.Probe()
		if drv == nil {
			continue
		}

		strBuf.Reset()
		major, minor, patch := drv.DriverVersion()
		kfmt.Fprintf(&strBuf, "[hal] %s(%d.%d.%d): ", kfmt.Str(drv.DriverName()), kfmt.Uint(uint32(major)), kfmt.Uint(uint32(minor)), kfmt.Uint(uint32(patch)))
		w.Prefix = strBuf.Bytes()

		if err := drv.DriverInit(&w); err != nil {
			kfmt.Fprintf(&w, "init failed: %s\n", kfmt.Str(err.Message))
			continue
		}

		d.onDriverInit(drv, &w)
		kfmt.Fprintf(&w, "initialized\n")
		d.activeDrivers = append(d.activeDrivers, drv)
	}
}

// onDriverInit is invoked by probe() whenever a piece of hardware is detected
// and successfully initialized. Wiring failures are logged to w.
func (d *Devices) onDriverInit(drv device.Driver, w io.Writer) {
	switch drvImpl := drv.(type) {
	case *console.CgaTextConsole:
		d.Display = drvImpl
	case *serial.UART:
		d.UART = drvImpl
	case *kbd.Queue:
		d.Keyboard = drvImpl
	case *tty.Console:
		d.onConsoleInit(drvImpl, w)
	}
}

// onConsoleInit installs cons as the system console: it becomes the target
// of kfmt output and kernel panics, it is registered with the device switch
// and it receives the input interrupts of the keyboard and serial port.
func (d *Devices) onConsoleInit(cons *tty.Console, w io.Writer) {
	d.Console = cons

	kfmt.SetOutputSink(cons.LogWriter())
	kfmt.SetPanicHandler(cons.Panic)

	if err := d.Switch.Register(device.ConsoleMajor, cons); err != nil {
		kfmt.Fprintf(w, "device registration failed: %s\n", kfmt.Str(err.Message))
	}

	if d.Keyboard != nil {
		if err := d.IRQ.Register(irq.Keyboard, func() { cons.HandleInputInterrupt(d.Keyboard.Getc) }); err != nil {
			kfmt.Fprintf(w, "keyboard IRQ %d: %s\n", kfmt.Uint(uint32(irq.Keyboard)), kfmt.Str(err.Message))
		}
	}

	if d.UART != nil {
		if err := d.IRQ.Register(irq.COM1, func() { cons.HandleInputInterrupt(d.UART.Getc) }); err != nil {
			kfmt.Fprintf(w, "serial IRQ %d: %s\n", kfmt.Uint(uint32(irq.COM1)), kfmt.Str(err.Message))
		}
	}
}
