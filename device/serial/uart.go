// Package serial implements a driver for 8250/16550-compatible UARTs. The
// console uses the serial port as a secondary output sink and as an
// additional input source.
package serial

import (
	"io"

	"kconsole/kernel"
	"kconsole/kernel/cpu"
	"kconsole/kernel/kfmt"
)

// COM1 is the I/O base address of the first serial port.
const COM1 uint16 = 0x3f8

// UART register offsets relative to the port base.
const (
	regData        uint16 = 0 // receive/transmit buffer; divisor low when DLAB=1
	regIntrEnable  uint16 = 1 // interrupt enable; divisor high when DLAB=1
	regFIFOControl uint16 = 2
	regLineControl uint16 = 3
	regModemCtrl   uint16 = 4
	regLineStatus  uint16 = 5
)

// Line status register bits.
const (
	lsrDataReady uint8 = 0x01
	lsrTHREmpty  uint8 = 0x20
)

const (
	// maxTxSpins bounds the number of line status polls while waiting for
	// the transmitter to become ready.
	maxTxSpins = 128

	baseClock = 115200
	baudRate  = 9600
)

var (
	// delayFn is invoked between line status polls. It is mocked by tests.
	delayFn = func() {}

	errNoUART = &kernel.Error{Module: "uart", Message: "no serial port detected"}
)

// UART drives an 8250-compatible serial port through I/O port access.
type UART struct {
	base  uint16
	ports cpu.Ports
}

// NewUART returns a driver for the serial port at the given I/O base.
func NewUART(base uint16, ports cpu.Ports) *UART {
	return &UART{base: base, ports: ports}
}

// WriteByte transmits b. It polls the line status register until the
// transmit holding register is empty or the retry budget runs out.
func (u *UART) WriteByte(b byte) error {
	for i := 0; i < maxTxSpins && u.ports.PortReadByte(u.base+regLineStatus)&lsrTHREmpty == 0; i++ {
		delayFn()
	}

	u.ports.PortWriteByte(u.base+regData, b)
	return nil
}

// Write implements io.Writer.
func (u *UART) Write(p []byte) (int, error) {
	for _, b := range p {
		u.WriteByte(b)
	}

	return len(p), nil
}

// Getc returns the next received byte or false if the receive buffer is
// empty.
func (u *UART) Getc() (byte, bool) {
	if u.ports.PortReadByte(u.base+regLineStatus)&lsrDataReady == 0 {
		return 0, false
	}

	return u.ports.PortReadByte(u.base + regData), true
}

// DriverName returns the name of this driver.
func (u *UART) DriverName() string {
	return "uart8250"
}

// DriverVersion returns the version of this driver.
func (u *UART) DriverVersion() (uint16, uint16, uint16) {
	return 0, 0, 1
}

// DriverInit programs the port for 9600 baud, 8 data bits, no parity and one
// stop bit and enables receive interrupts.
func (u *UART) DriverInit(w io.Writer) *kernel.Error {
	// Turn off the FIFO
	u.ports.PortWriteByte(u.base+regFIFOControl, 0)

	// Unlock the divisor, set the baud rate and lock it again
	divisor := uint16(baseClock / baudRate)
	u.ports.PortWriteByte(u.base+regLineControl, 0x80)
	u.ports.PortWriteByte(u.base+regData, uint8(divisor))
	u.ports.PortWriteByte(u.base+regIntrEnable, uint8(divisor>>8))
	u.ports.PortWriteByte(u.base+regLineControl, 0x03)
	u.ports.PortWriteByte(u.base+regModemCtrl, 0)
	u.ports.PortWriteByte(u.base+regIntrEnable, 0x01)

	// A floating bus reads back as 0xff
	if u.ports.PortReadByte(u.base+regLineStatus) == 0xff {
		return errNoUART
	}

	kfmt.Fprintf(w, "port 0x%x, %d baud\n", kfmt.Uint(uint32(u.base)), kfmt.Uint(baudRate))
	return nil
}
