package serial

import (
	"io"

	"kconsole/kernel/sync"
)

// hostRxSize is the capacity of the emulated receive FIFO.
const hostRxSize = 256

// HostUART emulates the register interface of an 8250 UART for kernels
// running hosted. Transmitted bytes are forwarded to an io.Writer and bytes
// injected with Feed are presented through the receive buffer register.
// HostUART implements cpu.Ports.
type HostUART struct {
	base uint16
	out  io.Writer

	lock   sync.Spinlock
	regs   [8]uint8
	rx     [hostRxSize]byte
	rxHead int
	rxLen  int
}

// NewHostUART returns an emulated UART at the given I/O base that forwards
// transmitted bytes to out.
func NewHostUART(base uint16, out io.Writer) *HostUART {
	return &HostUART{base: base, out: out}
}

// Feed queues b in the receive FIFO. It returns false if the FIFO is full
// and b was discarded.
func (h *HostUART) Feed(b byte) bool {
	h.lock.Acquire()
	defer h.lock.Release()

	if h.rxLen == hostRxSize {
		return false
	}

	h.rx[(h.rxHead+h.rxLen)%hostRxSize] = b
	h.rxLen++
	return true
}

// PortWriteByte implements cpu.Ports.
func (h *HostUART) PortWriteByte(port uint16, val uint8) {
	if port < h.base || port >= h.base+uint16(len(h.regs)) {
		return
	}

	reg := port - h.base

	h.lock.Acquire()
	dlab := h.regs[regLineControl]&0x80 != 0
	h.regs[reg] = val
	h.lock.Release()

	if reg == regData && !dlab && h.out != nil {
		h.out.Write([]byte{val})
	}
}

// PortReadByte implements cpu.Ports.
func (h *HostUART) PortReadByte(port uint16) uint8 {
	if port < h.base || port >= h.base+uint16(len(h.regs)) {
		return 0xff
	}

	h.lock.Acquire()
	defer h.lock.Release()

	switch reg := port - h.base; reg {
	case regLineStatus:
		status := lsrTHREmpty
		if h.rxLen != 0 {
			status |= lsrDataReady
		}
		return status
	case regData:
		if h.rxLen == 0 {
			return 0
		}
		b := h.rx[h.rxHead]
		h.rxHead = (h.rxHead + 1) % hostRxSize
		h.rxLen--
		return b
	default:
		return h.regs[reg]
	}
}
