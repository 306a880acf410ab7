package console

import "kconsole/kernel/sync"

// CRTC controller ports and cursor location registers of a CGA-compatible
// display adapter.
const (
	crtcIndexPort uint16 = 0x3d4
	crtcDataPort  uint16 = 0x3d5

	crtcRegCursorHigh uint8 = 14
	crtcRegCursorLow  uint8 = 15
)

// CRTC emulates the register file of a 6845 CRT controller at the standard
// CGA ports. It implements cpu.Ports so it can stand in for real port I/O
// when the kernel runs hosted.
type CRTC struct {
	lock  sync.Spinlock
	index uint8
	regs  [256]uint8
}

// PortWriteByte selects a register (index port) or stores a value into the
// selected register (data port). Writes to other ports are ignored.
func (c *CRTC) PortWriteByte(port uint16, val uint8) {
	c.lock.Acquire()
	switch port {
	case crtcIndexPort:
		c.index = val
	case crtcDataPort:
		c.regs[c.index] = val
	}
	c.lock.Release()
}

// PortReadByte returns the selected register index (index port) or the value
// of the selected register (data port). Reads from other ports return 0xff
// like a floating bus.
func (c *CRTC) PortReadByte(port uint16) uint8 {
	c.lock.Acquire()
	defer c.lock.Release()

	switch port {
	case crtcIndexPort:
		return c.index
	case crtcDataPort:
		return c.regs[c.index]
	default:
		return 0xff
	}
}

// Cursor returns the cursor location currently latched in registers 14 and
// 15.
func (c *CRTC) Cursor() uint16 {
	c.lock.Acquire()
	defer c.lock.Release()

	return uint16(c.regs[crtcRegCursorHigh])<<8 | uint16(c.regs[crtcRegCursorLow])
}
