package console

import (
	"io"

	"kconsole/kernel"
	"kconsole/kernel/cpu"
	"kconsole/kernel/kfmt"
)

var (
	errFramebufferTooSmall = &kernel.Error{Module: "cga_text_console", Message: "framebuffer smaller than console dimensions"}
	errNoPorts             = &kernel.Error{Module: "cga_text_console", Message: "no port I/O access to the CRT controller"}
	errBadDimensions       = &kernel.Error{Module: "cga_text_console", Message: "console needs at least one column and two rows"}
)

// CgaTextConsole implements a CGA-compatible text console, typically 80x25.
// Each character in the console framebuffer is represented using two bytes,
// a byte for the character ASCII code and an attribute byte that encodes the
// foreground and background colors (4 bits for each).
//
// The hardware cursor is programmed through the CRT controller registers 14
// (high byte) and 15 (low byte).
type CgaTextConsole struct {
	width  uint32
	height uint32

	fb    []uint16
	ports cpu.Ports
}

// NewCgaTextConsole creates a new text console backed by the supplied
// framebuffer. The ports argument provides access to the CRT controller.
func NewCgaTextConsole(columns, rows uint32, fb []uint16, ports cpu.Ports) *CgaTextConsole {
	return &CgaTextConsole{
		width:  columns,
		height: rows,
		fb:     fb,
		ports:  ports,
	}
}

// Dimensions returns the console width and height in characters.
func (cons *CgaTextConsole) Dimensions() (uint32, uint32) {
	return cons.width, cons.height
}

// Cell returns the cell stored at the specified offset.
func (cons *CgaTextConsole) Cell(offset uint32) uint16 {
	if offset >= cons.width*cons.height {
		return 0
	}

	return cons.fb[offset]
}

// SetCell stores a cell at the specified offset.
func (cons *CgaTextConsole) SetCell(offset uint32, cell uint16) {
	if offset >= cons.width*cons.height {
		return
	}

	cons.fb[offset] = cell
}

// Fill sets count cells starting at offset to the supplied value.
func (cons *CgaTextConsole) Fill(offset, count uint32, cell uint16) {
	size := cons.width * cons.height
	if offset >= size {
		return
	}

	if count > size-offset {
		count = size - offset
	}

	for end := offset + count; offset < end; offset++ {
		cons.fb[offset] = cell
	}
}

// Scroll the console contents to the specified direction. The caller
// is responsible for updating (e.g. clear or replace) the contents of
// the region that was scrolled.
func (cons *CgaTextConsole) Scroll(dir ScrollDir, lines uint32) {
	if lines == 0 || lines > cons.height {
		return
	}

	offset := lines * cons.width

	switch dir {
	case ScrollDirUp:
		copy(cons.fb[:(cons.height-lines)*cons.width], cons.fb[offset:cons.height*cons.width])
	case ScrollDirDown:
		copy(cons.fb[offset:cons.height*cons.width], cons.fb[:(cons.height-lines)*cons.width])
	}
}

// CursorOffset reads the hardware cursor position from the CRT controller.
func (cons *CgaTextConsole) CursorOffset() uint32 {
	cons.ports.PortWriteByte(crtcIndexPort, crtcRegCursorHigh)
	offset := uint32(cons.ports.PortReadByte(crtcDataPort)) << 8
	cons.ports.PortWriteByte(crtcIndexPort, crtcRegCursorLow)
	offset |= uint32(cons.ports.PortReadByte(crtcDataPort))

	return offset
}

// SetCursorOffset moves the hardware cursor. The 16-bit offset is
// transferred high byte first.
func (cons *CgaTextConsole) SetCursorOffset(offset uint32) {
	cons.ports.PortWriteByte(crtcIndexPort, crtcRegCursorHigh)
	cons.ports.PortWriteByte(crtcDataPort, uint8(offset>>8))
	cons.ports.PortWriteByte(crtcIndexPort, crtcRegCursorLow)
	cons.ports.PortWriteByte(crtcDataPort, uint8(offset))
}

// DriverName returns the name of this driver.
func (cons *CgaTextConsole) DriverName() string {
	return "cga_text_console"
}

// DriverVersion returns the version of this driver.
func (cons *CgaTextConsole) DriverVersion() (uint16, uint16, uint16) {
	return 0, 0, 1
}

// DriverInit initializes this driver.
func (cons *CgaTextConsole) DriverInit(w io.Writer) *kernel.Error {
	if cons.ports == nil {
		return errNoPorts
	}

	// Scrolling needs at least two rows
	if cons.width == 0 || cons.height < 2 {
		return errBadDimensions
	}

	if uint32(len(cons.fb)) < cons.width*cons.height {
		return errFramebufferTooSmall
	}

	kfmt.Fprintf(w, "%dx%d cells, cursor at %d\n", kfmt.Uint(cons.width), kfmt.Uint(cons.height), kfmt.Uint(cons.CursorOffset()))

	return nil
}
