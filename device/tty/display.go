// Package tty implements the kernel console: a line discipline buffer fed
// by input interrupts, an output multiplexer that mirrors kernel output to
// the serial port and a scrolling text display, and the console character
// device that ties them together.
package tty

import (
	"io"

	"kconsole/device/video/console"
)

// Display renders a byte stream onto a text console. It keeps a single
// linear cursor that wraps at the end of each row and scrolls the console
// contents up once output reaches the last row. The last row is always kept
// blank.
//
// The following special characters are interpreted:
//  - \n (line-feed)
//  - \b (backspace)
type Display struct {
	cons console.Device

	width  uint32
	height uint32
	cursor uint32

	// fatalFn is invoked when the cursor leaves the console.
	fatalFn func(msg string)
}

// NewDisplay creates a display that reports cursor corruption to fatalFn.
func NewDisplay(fatalFn func(msg string)) *Display {
	return &Display{fatalFn: fatalFn}
}

// AttachTo connects the display to a console instance. The cursor position
// is restored from the console's hardware cursor.
func (d *Display) AttachTo(cons console.Device) {
	if cons == nil {
		return
	}

	d.cons = cons
	d.width, d.height = cons.Dimensions()
	d.cursor = cons.CursorOffset()
	if d.cursor >= d.width*d.height {
		d.cursor = 0
	}
}

// Dimensions returns the width and height of the attached console.
func (d *Display) Dimensions() (uint32, uint32) {
	return d.width, d.height
}

// Cursor returns the current cursor offset.
func (d *Display) Cursor() uint32 {
	return d.cursor
}

// Snapshot copies the visible console cells into dst and returns the number
// of copied cells.
func (d *Display) Snapshot(dst []uint16) int {
	if d.cons == nil {
		return 0
	}

	count := d.width * d.height
	if uint32(len(dst)) < count {
		count = uint32(len(dst))
	}

	for off := uint32(0); off < count; off++ {
		dst[off] = d.cons.Cell(off)
	}

	return int(count)
}

// Write implements io.Writer.
func (d *Display) Write(data []byte) (int, error) {
	for count, b := range data {
		if err := d.WriteByte(b); err != nil {
			return count, err
		}
	}

	return len(data), nil
}

// WriteByte implements io.ByteWriter.
func (d *Display) WriteByte(b byte) error {
	if d.cons == nil {
		return io.ErrClosedPipe
	}

	switch b {
	case '\n':
		d.cursor += d.width - d.cursor%d.width
	case '\b':
		if d.cursor > 0 {
			d.cursor--
		}
		d.cons.SetCell(d.cursor, console.BlankCell)
	default:
		d.cons.SetCell(d.cursor, console.MakeCell(b, console.DefaultAttr))
		d.cursor++
	}

	// A cursor outside the console means its state has been corrupted.
	// Home it so the fatal handler can still render its message.
	if d.cursor > d.width*d.height {
		d.cursor = 0
		if d.fatalFn != nil {
			d.fatalFn("pos under/overflow")
		}
		return nil
	}

	if d.cursor/d.width >= d.height-1 {
		d.scroll()
	}

	d.cons.SetCursorOffset(d.cursor)
	d.cons.SetCell(d.cursor, console.BlankCell)
	return nil
}

// scroll moves the console contents up by one row and clears the last row.
func (d *Display) scroll() {
	d.cons.Scroll(console.ScrollDirUp, 1)
	d.cons.Fill((d.height-1)*d.width, d.width, console.BlankCell)
	d.cursor -= d.width
}
