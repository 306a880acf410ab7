package console

// ScrollDir defines a scroll direction.
type ScrollDir uint8

// The supported list of scroll directions for the console Scroll() calls.
const (
	ScrollDirUp ScrollDir = iota
	ScrollDirDown
)

// DefaultAttr is the attribute used for all cells written by the kernel:
// light gray text on black background.
const DefaultAttr uint8 = 0x07

// MakeCell encodes a character and its display attribute into a framebuffer
// cell. The low byte holds the character code and the high byte holds the
// attribute.
func MakeCell(ch byte, attr uint8) uint16 {
	return uint16(attr)<<8 | uint16(ch)
}

// BlankCell is a space rendered with DefaultAttr.
var BlankCell = MakeCell(' ', DefaultAttr)

// The Device interface is implemented by text-mode consoles whose contents
// are addressed as a flat array of cells. Cell offsets are linear
// (row*width + column) and 0-based.
type Device interface {
	// Dimensions returns the console width and height in characters.
	Dimensions() (uint32, uint32)

	// Cell returns the cell stored at the specified offset. Offsets
	// outside the console return 0.
	Cell(offset uint32) uint16

	// SetCell stores a cell at the specified offset. Offsets outside the
	// console are ignored.
	SetCell(offset uint32, cell uint16)

	// Fill sets count cells starting at offset to the supplied value.
	// The region is clipped to the console.
	Fill(offset, count uint32, cell uint16)

	// Scroll the console contents to the specified direction. The caller
	// is responsible for updating (e.g. clear or replace) the contents of
	// the region that was scrolled.
	Scroll(dir ScrollDir, lines uint32)

	// CursorOffset returns the hardware cursor position.
	CursorOffset() uint32

	// SetCursorOffset moves the hardware cursor to the specified offset.
	SetCursorOffset(offset uint32)
}
