package main

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
)

// refreshInterval controls how often the framebuffer is copied to the host
// terminal.
const refreshInterval = 30 * time.Millisecond

// errQuit is returned by the front-ends when the user asks to leave the
// simulator.
var errQuit = errors.New("quit requested")

// cgaColors maps the 4-bit CGA palette to terminal colors.
var cgaColors = [16]tcell.Color{
	tcell.ColorBlack, tcell.ColorNavy, tcell.ColorGreen, tcell.ColorTeal,
	tcell.ColorMaroon, tcell.ColorPurple, tcell.ColorOlive, tcell.ColorSilver,
	tcell.ColorGray, tcell.ColorBlue, tcell.ColorLime, tcell.ColorAqua,
	tcell.ColorRed, tcell.ColorFuchsia, tcell.ColorYellow, tcell.ColorWhite,
}

// cellStyle converts a CGA attribute byte to a tcell style.
func cellStyle(attr uint8) tcell.Style {
	return tcell.StyleDefault.
		Foreground(cgaColors[attr&0xf]).
		Background(cgaColors[(attr>>4)&0x7])
}

// keyToByte translates a key event to the code delivered by the keyboard
// controller. Keys without an ASCII representation are ignored.
func keyToByte(ev *tcell.EventKey) (byte, bool) {
	switch key := ev.Key(); {
	case key == tcell.KeyRune:
		r := ev.Rune()
		if ev.Modifiers()&tcell.ModCtrl != 0 && r >= '@' && r <= '_' {
			return byte(r) & 0x1f, true
		}
		if ev.Modifiers()&tcell.ModCtrl != 0 && r >= 'a' && r <= 'z' {
			return byte(r-'a') + 1, true
		}
		if r >= 0x80 {
			return 0, false
		}
		return byte(r), true
	case key < 0x80:
		// Control keys carry their ASCII code
		return byte(key), true
	default:
		return 0, false
	}
}

// screenFrontend renders the console display on a host terminal and feeds
// key presses to the keyboard controller.
type screenFrontend struct {
	sim    *simulator
	screen tcell.Screen
	cells  []uint16

	finiOnce sync.Once
}

func newScreenFrontend(sim *simulator, screen tcell.Screen) *screenFrontend {
	return &screenFrontend{
		sim:    sim,
		screen: screen,
		cells:  make([]uint16, len(sim.fb)),
	}
}

// fini restores the host terminal. It is safe to call more than once.
func (f *screenFrontend) fini() {
	f.finiOnce.Do(f.screen.Fini)
}

// render draws the current framebuffer contents and the hardware cursor.
func (f *screenFrontend) render() {
	cursor := f.sim.snapshot(f.cells)
	width := int(f.sim.cfg.Columns)

	for off, cell := range f.cells {
		ch := rune(cell & 0xff)
		if ch < ' ' || ch >= 0x7f {
			ch = ' '
		}
		f.screen.SetContent(off%width, off/width, ch, nil, cellStyle(uint8(cell>>8)))
	}

	if f.sim.frozen() {
		f.screen.HideCursor()
	} else {
		f.screen.ShowCursor(int(cursor)%width, int(cursor)/width)
	}

	f.screen.Show()
}

// refresh redraws the screen until ctx is cancelled.
func (f *screenFrontend) refresh(ctx context.Context) error {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		f.render()

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// pollKeys forwards key presses to the simulator until the screen is closed
// or Escape is pressed.
func (f *screenFrontend) pollKeys() error {
	for {
		switch ev := f.screen.PollEvent().(type) {
		case nil:
			return nil
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyEscape {
				return errQuit
			}

			if c, ok := keyToByte(ev); ok {
				f.sim.keyPress(c)
			}
		case *tcell.EventResize:
			f.screen.Sync()
		}
	}
}
