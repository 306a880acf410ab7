package console

import "testing"

func TestCRTCRegisters(t *testing.T) {
	var crtc CRTC

	crtc.PortWriteByte(crtcIndexPort, crtcRegCursorHigh)
	crtc.PortWriteByte(crtcDataPort, 0x07)
	crtc.PortWriteByte(crtcIndexPort, crtcRegCursorLow)
	crtc.PortWriteByte(crtcDataPort, 0xd0)

	if got := crtc.PortReadByte(crtcIndexPort); got != crtcRegCursorLow {
		t.Fatalf("expected index port to return the selected register %d; got %d", crtcRegCursorLow, got)
	}

	if got := crtc.PortReadByte(crtcDataPort); got != 0xd0 {
		t.Fatalf("expected data port to return 0xd0; got 0x%x", got)
	}

	if got := crtc.Cursor(); got != 0x07d0 {
		t.Fatalf("expected cursor to be 0x07d0; got 0x%x", got)
	}

	// Unrelated ports are ignored on write and float on read
	crtc.PortWriteByte(0x3f8, 0x42)
	if got := crtc.PortReadByte(0x3f8); got != 0xff {
		t.Fatalf("expected read from unrelated port to return 0xff; got 0x%x", got)
	}
}
