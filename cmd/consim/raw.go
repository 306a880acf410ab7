package main

import (
	"bytes"
	"context"
	"io"

	"golang.org/x/term"
)

// rawQuitKey (^]) leaves the simulator in raw mode.
const rawQuitKey byte = 0x1d

// crlfWriter translates LF to CRLF for terminals in raw mode.
type crlfWriter struct {
	w io.Writer
}

func (cw crlfWriter) Write(p []byte) (int, error) {
	if _, err := cw.w.Write(bytes.ReplaceAll(p, []byte{'\n'}, []byte{'\r', '\n'})); err != nil {
		return 0, err
	}

	return len(p), nil
}

// rawFrontend attaches the host terminal to COM1: bytes typed on the host
// are received by the serial port and serial output is written back to the
// terminal.
type rawFrontend struct {
	sim  *simulator
	in   io.Reader
	echo io.Writer
}

// pumpInput forwards host input to the serial port until the input is
// exhausted, ^] is typed or ctx is cancelled. End of input is delivered to
// the console as ^D.
func (f *rawFrontend) pumpInput(ctx context.Context) error {
	type chunk struct {
		data []byte
		err  error
	}

	// Reads from the host cannot be interrupted so they run detached.
	chunks := make(chan chunk)
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		for {
			buf := make([]byte, 64)
			n, err := f.in.Read(buf)
			select {
			case chunks <- chunk{buf[:n], err}:
			case <-stop:
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case c := <-chunks:
			if i := bytes.IndexByte(c.data, rawQuitKey); i >= 0 {
				f.receive(c.data[:i])
				return errQuit
			}

			f.receive(c.data)

			if c.err == io.EOF {
				f.receive([]byte{0x04})
				return nil
			}
			if c.err != nil {
				return c.err
			}
		}
	}
}

// receive delivers p to the console. Typed characters are echoed by the
// console on its display only, so printable input is echoed locally. The
// local echo is best-effort: it may show bytes the console drops once its
// input buffer is full. Nothing is echoed after the console froze.
func (f *rawFrontend) receive(p []byte) {
	if len(p) == 0 {
		return
	}

	if f.echo != nil && f.sim.cfg.Echo && !f.sim.frozen() {
		for _, c := range p {
			switch {
			case c == '\r' || c == '\n':
				f.echo.Write([]byte{'\n'})
			case c >= ' ' && c < 0x7f:
				f.echo.Write([]byte{c})
			}
		}
	}

	f.sim.serialReceive(p)
}

// makeRaw switches fd to raw mode if it refers to a terminal and returns a
// function restoring the previous state.
func makeRaw(fd int) (func(), error) {
	if !term.IsTerminal(fd) {
		return func() {}, nil
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}

	return func() { _ = term.Restore(fd, oldState) }, nil
}
