// Command consim boots the console subsystem as a regular process. In screen
// mode the CGA display is rendered on the host terminal and key presses are
// delivered through the keyboard controller. In raw mode the host terminal is
// attached to the serial port.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/gdamore/tcell/v2"
	"golang.org/x/sync/errgroup"

	"kconsole/kernel/hal"
)

func exit(err error) {
	fmt.Fprintf(os.Stderr, "[consim] error: %s\n", err.Error())
	os.Exit(1)
}

func main() {
	cmdLine := flag.String("cmdline", "", "boot command line, e.g. \"console.cols=80 console.echo=off\"")
	mode := flag.String("mode", "screen", "front-end: screen (render the display) or raw (attach to the serial port)")
	serialLog := flag.String("serial", "", "file receiving serial output in screen mode")
	flag.Parse()

	cfg, kerr := hal.ParseCmdLine(*cmdLine)
	if kerr != nil {
		exit(kerr)
	}

	var err error
	switch *mode {
	case "screen":
		err = runScreen(cfg, *serialLog)
	case "raw":
		err = runRaw(cfg)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}

	if err != nil && !errors.Is(err, errQuit) {
		exit(err)
	}
}

func runScreen(cfg hal.Config, serialLog string) error {
	serialOut := io.Discard
	if serialLog != "" {
		f, err := os.Create(serialLog)
		if err != nil {
			return err
		}
		defer f.Close()
		serialOut = f
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}

	if err := screen.Init(); err != nil {
		return err
	}

	sim, err := newSimulator(cfg, serialOut)
	if err != nil {
		screen.Fini()
		return err
	}

	front := newScreenFrontend(sim, screen)
	defer front.fini()

	g, ctx := errgroup.WithContext(context.Background())
	g.Go(front.pollKeys)
	g.Go(func() error { return front.refresh(ctx) })
	g.Go(func() error { return sim.runShell(ctx) })
	g.Go(func() error {
		// Closing the screen unblocks pollKeys
		<-ctx.Done()
		front.fini()
		return nil
	})

	return g.Wait()
}

func runRaw(cfg hal.Config) error {
	if !cfg.Serial {
		return errors.New("raw mode requires the serial console")
	}

	restore, err := makeRaw(int(os.Stdin.Fd()))
	if err != nil {
		return fmt.Errorf("raw mode: %w", err)
	}
	defer restore()

	out := crlfWriter{os.Stdout}
	sim, err := newSimulator(cfg, out)
	if err != nil {
		return err
	}

	front := &rawFrontend{sim: sim, in: os.Stdin, echo: out}

	g, ctx := errgroup.WithContext(context.Background())
	g.Go(func() error { return front.pumpInput(ctx) })
	g.Go(func() error { return sim.runShell(ctx) })

	return g.Wait()
}
