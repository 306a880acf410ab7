package main

import (
	"context"
	"strings"

	"kconsole/device"
	"kconsole/kernel"
	"kconsole/kernel/kfmt"
	"kconsole/kernel/sync"
)

// inode is the handle the shell holds on the console device file.
type inode struct {
	lock sync.Spinlock
}

func (ip *inode) Lock()   { ip.lock.Acquire() }
func (ip *inode) Unlock() { ip.lock.Release() }

// shell runs a line-oriented command loop on the console device until it
// reads end-of-input or ctx is cancelled.
func (s *simulator) shell(ctx context.Context) error {
	var (
		ip  inode
		buf [128]byte
		sw  = &s.devs.Switch
	)

	ip.Lock()
	defer ip.Unlock()

	for {
		sw.Write(device.ConsoleMajor, &ip, []byte("$ "))

		s.shellWaiting.Store(true)
		n, err := sw.Read(ctx, device.ConsoleMajor, &ip, buf[:])
		s.shellWaiting.Store(false)

		switch {
		case err == kernel.ErrInterrupted:
			return ctx.Err()
		case err != nil:
			return err
		case n == 0:
			sw.Write(device.ConsoleMajor, &ip, []byte("\nlogout\n"))
			return nil
		}

		s.runCommand(&ip, strings.TrimSpace(string(buf[:n])))
	}
}

func (s *simulator) runCommand(ip device.Inode, line string) {
	sw := &s.devs.Switch
	cmd, arg, _ := strings.Cut(line, " ")

	switch cmd {
	case "":
	case "help":
		sw.Write(device.ConsoleMajor, ip, []byte("commands: echo <text>, ps, panic, help; ^D logs out\n"))
	case "echo":
		sw.Write(device.ConsoleMajor, ip, []byte(arg+"\n"))
	case "ps":
		s.procDump()
	case "panic":
		kfmt.Panic("panic requested from the shell")
	default:
		kfmt.Printf("%s: command not found\n", kfmt.Str(cmd))
	}
}

// runShell runs the shell until it exits or ctx is cancelled. A shell that
// halted after a kernel panic never finishes, so it runs detached and only
// ctx can end the wait.
func (s *simulator) runShell(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- s.shell(ctx) }()

	select {
	case err := <-done:
		if err == nil {
			// Logging out ends the session
			return errQuit
		}
		return err
	case <-ctx.Done():
		return nil
	}
}
