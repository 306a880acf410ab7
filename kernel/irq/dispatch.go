// Package irq routes hardware interrupt requests to the handlers registered
// by device drivers.
package irq

import (
	"sync/atomic"

	"kconsole/kernel"
	"kconsole/kernel/sync"
)

// IRQ is a legacy PIC interrupt line.
type IRQ uint8

// Interrupt lines used by the console input devices.
const (
	Keyboard IRQ = 1
	COM1     IRQ = 4
)

// maxIRQ is the number of interrupt lines handled by a Dispatcher.
const maxIRQ = 16

// Handler services an interrupt request.
type Handler func()

var (
	errBadIRQ          = &kernel.Error{Module: "irq", Message: "interrupt line out of range"}
	errAlreadyAssigned = &kernel.Error{Module: "irq", Message: "interrupt line already has a handler"}
)

// Dispatcher maps interrupt lines to handlers. Handlers for different lines
// may run concurrently; handlers for the same line may also overlap and must
// perform their own locking.
type Dispatcher struct {
	lock     sync.Spinlock
	handlers [maxIRQ]Handler

	spurious atomic.Uint32
}

// Register installs h as the handler for irq.
func (d *Dispatcher) Register(irq IRQ, h Handler) *kernel.Error {
	if irq >= maxIRQ {
		return errBadIRQ
	}

	d.lock.Acquire()
	defer d.lock.Release()

	if d.handlers[irq] != nil {
		return errAlreadyAssigned
	}

	d.handlers[irq] = h
	return nil
}

// Dispatch invokes the handler registered for irq. It returns false if no
// handler is registered; such interrupts are counted as spurious.
func (d *Dispatcher) Dispatch(irq IRQ) bool {
	var h Handler

	if irq < maxIRQ {
		d.lock.Acquire()
		h = d.handlers[irq]
		d.lock.Release()
	}

	if h == nil {
		d.spurious.Add(1)
		return false
	}

	h()
	return true
}

// Spurious returns the number of interrupts that had no handler.
func (d *Dispatcher) Spurious() uint32 {
	return d.spurious.Load()
}
