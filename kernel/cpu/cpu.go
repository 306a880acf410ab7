// Package cpu exposes the processor capabilities used by device drivers:
// interrupt masking, halting and I/O port access.
package cpu

import "sync/atomic"

// CPU is implemented by objects that control the processor executing the
// caller.
type CPU interface {
	// ID returns the local APIC id of the processor.
	ID() uint32

	// EnableInterrupts enables interrupt handling.
	EnableInterrupts()

	// DisableInterrupts disables interrupt handling.
	DisableInterrupts()

	// Halt stops instruction execution. On real hardware Halt never
	// returns.
	Halt()
}

// Ports is implemented by objects that provide access to the I/O port
// address space.
type Ports interface {
	// PortWriteByte writes a uint8 value to the requested port.
	PortWriteByte(port uint16, val uint8)

	// PortReadByte reads a uint8 value from the requested port.
	PortReadByte(port uint16) uint8
}

var (
	// parkFn blocks the calling goroutine forever. It is mocked by tests.
	parkFn = func() { select {} }
)

// Hosted implements CPU for a kernel that runs as a regular process. Each
// goroutine calling into the kernel plays the role of an execution context;
// halting parks the calling goroutine forever.
type Hosted struct {
	id uint32

	intrDisabled atomic.Bool
	halts        atomic.Uint32
}

// NewHosted returns a hosted CPU reporting apicID as its local APIC id.
func NewHosted(apicID uint32) *Hosted {
	return &Hosted{id: apicID}
}

// ID returns the local APIC id of the processor.
func (c *Hosted) ID() uint32 {
	return c.id
}

// EnableInterrupts enables interrupt handling.
func (c *Hosted) EnableInterrupts() {
	c.intrDisabled.Store(false)
}

// DisableInterrupts disables interrupt handling.
func (c *Hosted) DisableInterrupts() {
	c.intrDisabled.Store(true)
}

// InterruptsEnabled returns true if interrupt handling is enabled.
func (c *Hosted) InterruptsEnabled() bool {
	return !c.intrDisabled.Load()
}

// Halt parks the calling goroutine.
func (c *Hosted) Halt() {
	c.halts.Add(1)
	Halt()
}

// HaltCount returns the number of execution contexts that entered Halt.
func (c *Hosted) HaltCount() uint32 {
	return c.halts.Load()
}

// Halt stops instruction execution on the calling execution context. Calls to
// Halt never return.
func Halt() {
	parkFn()
}
