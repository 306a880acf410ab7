package device

import (
	"io"

	"kconsole/kernel"
)

// Driver is an interface implemented by all drivers.
type Driver interface {
	// DriverName returns the name of the driver.
	DriverName() string

	// DriverVersion returns the driver version.
	DriverVersion() (major uint16, minor uint16, patch uint16)

	// DriverInit initializes the device driver. If the driver init code
	// needs to log some output, it can use the supplied io.Writer in
	// conjunction with a call to kfmt.Fprintf.
	DriverInit(io.Writer) *kernel.Error
}

// ProbeFn is a function that scans for the presence of a particular
// piece of hardware and returns a driver for it.
type ProbeFn func() Driver

// DetectOrder specifies when each driver's probe function will be invoked
// by the hal package.
type DetectOrder int8

// The supported detect order values. Drivers that other drivers depend on
// must be detected first.
const (
	// DetectOrderEarly is used by drivers of the primary output hardware
	// such as the text-mode framebuffer.
	DetectOrderEarly DetectOrder = -128

	// DetectOrderNormal is used by auxiliary hardware such as serial
	// ports.
	DetectOrderNormal DetectOrder = 0

	// DetectOrderLast is used by drivers layered on top of the hardware
	// drivers, such as the console line discipline.
	DetectOrderLast DetectOrder = 127
)

// DriverInfo is a driver-defined struct that is passed to the hal when a
// driver is registered.
type DriverInfo struct {
	// Order specifies at which stage of the HW detection step the probe
	// function should be invoked.
	Order DetectOrder

	// Probe is a function that checks for the presence of a particular
	// piece of hardware and returns back a driver for it.
	Probe ProbeFn
}

// DriverInfoList is a list of registered drivers that implements
// sort.Interface.
type DriverInfoList []*DriverInfo

// Len returns the length of the driver info list.
func (l DriverInfoList) Len() int { return len(l) }

// Swap exchanges 2 elements in the driver info list.
func (l DriverInfoList) Swap(i, j int) { l[i], l[j] = l[j], l[i] }

// Less compares 2 elements of the driver info list.
func (l DriverInfoList) Less(i, j int) bool { return l[i].Order < l[j].Order }
