package device

import (
	"context"

	"kconsole/kernel"
)

// ConsoleMajor is the device number of the system console.
const ConsoleMajor = 1

// maxMajor bounds the number of character device slots in a Switch.
const maxMajor = 10

// Inode is implemented by the filesystem handles that are passed to character
// devices. The caller locks the handle before invoking a device entry point;
// devices that may block must unlock it while waiting and lock it again
// before returning.
type Inode interface {
	Lock()
	Unlock()
}

// CharDevice is implemented by character devices that can be read and
// written through the filesystem layer.
type CharDevice interface {
	// Read reads up to len(dst) bytes into dst. A blocking Read observes
	// ctx and gives up with kernel.ErrInterrupted when it is cancelled.
	Read(ctx context.Context, ip Inode, dst []byte) (int, *kernel.Error)

	// Write writes src to the device.
	Write(ip Inode, src []byte) (int, *kernel.Error)
}

// Switch maps device major numbers to character device implementations.
type Switch struct {
	devices [maxMajor]CharDevice
}

var errBadMajor = &kernel.Error{Module: "device", Message: "device number out of range"}

// Register installs dev as the handler for the given major number.
func (sw *Switch) Register(major int, dev CharDevice) *kernel.Error {
	if major < 0 || major >= maxMajor {
		return errBadMajor
	}

	sw.devices[major] = dev
	return nil
}

// Lookup returns the device registered for major or nil.
func (sw *Switch) Lookup(major int) CharDevice {
	if major < 0 || major >= maxMajor {
		return nil
	}

	return sw.devices[major]
}

// Read dispatches a read request to the device registered for major.
func (sw *Switch) Read(ctx context.Context, major int, ip Inode, dst []byte) (int, *kernel.Error) {
	dev := sw.Lookup(major)
	if dev == nil {
		return 0, kernel.ErrNoDevice
	}

	return dev.Read(ctx, ip, dst)
}

// Write dispatches a write request to the device registered for major.
func (sw *Switch) Write(major int, ip Inode, src []byte) (int, *kernel.Error) {
	dev := sw.Lookup(major)
	if dev == nil {
		return 0, kernel.ErrNoDevice
	}

	return dev.Write(ip, src)
}
