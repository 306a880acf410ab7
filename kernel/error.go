package kernel

// Error describes a kernel error. All kernel errors must be defined as global
// variables that are pointers to the Error structure so that error paths never
// need to allocate.
type Error struct {
	// The module where the error occurred.
	Module string

	// The error message
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

var (
	// ErrInterrupted is returned by blocking console reads whose owning
	// context was cancelled while waiting for input.
	ErrInterrupted = &Error{Module: "tty", Message: "interrupted"}

	// ErrNoDevice is returned when an I/O request targets a device
	// number with no registered driver.
	ErrNoDevice = &Error{Module: "device", Message: "no such device"}
)
