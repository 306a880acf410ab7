package kfmt

import (
	"kconsole/kernel"
	"kconsole/kernel/cpu"
)

var (
	// cpuHaltFn is mocked by tests.
	cpuHaltFn = cpu.Halt

	// panicHandler receives the message of every Panic call once a console
	// has been registered via SetPanicHandler.
	panicHandler func(msg string)

	errRuntimePanic = &kernel.Error{Module: "rt", Message: "unknown cause"}
)

// SetPanicHandler registers fn as the target of all future Panic calls. The
// console driver registers its own panic path so that a kernel panic freezes
// all console output.
func SetPanicHandler(fn func(msg string)) {
	panicHandler = fn
}

// Panic outputs the supplied error (if not nil) to the console and halts the
// CPU. Calls to Panic never return.
//
// If a panic handler has been registered, Panic forwards a "[module] message"
// description of the error to it. Otherwise, it prints a banner to the output
// sink and halts the calling execution context.
func Panic(e interface{}) {
	var err *kernel.Error

	switch t := e.(type) {
	case *kernel.Error:
		err = t
	case string:
		panicString(t)
		return
	case error:
		errRuntimePanic.Message = t.Error()
		err = errRuntimePanic
	}

	if panicHandler != nil {
		if err == nil {
			panicHandler("unknown cause")
		} else {
			panicHandler("[" + err.Module + "] " + err.Message)
		}
		return
	}

	Printf("\n-----------------------------------\n")
	if err != nil {
		Printf("[%s] unrecoverable error: %s\n", Str(err.Module), Str(err.Message))
	}
	Printf("*** kernel panic: system halted ***")
	Printf("\n-----------------------------------\n")

	cpuHaltFn()
}

// panicString wraps a panic message into a runtime error.
func panicString(msg string) {
	errRuntimePanic.Message = msg
	Panic(errRuntimePanic)
}
