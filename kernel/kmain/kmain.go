package kmain

import (
	"kconsole/device/tty"
	"kconsole/kernel"
	"kconsole/kernel/hal"
	"kconsole/kernel/kfmt"
)

// Kmain boots the console subsystem on the hardware described by p.
// Interrupts stay masked while drivers are probed and are enabled once the
// console is ready to receive input.
//
// Output printed before the console is attached is buffered and replayed on
// the console by the hal.
func Kmain(cfg hal.Config, p hal.Platform) (*hal.Devices, *kernel.Error) {
	if p.CPU != nil {
		p.CPU.DisableInterrupts()
	}

	kfmt.Printf("Starting kconsole\n")

	devs, err := hal.Init(cfg, p)
	if err != nil {
		return nil, err
	}

	p.CPU.EnableInterrupts()
	kfmt.Printf("[kmain] console ready, %d byte line buffer\n", kfmt.Int(tty.InputBufSize))

	return devs, nil
}
