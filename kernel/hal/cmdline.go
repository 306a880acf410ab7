package hal

import (
	"strconv"
	"strings"

	"kconsole/kernel"
)

// Config holds the console settings that can be tuned through the boot
// command line.
type Config struct {
	// Console dimensions in characters.
	Columns uint32
	Rows    uint32

	// Echo controls whether typed characters are rendered on the display.
	Echo bool

	// Serial controls whether console output is mirrored to COM1.
	Serial bool

	// APICID is the local APIC id reported in panic messages.
	APICID uint32
}

// DefaultConfig returns the settings used for keys missing from the boot
// command line.
func DefaultConfig() Config {
	return Config{
		Columns: 80,
		Rows:    25,
		Echo:    true,
		Serial:  true,
	}
}

var (
	errBadCmdLine      = &kernel.Error{Module: "hal", Message: "malformed boot command line"}
	errConsoleTooLarge = &kernel.Error{Module: "hal", Message: "console dimensions exceed the cursor range"}
)

// CmdLineKV splits a boot command line into key-value pairs. Fields of the
// form "key=value" map key to value whereas bare "flag" fields map flag to
// itself.
func CmdLineKV(cmdLine string) map[string]string {
	kv := make(map[string]string)
	for _, pair := range strings.Fields(cmdLine) {
		parts := strings.Split(pair, "=")
		switch len(parts) {
		case 2: // foo=bar
			kv[parts[0]] = parts[1]
		case 1: // nofoo
			kv[parts[0]] = parts[0]
		}
	}

	return kv
}

// ParseCmdLine applies the console related keys of a boot command line on
// top of DefaultConfig. Unknown keys are ignored.
//
// The recognized keys are:
//
//	console.cols=N     display width in characters
//	console.rows=N     display height in characters (at least 2)
//	console.echo=off   do not echo typed characters
//	console.serial=off do not mirror output to the serial port
//	lapicid=N          local APIC id reported in panic messages
func ParseCmdLine(cmdLine string) (Config, *kernel.Error) {
	cfg := DefaultConfig()

	for k, v := range CmdLineKV(cmdLine) {
		var err error

		switch k {
		case "console.cols":
			cfg.Columns, err = parseDim(v, 1)
		case "console.rows":
			cfg.Rows, err = parseDim(v, 2)
		case "console.echo":
			cfg.Echo, err = parseSwitch(v)
		case "console.serial":
			cfg.Serial, err = parseSwitch(v)
		case "lapicid":
			var id uint64
			id, err = strconv.ParseUint(v, 0, 32)
			cfg.APICID = uint32(id)
		}

		if err != nil {
			return cfg, errBadCmdLine
		}
	}

	// The cursor register is 16 bits wide
	if cfg.Columns*cfg.Rows > 0xffff {
		return cfg, errConsoleTooLarge
	}

	return cfg, nil
}

func parseDim(v string, min uint64) (uint32, error) {
	n, err := strconv.ParseUint(v, 10, 16)
	if err == nil && n < min {
		err = strconv.ErrRange
	}

	return uint32(n), err
}

func parseSwitch(v string) (bool, error) {
	switch v {
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, strconv.ErrSyntax
	}
}
