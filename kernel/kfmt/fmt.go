package kfmt

import (
	"io"
)

// maxBufSize defines the buffer size for formatting numbers.
const maxBufSize = 32

var (
	errMissingArg   = []byte("(MISSING)")
	errWrongArgType = []byte("%!(WRONGTYPE)")
	errNoVerb       = []byte("%!(NOVERB)")
	errExtraArg     = []byte("%!(EXTRA)")
	nullValue       = []byte("(null)")

	digits = "0123456789abcdef"

	// earlyPrintBuffer is a ring buffer that stores Printf output before the
	// console is initialized.
	earlyPrintBuffer ringBuffer

	// outputSink is a io.Writer where Printf will send its output. If set
	// to nil, then the output will be redirected to the earlyPrintBuffer.
	outputSink io.Writer
)

// SetOutputSink sets the default target for calls to Printf to w and copies
// any data accumulated in the earlyPrintBuffer to it.
func SetOutputSink(w io.Writer) {
	outputSink = w
	if w != nil {
		io.Copy(w, &earlyPrintBuffer)
	}
}

// GetOutputSink returns the default target for calls to Printf.
func GetOutputSink() io.Writer {
	return outputSink
}

// OutputWriter returns an io.Writer that forwards writes to the output sink
// that is active at the time of each write. Writes issued before a sink is
// installed are buffered like Printf output.
func OutputWriter() io.Writer {
	return outputWriter{}
}

type outputWriter struct{}

func (outputWriter) Write(p []byte) (int, error) {
	doWrite(outputSink, p)
	return len(p), nil
}

// Printf provides the minimal formatter used for kernel diagnostics. It
// supports the following verbs:
//
//	%d  base 10; signed for Int arguments, unsigned otherwise
//	%x  base 16, lower-case letters, no prefix
//	%p  same as %x; intended for Ptr arguments
//	%s  the string argument; a nil StrPtr renders as "(null)"
//	%%  a literal percent sign
//
// Any other verb is echoed back verbatim (a percent sign followed by the verb
// character) so that malformed format strings remain visible. A format string
// ending with a lone percent sign renders as "%!(NOVERB)".
//
// Arguments are consumed in order. A verb without a matching argument renders
// as "(MISSING)", an argument whose kind does not match its verb renders as
// "%!(WRONGTYPE)" and each unused argument appends "%!(EXTRA)".
//
// The output of Printf is written to the output sink set via SetOutputSink.
// If no sink is available, the output is buffered into a ring-buffer that
// gets flushed once a sink is installed.
func Printf(format string, args ...Arg) {
	Fprintf(outputSink, format, args...)
}

// Fprintf behaves exactly like Printf but it writes the formatted output to
// the specified io.Writer. Output is produced one byte at a time.
func Fprintf(w io.Writer, format string, args ...Arg) {
	var (
		nextCh       byte
		nextArgIndex int
		fmtLen       = len(format)
	)

	for i := 0; i < fmtLen; i++ {
		nextCh = format[i]
		if nextCh != '%' {
			writeByte(w, nextCh)
			continue
		}

		i++
		if i == fmtLen {
			doWrite(w, errNoVerb)
			break
		}

		nextCh = format[i]
		switch nextCh {
		case '%':
			writeByte(w, '%')
		case 'd', 'x', 'p', 's':
			// Run out of args to print
			if nextArgIndex >= len(args) {
				doWrite(w, errMissingArg)
				continue
			}

			switch nextCh {
			case 'd':
				fmtInt(w, args[nextArgIndex], 10)
			case 'x', 'p':
				fmtInt(w, args[nextArgIndex], 16)
			case 's':
				fmtString(w, args[nextArgIndex])
			}

			nextArgIndex++
		default:
			// Print unknown verbs to draw attention.
			writeByte(w, '%')
			writeByte(w, nextCh)
		}
	}

	// Check for unused args
	for ; nextArgIndex < len(args); nextArgIndex++ {
		doWrite(w, errExtraArg)
	}
}

// fmtString prints the string value of arg.
func fmtString(w io.Writer, arg Arg) {
	var s string

	switch arg.kind {
	case kindStr:
		s = arg.str
	case kindStrPtr:
		if arg.strPtr == nil {
			doWrite(w, nullValue)
			return
		}
		s = *arg.strPtr
	default:
		doWrite(w, errWrongArgType)
		return
	}

	for i := 0; i < len(s); i++ {
		writeByte(w, s[i])
	}
}

// fmtInt prints out a formatted version of arg in the requested base. Signed
// values are only rendered with a sign in base 10; in base 16 they are
// printed as their 32-bit two's complement.
func fmtInt(w io.Writer, arg Arg, base uint64) {
	var (
		buf      [maxBufSize]byte
		uval     = arg.num
		negative bool
		right    = maxBufSize
	)

	switch arg.kind {
	case kindInt:
		sval := int32(arg.num)
		if base == 10 && sval < 0 {
			negative = true
			uval = uint64(-int64(sval))
		} else {
			uval = uint64(uint32(sval))
		}
	case kindUint, kindPtr:
	default:
		doWrite(w, errWrongArgType)
		return
	}

	for {
		right--
		buf[right] = digits[uval%base]
		uval /= base
		if uval == 0 {
			break
		}
	}

	if negative {
		right--
		buf[right] = '-'
	}

	for ; right < maxBufSize; right++ {
		writeByte(w, buf[right])
	}
}

// doWrite emits p one byte at a time.
func doWrite(w io.Writer, p []byte) {
	for _, b := range p {
		writeByte(w, b)
	}
}

// writeByte sends a single byte to w or to the early print buffer if w is
// nil.
func writeByte(w io.Writer, b byte) {
	one := [1]byte{b}
	if w != nil {
		w.Write(one[:])
	} else {
		earlyPrintBuffer.Write(one[:])
	}
}
