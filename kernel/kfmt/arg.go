package kfmt

// argKind identifies the type of value carried by an Arg.
type argKind uint8

const (
	kindInt argKind = iota
	kindUint
	kindPtr
	kindStr
	kindStrPtr
)

// Arg is a typed argument consumed by Fprintf. Args are constructed with
// Int, Uint, Ptr, Str and StrPtr and are consumed in order by the formatting
// verbs of the format string.
type Arg struct {
	kind   argKind
	num    uint64
	str    string
	strPtr *string
}

// Int returns an Arg for a signed 32-bit integer.
func Int(v int32) Arg {
	return Arg{kind: kindInt, num: uint64(int64(v))}
}

// Uint returns an Arg for an unsigned 32-bit integer.
func Uint(v uint32) Arg {
	return Arg{kind: kindUint, num: uint64(v)}
}

// Ptr returns an Arg for a pointer-sized unsigned value.
func Ptr(v uintptr) Arg {
	return Arg{kind: kindPtr, num: uint64(v)}
}

// Str returns an Arg for a string.
func Str(s string) Arg {
	return Arg{kind: kindStr, str: s}
}

// StrPtr returns an Arg for a string that may be missing. A nil pointer is
// rendered as "(null)".
func StrPtr(s *string) Arg {
	return Arg{kind: kindStrPtr, strPtr: s}
}
