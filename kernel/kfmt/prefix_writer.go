package kfmt

import "io"

// PrefixWriter is an io.Writer that wraps another io.Writer and injects a
// prefix at the beginning of each line. The prefix is emitted lazily, right
// before the first byte of a line reaches the sink.
type PrefixWriter struct {
	// A writer where all writes get sent to.
	Sink io.Writer

	// The prefix injected at the beginning of each line.
	Prefix []byte

	midLine bool
}

// Write writes len(p) bytes from p to the underlying data stream and returns
// back the number of bytes written. The injected prefix is not included in
// the number of written bytes returned by this method.
func (w *PrefixWriter) Write(p []byte) (int, error) {
	var written, start int

	for index, b := range p {
		if !w.midLine {
			if _, err := w.Sink.Write(w.Prefix); err != nil {
				return written, err
			}
			w.midLine = true
		}

		if b != '\n' {
			continue
		}

		n, err := w.Sink.Write(p[start : index+1])
		written += n
		if err != nil {
			return written, err
		}

		start = index + 1
		w.midLine = false
	}

	if start < len(p) {
		n, err := w.Sink.Write(p[start:])
		written += n
		if err != nil {
			return written, err
		}
	}

	return written, nil
}
