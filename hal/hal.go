package hal

import (
	"errors"
	"io"
)

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

var ErrNotImplemented = errors.New("not implemented")

// Time provides a base tick stream.
//
// Each value received is the sequence number of one elapsed tick; the tick
// duration is set by the runner.
type Time interface {
	Ticks() <-chan uint64
}

// Serial is a raw byte line to a terminal.
type Serial interface {
	io.Reader
	io.Writer
}

// HAL provides the only contact point between the kernel and the outside
// world.
type HAL interface {
	Logger() Logger
	Time() Time
	Serial() Serial
}
