//go:build !tinygo

package hal

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// HostConfig selects the streams behind a host HAL. Zero fields default to
// the process streams: log lines on stderr, the serial line on stdin and
// stdout.
type HostConfig struct {
	Log io.Writer
	In  io.Reader
	Out io.Writer
}

type hostHAL struct {
	logger *hostLogger
	t      *hostTime
	serial *hostSerial
}

// New returns a host HAL on the process streams.
func New() HAL {
	return NewWithConfig(HostConfig{})
}

// NewWithConfig returns a host HAL on the given streams.
func NewWithConfig(cfg HostConfig) HAL {
	if cfg.Log == nil {
		cfg.Log = os.Stderr
	}
	if cfg.In == nil {
		cfg.In = os.Stdin
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	return &hostHAL{
		logger: &hostLogger{w: cfg.Log},
		t:      newHostTime(),
		serial: &hostSerial{r: cfg.In, w: cfg.Out},
	}
}

func (h *hostHAL) Logger() Logger { return h.logger }
func (h *hostHAL) Time() Time     { return h.t }
func (h *hostHAL) Serial() Serial { return h.serial }

type hostLogger struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *hostLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, s)
}

func (l *hostLogger) WriteLineBytes(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(b)
	l.w.Write([]byte{'\n'})
}
