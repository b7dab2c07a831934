//go:build !tinygo

package hal

import (
	"io"
	"os"
	"sync"

	"golang.org/x/term"
)

type hostSerial struct {
	mu sync.Mutex
	r  io.Reader
	w  io.Writer
}

func (s *hostSerial) Read(p []byte) (int, error) {
	if s.r == nil {
		return 0, ErrNotImplemented
	}
	return s.r.Read(p)
}

func (s *hostSerial) Write(p []byte) (int, error) {
	if s.w == nil {
		return 0, ErrNotImplemented
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// RawTerminal puts the input side of a host serial line into raw mode when
// it is a terminal, so every key reaches the line unbuffered and unechoed.
// The returned function restores the previous mode; it is a no-op when
// nothing was changed.
func RawTerminal(s Serial) (restore func(), err error) {
	hs, ok := s.(*hostSerial)
	if !ok {
		return func() {}, nil
	}
	f, ok := hs.r.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return func() {}, nil
	}
	old, err := term.MakeRaw(int(f.Fd()))
	if err != nil {
		return nil, err
	}
	return func() { term.Restore(int(f.Fd()), old) }, nil
}
