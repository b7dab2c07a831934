// Package app is the demo system: a console print server, a stack
// watchdog and a main thread offering a command shell on every serial line
// that connects.
package app

import (
	"errors"
	"fmt"

	"rtk/drivers/serial"
	"rtk/hal"
	"rtk/kernel"
)

const (
	defaultStackSize      = 2048
	defaultWatchdogPeriod = 50
)

// Config describes the demo system.
type Config struct {
	// Ports are the serial lines offered to shells. Port i signals event i
	// on the main thread, with the exit of its shell.
	Ports []*serial.Driver
	// Logger receives console lines.
	Logger hal.Logger
	// StackSize is the stack region of every demo thread.
	StackSize int
	// WatchdogPeriod is the interval between stack guard checks.
	WatchdogPeriod kernel.Ticks
	// OnLogout, if set, runs on the main thread once the shell of port i
	// has exited.
	OnLogout func(port int)
}

// System is a started demo.
type System struct {
	k   *kernel.Kernel
	cfg Config

	console  kernel.Handle
	watchdog kernel.Handle
	main     kernel.Handle
}

// Start creates the demo threads on k and resumes them.
func Start(k *kernel.Kernel, cfg Config) (*System, error) {
	if cfg.Logger == nil {
		return nil, errors.New("app: nil logger")
	}
	if len(cfg.Ports) > 32 {
		return nil, fmt.Errorf("app: %d ports, at most 32", len(cfg.Ports))
	}
	if cfg.StackSize == 0 {
		cfg.StackSize = defaultStackSize
	}
	if cfg.WatchdogPeriod == 0 {
		cfg.WatchdogPeriod = defaultWatchdogPeriod
	}
	s := &System{k: k, cfg: cfg}

	var err error
	if s.watchdog, err = s.create("watchdog", kernel.NormalPriority+2, s.watchdogMain, nil); err != nil {
		return nil, err
	}
	if s.console, err = s.create("console", kernel.NormalPriority+1, s.consoleMain, nil); err != nil {
		return nil, err
	}
	if s.main, err = s.create("main", kernel.NormalPriority, s.mainThread, nil); err != nil {
		return nil, err
	}
	for _, h := range []kernel.Handle{s.watchdog, s.console, s.main} {
		if err := k.Resume(h); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *System) create(name string, prio kernel.Priority, entry kernel.Entry, arg any) (kernel.Handle, error) {
	h, err := s.k.Create(name, prio, make([]byte, s.cfg.StackSize), entry, arg)
	if err != nil {
		return kernel.Handle{}, fmt.Errorf("app: create %s: %w", name, err)
	}
	return h, nil
}

// Console returns the console server thread.
func (s *System) Console() kernel.Handle { return s.console }

// Main returns the main thread.
func (s *System) Main() kernel.Handle { return s.main }
