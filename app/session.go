package app

import (
	"fmt"

	"rtk/drivers/serial"
	"rtk/kernel"
)

// session is the main thread's state for one serial line.
type session struct {
	id     kernel.EventID
	port   *serial.Driver
	status kernel.Listener
	exit   kernel.Listener
	shell  kernel.Handle
}

func (s *System) mainThread(ctx *kernel.Context, _ any) kernel.Msg {
	names := ""
	for i, d := range s.cfg.Ports {
		if i > 0 {
			names += ", "
		}
		names += d.Name()
	}
	s.Print(ctx, "Console service started on "+names)

	sessions := make([]*session, len(s.cfg.Ports))
	handlers := make([]kernel.EventHandler, len(s.cfg.Ports))
	for i, d := range s.cfg.Ports {
		ss := &session{id: kernel.EventID(i), port: d}
		sessions[i] = ss
		handlers[i] = func(kernel.EventID) { s.handlePort(ctx, ss) }

		s.Print(ctx, "  - Listening for connections on "+d.Name())
		ctx.RegisterFiltered(d.Status(), &ss.status, ss.id, serial.Connected|serial.Disconnected)
		// A line may have connected before the listener was in place.
		ctx.ClearEvents(kernel.EventBit(ss.id))
		s.handlePort(ctx, ss)
	}

	for !ctx.ShouldTerminate() {
		ctx.DispatchEvents(kernel.AllEvents, kernel.Infinite, handlers)
	}
	for _, ss := range sessions {
		ctx.Unregister(ss.port.Status(), &ss.status)
	}
	return kernel.MsgOK
}

// handlePort reacts to a status change of the line or the exit of its
// shell.
func (s *System) handlePort(ctx *kernel.Context, ss *session) {
	if ss.shell.Valid() {
		if st, err := s.k.State(ss.shell); err == nil && st == kernel.StateTerminated {
			ctx.Join(ss.shell)
			ss.shell = kernel.Handle{}
			s.Print(ctx, "Init: disconnection on "+ss.port.Name())
			if s.cfg.OnLogout != nil {
				s.cfg.OnLogout(int(ss.id))
			}
		}
	}

	flags := ss.port.GetAndClearFlags(ctx)
	if flags&serial.Connected != 0 && !ss.shell.Valid() {
		s.Print(ctx, "Init: connection on "+ss.port.Name())
		if err := s.startShell(ctx, ss); err != nil {
			s.Print(ctx, fmt.Sprintf("Init: %s: %v", ss.port.Name(), err))
		}
	}
	if flags&serial.Disconnected != 0 && ss.shell.Valid() {
		ss.port.ResetInput(ctx)
	}
}

// startShell creates the shell suspended, so its exit cannot be missed,
// listens for that exit and then starts it.
func (s *System) startShell(ctx *kernel.Context, ss *session) error {
	h, err := s.create("shell-"+ss.port.Name(), kernel.NormalPriority, s.shellMain, ss.port)
	if err != nil {
		return err
	}
	src, err := s.k.ExitEvent(h)
	if err != nil {
		return err
	}
	if err := ctx.Register(src, &ss.exit, ss.id); err != nil {
		return err
	}
	ss.shell = h
	return ctx.Resume(h)
}
