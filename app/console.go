package app

import (
	"strings"

	"rtk/kernel"

	"v.io/x/lib/vlog"
)

// consoleMain serializes console output: each message is the line itself,
// written whole before its sender runs again.
func (s *System) consoleMain(ctx *kernel.Context, _ any) kernel.Msg {
	for !ctx.ShouldTerminate() {
		sender, p := ctx.WaitMessage()
		if line, ok := p.(string); ok {
			s.cfg.Logger.WriteLineString(strings.TrimRight(line, "\r\n"))
		}
		ctx.Release(sender, kernel.MsgOK)
	}
	return kernel.MsgOK
}

// Print writes line on the console through the console server.
func (s *System) Print(ctx *kernel.Context, line string) {
	if _, err := ctx.Send(s.console, line); err != nil {
		vlog.Errorf("app: console: %v", err)
	}
}
