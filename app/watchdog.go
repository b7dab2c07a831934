package app

import (
	"fmt"

	"rtk/kernel"
)

// watchdogMain checks the guard under every thread stack and halts the
// system when one is damaged.
func (s *System) watchdogMain(ctx *kernel.Context, _ any) kernel.Msg {
	for {
		for _, ti := range s.k.Threads() {
			if ti.StackGuardOK {
				continue
			}
			s.cfg.Logger.WriteLineString(fmt.Sprintf("Halted by watchdog: %s %q stack guard damaged", ti.Handle, ti.Name))
			ctx.Halt("watchdog: stack guard of " + ti.Name)
		}
		ctx.Sleep(s.cfg.WatchdogPeriod)
	}
}
