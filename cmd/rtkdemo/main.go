// Command rtkdemo runs the kernel demo system on the host: a command shell
// on the terminal, driven by a host tick source.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"rtk/app"
	"rtk/drivers/serial"
	"rtk/hal"
	"rtk/internal/buildinfo"
	"rtk/kernel"
	"rtk/port"

	"v.io/x/lib/cmdline"
	"v.io/x/lib/vlog"
)

var (
	flagHz         int
	flagTicks      uint64
	flagQuantum    uint
	flagMaxThreads int
	flagDebug      bool
)

func main() {
	cmdRoot.Flags.IntVar(&flagHz, "hz", 1000, "System tick rate.")
	cmdRoot.Flags.Uint64Var(&flagTicks, "ticks", 0, "Stop after N ticks (0 = run until logout).")
	cmdRoot.Flags.UintVar(&flagQuantum, "quantum", 0, "Round-robin time slice in ticks (0 = disabled).")
	cmdRoot.Flags.IntVar(&flagMaxThreads, "max-threads", 0, "Thread slots (0 = kernel default).")
	cmdRoot.Flags.BoolVar(&flagDebug, "debug", false, "Check the ready list after every scheduling decision.")
	cmdline.Main(cmdRoot)
}

var cmdRoot = &cmdline.Command{
	Runner: cmdline.RunnerFunc(runDemo),
	Name:   "rtkdemo",
	Short:  "runs the kernel demo shell on the terminal",
	Long: `
Command rtkdemo boots the kernel with a console server, a stack watchdog and
a command shell attached to the terminal as serial line COM1. The demo ends
when the shell logs out, the tick limit is reached or the process is
interrupted.
`,
}

func runDemo(env *cmdline.Env, args []string) error {
	if len(args) > 0 {
		return env.UsageErrorf("unexpected arguments: %v", args)
	}
	if err := vlog.ConfigureLibraryLoggerFromFlags(); err != nil {
		return err
	}
	vlog.Infof("rtkdemo %s", buildinfo.Full())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	// logout ends the run once the shell exits or the system halts.
	ctx, logout := context.WithCancel(ctx)
	defer logout()

	h := hal.NewWithConfig(hal.HostConfig{Log: env.Stderr, In: env.Stdin, Out: env.Stdout})
	report := app.HaltHandler(h.Logger())
	kcfg := kernel.DefaultConfig()
	kcfg.Quantum = kernel.Ticks(flagQuantum)
	kcfg.MaxThreads = flagMaxThreads
	kcfg.Debug = flagDebug
	kcfg.HaltHandler = func(info kernel.HaltInfo) {
		report(info)
		logout()
	}
	k, err := kernel.New(kcfg, port.NewHost())
	if err != nil {
		return err
	}
	defer k.Shutdown()

	com1 := serial.New("COM1")
	if _, err := app.Start(k, app.Config{
		Ports:    []*serial.Driver{com1},
		Logger:   h.Logger(),
		OnLogout: func(int) { logout() },
	}); err != nil {
		return err
	}

	restore, err := hal.RawTerminal(h.Serial())
	if err != nil {
		return fmt.Errorf("rtkdemo: raw terminal: %w", err)
	}
	defer restore()

	err = hal.RunHeadless(ctx, h, hal.HeadlessConfig{Hz: flagHz, Ticks: flagTicks},
		func(uint64) { k.Tick() },
		func(ctx context.Context) error { return com1.Pump(ctx, k, h.Serial()) },
	)
	if info := k.Halted(); info != nil {
		return info
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
