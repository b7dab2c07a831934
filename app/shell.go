package app

import (
	"fmt"
	"strings"

	"rtk/drivers/serial"
	"rtk/internal/buildinfo"
	"rtk/kernel"

	"github.com/google/shlex"
)

const (
	maxLine = 64

	keyCtrlC     = 0x03
	keyCtrlD     = 0x04
	keyBackspace = 0x08
	keyDelete    = 0x7f
)

type shell struct {
	sys    *System
	ctx    *kernel.Context
	d      *serial.Driver
	lastCR bool
}

type command struct {
	names []string
	help  string
	// run executes the command; it reports whether the shell should stop.
	run func(sh *shell) bool
}

var commands []command

func init() {
	commands = []command{
		{[]string{"help", "h", "?"}, "This help", (*shell).help},
		{[]string{"exit"}, "Logout", (*shell).exit},
		{[]string{"time"}, "Prints the system timer value", (*shell).time},
		{[]string{"hello"}, "Runs the Hello World demo thread", (*shell).hello},
		{[]string{"threads"}, "Lists the kernel threads", (*shell).threads},
		{[]string{"test"}, "Runs the system self test thread", (*shell).test},
	}
}

func lookupCommand(name string) *command {
	for i := range commands {
		for _, n := range commands[i].names {
			if strings.EqualFold(n, name) {
				return &commands[i]
			}
		}
	}
	return nil
}

func (s *System) shellMain(ctx *kernel.Context, arg any) kernel.Msg {
	sh := &shell{sys: s, ctx: ctx, d: arg.(*serial.Driver)}
	sh.run()
	return kernel.MsgOK
}

func (sh *shell) print(s string) { sh.d.WriteString(sh.ctx, s) }

func (sh *shell) printf(format string, args ...any) { sh.print(fmt.Sprintf(format, args...)) }

func (sh *shell) run() {
	sh.printf("RTK Command Shell (%s)\r\n\n", buildinfo.Short())
	for {
		sh.print("ch> ")
		line, ok := sh.readLine()
		if !ok {
			sh.print("\nlogout")
			return
		}
		args, err := shlex.Split(line)
		if err != nil {
			sh.printf("%s ?\r\n", line)
			continue
		}
		if len(args) == 0 {
			continue
		}
		cmd := lookupCommand(args[0])
		switch {
		case cmd == nil:
			sh.printf("%s ?\r\n", args[0])
		case len(args) > 1:
			sh.printf("%s ?\r\n", args[1])
		case cmd.run(sh):
			return
		}
	}
}

// readLine reads one line with echo and backspace editing. It fails on ^D
// or when the input queue is reset.
func (sh *shell) readLine() (string, bool) {
	var line []byte
	for {
		c, msg := sh.d.Get(sh.ctx)
		if msg != kernel.MsgOK {
			return "", false
		}
		afterCR := sh.lastCR
		sh.lastCR = c == '\r'
		switch {
		case c == keyCtrlD:
			sh.print("^D\r\n")
			return "", false
		case c == keyBackspace || c == keyDelete:
			if len(line) > 0 {
				sh.print("\b \b")
				line = line[:len(line)-1]
			}
		case c == '\n' && afterCR:
		case c == '\r' || c == '\n':
			sh.print("\r\n")
			return string(line), true
		case c < 0x20:
		default:
			if len(line) < maxLine-1 {
				sh.d.Put(sh.ctx, c)
				line = append(line, c)
			}
		}
	}
}

func (sh *shell) help() bool {
	sh.print("Commands:\r\n")
	for _, c := range commands {
		sh.printf("  %-9s- %s\r\n", strings.Join(c.names, ","), c.help)
	}
	return false
}

func (sh *shell) exit() bool {
	sh.print("\nlogout")
	return true
}

func (sh *shell) time() bool {
	sh.printf("Time: %d\r\n", sh.ctx.Now())
	return false
}

func (sh *shell) threads() bool {
	sh.printf("%-8s %-14s %4s %4s %-10s %6s\r\n", "handle", "name", "prio", "base", "state", "free")
	for _, ti := range sh.sys.k.Threads() {
		sh.printf("%-8s %-14s %4d %4d %-10s %6d\r\n", ti.Handle, ti.Name, ti.Priority, ti.BasePriority, ti.State, ti.StackUnused)
	}
	return false
}

func (sh *shell) hello() bool { return sh.runChild("hello", helloMain) }

func (sh *shell) test() bool { return sh.runChild("test", sh.sys.testMain) }

// runChild runs entry on its own thread and waits for it. A non-zero exit
// code means the line was lost and stops the shell.
func (sh *shell) runChild(name string, entry kernel.Entry) bool {
	h, err := sh.sys.create(name, kernel.NormalPriority, entry, sh.d)
	if err != nil {
		sh.printf("%v\r\n", err)
		return false
	}
	if err := sh.ctx.Resume(h); err != nil {
		sh.printf("%v\r\n", err)
		return false
	}
	code, err := sh.ctx.Join(h)
	return err != nil || code != kernel.MsgOK
}
