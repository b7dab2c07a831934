package app

import (
	"fmt"

	"rtk/drivers/serial"
	"rtk/kernel"
)

// selfTest is one on-target check. It returns a failure description, or ""
// on success.
type selfTest struct {
	name string
	run  func(s *System, ctx *kernel.Context) string
}

var selfTests = []selfTest{
	{"Ready list priority ordering", (*System).testReadyOrder},
	{"Synchronous messages", (*System).testMessages},
	{"Event broadcast", (*System).testEvents},
	{"Virtual timers and sleep", (*System).testTimers},
	{"Mutex priority inheritance", (*System).testMutex},
	{"Byte queues", (*System).testQueues},
}

func (s *System) testMain(ctx *kernel.Context, arg any) kernel.Msg {
	d := arg.(*serial.Driver)
	// out fails once the line output has been reset.
	out := func(format string, args ...any) bool {
		return d.WriteString(ctx, fmt.Sprintf(format, args...)) == kernel.MsgOK
	}

	failed := 0
	for _, st := range selfTests {
		if !out("--- Test: %s\r\n", st.name) {
			return 1
		}
		result := "SUCCESS"
		if why := st.run(s, ctx); why != "" {
			failed++
			result = "FAILURE (" + why + ")"
		}
		if !out("--- Result: %s\r\n", result) {
			return 1
		}
	}
	final := "SUCCESS"
	if failed > 0 {
		final = fmt.Sprintf("FAILURE, %d of %d tests failed", failed, len(selfTests))
	}
	if !out("\r\nFinal result: %s\r\n", final) {
		return 1
	}
	return kernel.MsgOK
}

// spawnAll creates every entry suspended, then resumes them in order.
func (s *System) spawnAll(ctx *kernel.Context, prios []kernel.Priority, entry kernel.Entry, args []any) ([]kernel.Handle, string) {
	hs := make([]kernel.Handle, len(prios))
	for i, p := range prios {
		h, err := s.create(fmt.Sprintf("test-%d", i), p, entry, args[i])
		if err != nil {
			for _, c := range hs[:i] {
				ctx.Terminate(c)
			}
			return nil, err.Error()
		}
		hs[i] = h
	}
	for _, h := range hs {
		if err := ctx.Resume(h); err != nil {
			return nil, err.Error()
		}
	}
	return hs, ""
}

func joinAll(ctx *kernel.Context, hs []kernel.Handle) string {
	why := ""
	for _, h := range hs {
		code, err := ctx.Join(h)
		if err != nil && why == "" {
			why = err.Error()
		} else if code != kernel.MsgOK && why == "" {
			why = fmt.Sprintf("%s exited with %s", h, code)
		}
	}
	return why
}

func (s *System) testReadyOrder(ctx *kernel.Context) string {
	base := ctx.Priority()
	var order []string
	record := func(_ *kernel.Context, arg any) kernel.Msg {
		order = append(order, arg.(string))
		return kernel.MsgOK
	}
	prios := []kernel.Priority{base - 5, base - 1, base - 3, base - 2, base - 4}
	hs, why := s.spawnAll(ctx, prios, record, []any{"E", "A", "C", "B", "D"})
	if why != "" {
		return why
	}
	if why := joinAll(ctx, hs); why != "" {
		return why
	}
	if got := fmt.Sprint(order); got != "[A B C D E]" {
		return "order " + got
	}
	return ""
}

func (s *System) testMessages(ctx *kernel.Context) string {
	server := func(ctx *kernel.Context, _ any) kernel.Msg {
		for range 3 {
			sender, p := ctx.WaitMessage()
			n, _ := p.(int)
			ctx.Release(sender, kernel.Msg(n*2))
		}
		return kernel.MsgOK
	}
	hs, why := s.spawnAll(ctx, []kernel.Priority{ctx.Priority() + 1}, server, []any{nil})
	if why != "" {
		return why
	}
	for n := 1; n <= 3; n++ {
		code, err := ctx.Send(hs[0], n)
		if err != nil {
			return err.Error()
		}
		if code != kernel.Msg(n*2) {
			return fmt.Sprintf("reply to %d is %s", n, code)
		}
	}
	return joinAll(ctx, hs)
}

func (s *System) testEvents(ctx *kernel.Context) string {
	const flag kernel.EventFlags = 1
	var src kernel.EventSource
	woken := 0
	listener := func(ctx *kernel.Context, _ any) kernel.Msg {
		var l kernel.Listener
		if err := ctx.Register(&src, &l, 0); err != nil {
			return 1
		}
		defer ctx.Unregister(&src, &l)
		if ctx.WaitEvents(kernel.EventBit(0), 100) == 0 {
			return kernel.MsgTimeout
		}
		if ctx.ListenerFlags(&l)&flag != 0 {
			woken++
		}
		return kernel.MsgOK
	}
	p := ctx.Priority() + 1
	hs, why := s.spawnAll(ctx, []kernel.Priority{p, p}, listener, []any{nil, nil})
	if why != "" {
		return why
	}
	ctx.Broadcast(&src, flag)
	if why := joinAll(ctx, hs); why != "" {
		return why
	}
	if woken != 2 {
		return fmt.Sprintf("%d of 2 listeners saw the flags", woken)
	}
	return ""
}

func (s *System) testTimers(ctx *kernel.Context) string {
	start := ctx.Now()
	ctx.Sleep(10)
	if d := ctx.Now() - start; d < 10 {
		return fmt.Sprintf("slept %d ticks, want 10", d)
	}

	const evTimer kernel.EventID = 1
	self := ctx.Self()
	fire := func(i *kernel.ISR, _ any) { i.SignalEvents(self, kernel.EventBit(evTimer)) }
	start = ctx.Now()
	if _, err := ctx.SetTimer(5, fire, nil); err != nil {
		return err.Error()
	}
	if ctx.WaitEvents(kernel.EventBit(evTimer), 50) == 0 {
		return "timer did not fire"
	}
	if d := ctx.Now() - start; d < 5 {
		return fmt.Sprintf("timer fired after %d ticks, want 5", d)
	}
	return ""
}

func (s *System) testMutex(ctx *kernel.Context) string {
	var m kernel.Mutex
	base := ctx.Priority()
	if err := ctx.Lock(&m); err != nil {
		return err.Error()
	}
	waiter := func(ctx *kernel.Context, _ any) kernel.Msg {
		if ctx.Lock(&m) != nil {
			return 1
		}
		ctx.Unlock(&m)
		return kernel.MsgOK
	}
	hs, why := s.spawnAll(ctx, []kernel.Priority{base + 1}, waiter, []any{nil})
	if why != "" {
		ctx.Unlock(&m)
		return why
	}
	boosted := ctx.Priority()
	if err := ctx.Unlock(&m); err != nil {
		return err.Error()
	}
	if why := joinAll(ctx, hs); why != "" {
		return why
	}
	switch {
	case boosted != base+1:
		return fmt.Sprintf("owner ran at %d, want %d", boosted, base+1)
	case ctx.Priority() != base:
		return fmt.Sprintf("owner kept priority %d, want %d", ctx.Priority(), base)
	}
	return ""
}

func (s *System) testQueues(ctx *kernel.Context) string {
	q := kernel.NewInputQueue(make([]byte, 4), nil)
	var full error
	ctx.WithLock(func(i *kernel.ISR) {
		for _, b := range []byte("abcde") {
			full = q.PutI(i, b)
		}
	})
	if full == nil {
		return "fifth byte fit a 4 byte queue"
	}
	got := make([]byte, 0, 4)
	for range 4 {
		b, msg := q.Get(ctx, kernel.Immediate)
		if msg != kernel.MsgOK {
			return "get: " + msg.String()
		}
		got = append(got, b)
	}
	if string(got) != "abcd" {
		return fmt.Sprintf("read %q", got)
	}
	if _, msg := q.Get(ctx, 2); msg != kernel.MsgTimeout {
		return "empty get: " + msg.String()
	}
	return ""
}
