package kernel

import (
	"errors"
	"fmt"
	"testing"
)

func idleEntry(ctx *Context, _ any) Msg { return MsgOK }

func TestCreateRejectsInvalidPriority(t *testing.T) {
	k := newTestKernel(t, func(c *Config) { c.MaxPriority = 100 })
	for _, prio := range []Priority{IdlePriority, 101, 255} {
		if _, err := k.Create("bad", prio, newStack(), idleEntry, nil); !errors.Is(err, ErrInvalidPriority) {
			t.Errorf("Create(prio %d) error = %v, want %v", prio, err, ErrInvalidPriority)
		}
	}
	if _, err := k.Create("ok", 100, newStack(), idleEntry, nil); err != nil {
		t.Errorf("Create(prio 100) error = %v", err)
	}
}

func TestCreateRejectsBadArguments(t *testing.T) {
	k := newTestKernel(t)
	if _, err := k.Create("nil", NormalPriority, newStack(), nil, nil); !errors.Is(err, ErrNilEntry) {
		t.Errorf("nil entry: error = %v", err)
	}
	if _, err := k.Create("tiny", NormalPriority, make([]byte, 4), idleEntry, nil); !errors.Is(err, ErrStackTooSmall) {
		t.Errorf("small stack: error = %v", err)
	}
}

func TestCreateExhausted(t *testing.T) {
	k := newTestKernel(t, func(c *Config) { c.MaxThreads = 2 })
	for i := 0; i < 2; i++ {
		if _, err := k.Create(fmt.Sprint("t", i), NormalPriority, newStack(), idleEntry, nil); err != nil {
			t.Fatalf("Create(%d) error = %v", i, err)
		}
	}
	if _, err := k.Create("t2", NormalPriority, newStack(), idleEntry, nil); !errors.Is(err, ErrExhausted) {
		t.Fatalf("Create beyond pool error = %v, want %v", err, ErrExhausted)
	}
}

func TestCreateFillsStack(t *testing.T) {
	k := newTestKernel(t)
	stack := make([]byte, 128)
	h, err := k.Create("s", NormalPriority, stack, idleEntry, nil)
	if err != nil {
		t.Fatal(err)
	}
	infos := k.Threads()
	if len(infos) != 1 || infos[0].Handle != h {
		t.Fatalf("Threads() = %+v", infos)
	}
	ti := infos[0]
	if ti.State != StateSuspended || !ti.StackGuardOK || ti.StackUnused != 128-stackGuardLen {
		t.Errorf("fresh thread info = %+v", ti)
	}
	stack[stackGuardLen+3] = 0
	if got := k.Threads()[0].StackUnused; got != 3 {
		t.Errorf("StackUnused after write = %d, want 3", got)
	}
	stack[0] = 0
	if k.Threads()[0].StackGuardOK {
		t.Error("guard reported intact after overwrite")
	}
}

func TestResumeOnlySuspended(t *testing.T) {
	k := newTestKernel(t)
	h, err := k.Create("once", NormalPriority, newStack(), idleEntry, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := k.Resume(h); err != nil {
		t.Fatalf("first Resume error = %v", err)
	}
	if err := k.Resume(h); !errors.Is(err, ErrNotSuspended) {
		t.Fatalf("second Resume error = %v, want %v", err, ErrNotSuspended)
	}
	waitState(t, k, h, StateTerminated)
	if err := k.Resume(Handle{}); !errors.Is(err, ErrStaleHandle) {
		t.Errorf("Resume(zero) error = %v", err)
	}
}

func TestJoinReturnsExitCode(t *testing.T) {
	k := newTestKernel(t)
	runMain(t, k, HighPriority, func(ctx *Context) {
		h, err := ctx.Spawn("child", NormalPriority, newStack(), func(ctx *Context, arg any) Msg {
			return Msg(arg.(int))
		}, 42)
		if err != nil {
			t.Errorf("Spawn error = %v", err)
			return
		}
		code, err := ctx.Join(h)
		if err != nil || code != 42 {
			t.Errorf("Join = %v, %v; want 42, nil", code, err)
		}
		if _, err := ctx.Join(h); !errors.Is(err, ErrStaleHandle) {
			t.Errorf("second Join error = %v, want %v", err, ErrStaleHandle)
		}
		if _, err := ctx.Join(ctx.Self()); !errors.Is(err, ErrJoinSelf) {
			t.Errorf("Join(self) error = %v", err)
		}
	})
}

func TestJoinFreesSlot(t *testing.T) {
	k := newTestKernel(t, func(c *Config) { c.MaxThreads = 2 })
	runMain(t, k, HighPriority, func(ctx *Context) {
		var prev Handle
		for i := 0; i < 3; i++ {
			h, err := ctx.Spawn("worker", NormalPriority, newStack(), idleEntry, nil)
			if err != nil {
				t.Errorf("Spawn(%d) error = %v", i, err)
				return
			}
			if h == prev {
				t.Errorf("reused slot returned the same handle %s", h)
			}
			prev = h
			if _, err := ctx.Join(h); err != nil {
				t.Errorf("Join(%d) error = %v", i, err)
			}
		}
	})
}

func TestExitCodeFromExit(t *testing.T) {
	k := newTestKernel(t)
	runMain(t, k, HighPriority, func(ctx *Context) {
		h, _ := ctx.Spawn("exits", NormalPriority, newStack(), func(ctx *Context, _ any) Msg {
			ctx.Exit(7)
			t.Error("Exit returned")
			return MsgOK
		}, nil)
		if code, _ := ctx.Join(h); code != 7 {
			t.Errorf("exit code = %v, want 7", code)
		}
	})
}

func TestAlreadyJoined(t *testing.T) {
	k := newTestKernel(t)
	startTicker(t, k)
	gate := &EventSource{}
	runMain(t, k, HighPriority, func(ctx *Context) {
		target, _ := ctx.Spawn("target", LowPriority, newStack(), func(ctx *Context, _ any) Msg {
			var l Listener
			ctx.Register(gate, &l, 0)
			ctx.WaitEvents(EventBit(0), Infinite)
			return MsgOK
		}, nil)
		first, _ := ctx.Spawn("first", NormalPriority, newStack(), func(ctx *Context, _ any) Msg {
			code, err := ctx.Join(target)
			if err != nil {
				t.Errorf("first joiner error = %v", err)
			}
			return code
		}, nil)
		for {
			ts, _ := k.State(target)
			fs, _ := k.State(first)
			if ts == StateWaitingOnEvent && fs == StateWaitingOnJoin {
				break
			}
			ctx.Sleep(1)
		}
		if _, err := ctx.Join(target); !errors.Is(err, ErrAlreadyJoined) {
			t.Errorf("second joiner error = %v, want %v", err, ErrAlreadyJoined)
		}
		ctx.Broadcast(gate, 0)
		if _, err := ctx.Join(first); err != nil {
			t.Errorf("Join(first) error = %v", err)
		}
	})
}

func TestReadyOrderByPriorityThenFIFO(t *testing.T) {
	k := newTestKernel(t)
	var rec recorder
	defs := []struct {
		name string
		prio Priority
	}{{"3a", 3}, {"5a", 5}, {"3b", 3}, {"5b", 5}, {"1", 1}}

	runMain(t, k, HighPriority, func(ctx *Context) {
		byName := map[string]Handle{}
		var hs []Handle
		for _, s := range defs {
			h, err := ctx.Spawn(s.name, s.prio, newStack(), func(ctx *Context, _ any) Msg {
				rec.add(ctx.Name())
				return MsgOK
			}, nil)
			if err != nil {
				t.Errorf("Spawn(%s) error = %v", s.name, err)
				return
			}
			byName[s.name] = h
			hs = append(hs, h)
		}
		want := []Handle{byName["5a"], byName["5b"], byName["3a"], byName["3b"], byName["1"]}
		got := k.ReadyOrder()
		if fmt.Sprint(got) != fmt.Sprint(want) {
			t.Errorf("ReadyOrder() = %v, want %v", got, want)
		}
		for _, h := range hs {
			ctx.Join(h)
		}
	})
	if got, want := rec.get(), []string{"5a", "5b", "3a", "3b", "1"}; !equalStrings(got, want) {
		t.Errorf("run order = %v, want %v", got, want)
	}
}

func TestSuspendedThreadResumesIntoItsBand(t *testing.T) {
	k := newTestKernel(t)
	var rec recorder
	body := func(ctx *Context, _ any) Msg {
		rec.add(ctx.Name())
		return MsgOK
	}
	runMain(t, k, HighPriority, func(ctx *Context) {
		late, _ := k.Create("late", 10, newStack(), body, nil)
		early, _ := ctx.Spawn("early", 10, newStack(), body, nil)
		if st, _ := k.State(late); st != StateSuspended {
			t.Errorf("created thread state = %v", st)
		}
		if err := ctx.Resume(late); err != nil {
			t.Errorf("Resume error = %v", err)
		}
		if p, _ := k.Priority(late); p != 10 {
			t.Errorf("priority after resume = %d", p)
		}
		ctx.Join(early)
		ctx.Join(late)
	})
	if got, want := rec.get(), []string{"early", "late"}; !equalStrings(got, want) {
		t.Errorf("run order = %v, want %v", got, want)
	}
}

func TestTerminateRequest(t *testing.T) {
	k := newTestKernel(t)
	startTicker(t, k)
	runMain(t, k, HighPriority, func(ctx *Context) {
		h, _ := ctx.Spawn("loop", NormalPriority, newStack(), func(ctx *Context, _ any) Msg {
			n := Msg(0)
			for !ctx.ShouldTerminate() {
				ctx.Sleep(1)
				n++
			}
			return n
		}, nil)
		ctx.Sleep(5)
		if err := ctx.Terminate(h); err != nil {
			t.Errorf("Terminate error = %v", err)
		}
		if code, _ := ctx.Join(h); code < 1 {
			t.Errorf("loop ran %d times", code)
		}
	})
}

func TestExitEventBroadcast(t *testing.T) {
	k := newTestKernel(t)
	runMain(t, k, HighPriority, func(ctx *Context) {
		h, _ := k.Create("short", NormalPriority, newStack(), idleEntry, nil)
		src, err := k.ExitEvent(h)
		if err != nil {
			t.Errorf("ExitEvent error = %v", err)
			return
		}
		var l Listener
		ctx.Register(src, &l, 3)
		ctx.Resume(h)
		if got := ctx.WaitEvents(AllEvents, Infinite); got != EventBit(3) {
			t.Errorf("WaitEvents = %#x, want %#x", got, EventBit(3))
		}
		if st, _ := k.State(h); st != StateTerminated {
			t.Errorf("state after exit event = %v", st)
		}
		ctx.Join(h)
		if l.Registered() {
			t.Error("listener still linked after join")
		}
	})
}

func TestThreadPanicHalts(t *testing.T) {
	halts := make(chan HaltInfo, 1)
	k := newTestKernel(t, func(c *Config) {
		c.HaltHandler = func(info HaltInfo) { halts <- info }
	})
	h, _ := k.Create("boom", NormalPriority, newStack(), func(ctx *Context, _ any) Msg {
		panic("boom")
	}, nil)
	k.Resume(h)
	info := <-halts
	if info.Thread != h || info.Value != "boom" || info.Reason != "thread panic" {
		t.Errorf("halt info = %+v", info)
	}
	if k.Halted() == nil {
		t.Error("Halted() = nil after thread panic")
	}
	if _, err := k.Create("after", NormalPriority, newStack(), idleEntry, nil); !errors.Is(err, ErrHalted) {
		t.Errorf("Create after halt error = %v", err)
	}
}
