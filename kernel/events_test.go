package kernel

import (
	"errors"
	"testing"
	"time"
)

func TestBroadcastWakesOnlyMatchingWaiters(t *testing.T) {
	k := newTestKernel(t)
	var src EventSource
	type result struct {
		name string
		mask EventMask
	}
	results := make(chan result, 4)

	// w1 waits on the event its listener signals; w2 listens with id 1 but
	// waits on id 2.
	w1, _ := k.Create("w1", NormalPriority, newStack(), func(ctx *Context, _ any) Msg {
		var l Listener
		ctx.Register(&src, &l, 0)
		results <- result{"w1", ctx.WaitEvents(EventBit(0), Infinite)}
		return MsgOK
	}, nil)
	w2, _ := k.Create("w2", NormalPriority, newStack(), func(ctx *Context, _ any) Msg {
		var l Listener
		ctx.Register(&src, &l, 1)
		results <- result{"w2 timeout", ctx.WaitEvents(EventBit(2), 5)}
		results <- result{"w2 pending", ctx.WaitEvents(EventBit(1), Immediate)}
		return MsgOK
	}, nil)
	k.Resume(w1)
	k.Resume(w2)
	waitState(t, k, w1, StateWaitingOnEvent)
	waitState(t, k, w2, StateWaitingOnEvent)

	k.Broadcast(&src, 0)
	if r := <-results; r.name != "w1" || r.mask != EventBit(0) {
		t.Errorf("got %+v, want w1 woken with bit 0", r)
	}
	if st, _ := k.State(w2); st != StateWaitingOnEvent {
		t.Errorf("w2 state after broadcast = %v", st)
	}

	for i := 0; i < 5; i++ {
		k.Tick()
	}
	for _, want := range []result{{"w2 timeout", 0}, {"w2 pending", EventBit(1)}} {
		select {
		case r := <-results:
			if r != want {
				t.Errorf("got %+v, want %+v", r, want)
			}
		case <-time.After(testTimeout):
			t.Fatalf("no result for %s", want.name)
		}
	}
}

func TestListenerFlagsAccumulate(t *testing.T) {
	k := newTestKernel(t)
	var src EventSource
	runMain(t, k, NormalPriority, func(ctx *Context) {
		var l Listener
		if err := ctx.Register(&src, &l, 4); err != nil {
			t.Errorf("Register error = %v", err)
		}
		if err := ctx.Register(&src, &l, 4); !errors.Is(err, ErrListenerBusy) {
			t.Errorf("second Register error = %v, want %v", err, ErrListenerBusy)
		}
		ctx.Broadcast(&src, 0x1)
		ctx.Broadcast(&src, 0x4)
		if got := ctx.WaitEvents(AllEvents, Immediate); got != EventBit(4) {
			t.Errorf("pending = %#x, want %#x", got, EventBit(4))
		}
		if f := ctx.ListenerFlags(&l); f != 0x5 {
			t.Errorf("flags = %#x, want 0x5", f)
		}
		if f := ctx.ListenerFlags(&l); f != 0 {
			t.Errorf("flags after read = %#x, want 0", f)
		}
		ctx.Unregister(&src, &l)
		ctx.Broadcast(&src, 0x1)
		if got := ctx.ClearEvents(AllEvents); got != 0 {
			t.Errorf("unregistered listener signalled %#x", got)
		}
	})
}

func TestFilteredListener(t *testing.T) {
	k := newTestKernel(t)
	var src EventSource
	runMain(t, k, NormalPriority, func(ctx *Context) {
		var l Listener
		ctx.RegisterFiltered(&src, &l, 2, 0x2)
		ctx.Broadcast(&src, 0x1)
		if got := ctx.ClearEvents(AllEvents); got != 0 {
			t.Errorf("filtered broadcast signalled %#x", got)
		}
		ctx.Broadcast(&src, 0x3)
		if got := ctx.ClearEvents(AllEvents); got != EventBit(2) {
			t.Errorf("matching broadcast signalled %#x", got)
		}
		if f := ctx.ListenerFlags(&l); f != 0x3 {
			t.Errorf("flags = %#x, want 0x3", f)
		}
	})
}

func TestWaitEventsTimeout(t *testing.T) {
	k := newTestKernel(t)
	startTicker(t, k)
	runMain(t, k, NormalPriority, func(ctx *Context) {
		if got := ctx.WaitEvents(AllEvents, Immediate); got != 0 {
			t.Errorf("Immediate wait = %#x", got)
		}
		start := ctx.Now()
		if got := ctx.WaitEvents(AllEvents, 3); got != 0 {
			t.Errorf("timed wait = %#x", got)
		}
		if ctx.Now()-start < 3 {
			t.Errorf("timed wait returned after %d ticks", ctx.Now()-start)
		}
	})
}

func TestSignalEventsDirect(t *testing.T) {
	k := newTestKernel(t)
	runMain(t, k, NormalPriority, func(ctx *Context) {
		main := ctx.Self()
		ctx.Spawn("signaller", LowPriority, newStack(), func(ctx *Context, _ any) Msg {
			ctx.SignalEvents(main, EventBit(7)|EventBit(9))
			return MsgOK
		}, nil)
		if got := ctx.WaitEvents(EventBit(9), Infinite); got != EventBit(9) {
			t.Errorf("WaitEvents(9) = %#x", got)
		}
		if got := ctx.ClearEvents(EventBit(7)); got != EventBit(7) {
			t.Errorf("event 7 not left pending: %#x", got)
		}
	})
}

func TestDispatchEventsCallsHandlers(t *testing.T) {
	k := newTestKernel(t)
	runMain(t, k, NormalPriority, func(ctx *Context) {
		ctx.SignalEvents(ctx.Self(), EventBit(0)|EventBit(2)|EventBit(5))
		var got []EventID
		h := func(id EventID) { got = append(got, id) }
		m := ctx.DispatchEvents(AllEvents, Immediate, []EventHandler{h, h, h})
		if m != EventBit(0)|EventBit(2)|EventBit(5) {
			t.Errorf("mask = %#x", m)
		}
		if len(got) != 2 || got[0] != 0 || got[1] != 2 {
			t.Errorf("handled %v, want [0 2]", got)
		}
	})
}

func TestListenerOfTerminatedThread(t *testing.T) {
	k := newTestKernel(t)
	var src EventSource
	var l Listener
	h, _ := k.Create("gone", NormalPriority, newStack(), func(ctx *Context, _ any) Msg {
		ctx.Register(&src, &l, 0)
		return MsgOK
	}, nil)
	k.Resume(h)
	waitState(t, k, h, StateTerminated)

	k.Broadcast(&src, 0x1)
	k.Interrupt(func(i *ISR) { i.Unregister(&src, &l) })
	if l.Registered() {
		t.Error("listener still registered")
	}
	k.Interrupt(func(i *ISR) { i.Unregister(&src, &l) })
	if info := k.Halted(); info != nil {
		t.Fatalf("kernel halted: %v", info)
	}
}
