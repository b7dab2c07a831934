package kernel

import (
	"fmt"
	"runtime"

	"v.io/x/lib/vlog"
)

// Create builds a thread in the Suspended state. It never reschedules and
// may be called from any context.
//
// The caller keeps ownership of stack but must not reuse it until the
// thread has been joined.
func (k *Kernel) Create(name string, prio Priority, stack []byte, entry Entry, arg any) (Handle, error) {
	if entry == nil {
		return Handle{}, ErrNilEntry
	}
	if prio < LowPriority || prio > k.cfg.MaxPriority {
		return Handle{}, fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidPriority, prio, LowPriority, k.cfg.MaxPriority)
	}
	if len(stack) < k.cfg.MinStack {
		return Handle{}, fmt.Errorf("%w: %d < %d bytes", ErrStackTooSmall, len(stack), k.cfg.MinStack)
	}

	k.mu.Lock()
	if k.halted {
		k.mu.Unlock()
		return Handle{}, ErrHalted
	}
	t := k.allocS()
	if t == nil {
		k.mu.Unlock()
		return Handle{}, ErrExhausted
	}
	t.gen++
	t.name = name
	t.prio = prio
	t.base = prio
	t.stack = stack
	t.entry = entry
	t.arg = arg
	t.state = StateSuspended
	fillStack(stack)
	k.port.Init(&t.ctx, name, stack, func() { k.threadMain(t) })
	h := handleOf(t)
	k.mu.Unlock()

	vlog.VI(1).Infof("kernel: created %s %q prio %d", h, name, prio)
	return h, nil
}

// threadMain runs on the thread's own execution context.
func (k *Kernel) threadMain(t *thread) {
	k.enter(t)
	entry, arg := t.entry, t.arg
	ctx := &Context{k: k, t: t, self: handleOf(t)}
	k.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(*HaltInfo); ok {
				return
			}
			k.mu.Lock()
			k.haltS(HaltInfo{Thread: ctx.self, Reason: "thread panic", Value: r})
			k.mu.Unlock()
		}
	}()
	ctx.Exit(entry(ctx, arg))
}

func (k *Kernel) resumeS(h Handle) error {
	t, err := k.lookupS(h)
	if err != nil {
		return err
	}
	if t.state != StateSuspended {
		return fmt.Errorf("%w: %s is %s", ErrNotSuspended, h, t.state)
	}
	k.readyS(t)
	return nil
}

// exitS terminates the running thread t and switches away from it.
func (k *Kernel) exitS(t *thread, code Msg) {
	t.exitCode = code
	t.state = StateTerminated
	k.vt.removeS(uint32(t.ref))

	for t.mtxList != nil {
		m := t.mtxList
		t.mtxList = m.next
		vlog.VI(1).Infof("kernel: %q exited holding a mutex, releasing it", t.name)
		k.releaseMutexS(m)
	}
	t.prio = t.base

	for i := range k.threads {
		s := &k.threads[i]
		if s.state == StateSending && s.msgServer == t.ref {
			k.wakeS(s, MsgReset)
		}
	}

	if t.joiner != nilRef {
		k.wakeS(k.thread(t.joiner), MsgOK)
	}
	k.broadcastS(&t.exitSrc, 0)

	vlog.VI(1).Infof("kernel: %s %q terminated with %s", handleOf(t), t.name, code)
	k.runS(k.qPopFirst(&k.ready))
}

func (k *Kernel) terminateS(h Handle) error {
	t, err := k.lookupS(h)
	if err != nil {
		return err
	}
	t.terminate = true
	return nil
}

// Terminate asks the thread h to exit; the thread polls the request with
// Context.ShouldTerminate.
func (k *Kernel) Terminate(h Handle) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.terminateS(h)
}

// ExitEvent returns the event source broadcast when h terminates. It is
// valid until h is joined.
func (k *Kernel) ExitEvent(h Handle) (*EventSource, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	t, err := k.lookupS(h)
	if err != nil {
		return nil, err
	}
	return &t.exitSrc, nil
}

// Spawn creates a thread and starts it at once.
func (c *Context) Spawn(name string, prio Priority, stack []byte, entry Entry, arg any) (Handle, error) {
	h, err := c.k.Create(name, prio, stack, entry, arg)
	if err != nil {
		return Handle{}, err
	}
	return h, c.Resume(h)
}

// Resume moves a suspended thread to the ready list, yielding to it if it
// has a higher priority than the caller.
func (c *Context) Resume(h Handle) error {
	k := c.k
	k.enter(c.t)
	err := k.resumeS(h)
	if err == nil {
		k.rescheduleS(c.t)
	}
	k.mu.Unlock()
	return err
}

// Exit terminates the calling thread with code. It does not return.
func (c *Context) Exit(code Msg) {
	k := c.k
	k.enter(c.t)
	k.exitS(c.t, code)
	k.mu.Unlock()
	runtime.Goexit()
}

// Join waits for h to terminate and returns its exit code. The control
// block of h is released; h is stale afterwards.
func (c *Context) Join(h Handle) (Msg, error) {
	k := c.k
	k.enter(c.t)
	t, err := k.lookupS(h)
	switch {
	case err != nil:
	case t == c.t:
		err = ErrJoinSelf
	case t.joiner != nilRef:
		err = ErrAlreadyJoined
	}
	if err != nil {
		k.mu.Unlock()
		return 0, err
	}
	if t.state != StateTerminated {
		t.joiner = c.t.ref
		k.goSleepS(c.t, StateWaitingOnJoin)
	}
	code := t.exitCode
	k.freeS(t)
	k.mu.Unlock()
	return code, nil
}

// Sleep suspends the calling thread for d ticks. Zero sleeps until the
// next tick.
func (c *Context) Sleep(d Ticks) {
	k := c.k
	k.enter(c.t)
	if d == Immediate {
		d = 1
	}
	k.goSleepTimeoutS(c.t, StateSleeping, d)
	k.mu.Unlock()
}

// Yield hands the CPU to the next ready thread of equal priority, if any.
func (c *Context) Yield() {
	k := c.k
	t := c.t
	k.enter(t)
	if k.firstReady().prio >= t.prio {
		k.readyS(t)
		k.runS(k.qPopFirst(&k.ready))
		k.parkS(t)
	}
	k.mu.Unlock()
}

// Terminate asks h to exit.
func (c *Context) Terminate(h Handle) error {
	k := c.k
	k.enter(c.t)
	err := k.terminateS(h)
	k.mu.Unlock()
	return err
}

// ShouldTerminate reports whether another thread asked the caller to exit.
func (c *Context) ShouldTerminate() bool {
	k := c.k
	k.enter(c.t)
	v := c.t.terminate
	k.mu.Unlock()
	return v
}
