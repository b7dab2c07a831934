package kernel

import "runtime"

// Context provides thread-local access to kernel operations. Each thread
// receives its own Context; it must only be used by that thread.
type Context struct {
	k    *Kernel
	t    *thread
	self Handle
}

// Kernel returns the kernel the thread runs on.
func (c *Context) Kernel() *Kernel { return c.k }

// Self returns the calling thread's handle.
func (c *Context) Self() Handle { return c.self }

// Name returns the calling thread's name.
func (c *Context) Name() string { return c.t.name }

// Priority returns the calling thread's effective priority.
func (c *Context) Priority() Priority {
	k := c.k
	k.enter(c.t)
	p := c.t.prio
	k.mu.Unlock()
	return p
}

// Now returns the system time.
func (c *Context) Now() Ticks {
	k := c.k
	k.enter(c.t)
	now := k.now
	k.mu.Unlock()
	return now
}

// WithLock runs fn inside a kernel critical section on behalf of the
// calling thread, then yields if fn readied a higher priority thread.
// fn must not block or panic.
func (c *Context) WithLock(fn func(*ISR)) {
	k := c.k
	k.enter(c.t)
	fn(&k.isr)
	k.rescheduleS(c.t)
	k.mu.Unlock()
}

// SetTimer arms an application virtual timer.
func (c *Context) SetTimer(delay Ticks, fn TimerFunc, arg any) (Timer, error) {
	var (
		tm  Timer
		err error
	)
	c.WithLock(func(i *ISR) { tm, err = i.SetTimer(delay, fn, arg) })
	return tm, err
}

// ResetTimer cancels tm if it is still pending.
func (c *Context) ResetTimer(tm Timer) {
	c.WithLock(func(i *ISR) { i.ResetTimer(tm) })
}

// Halt stops the system. It does not return.
func (c *Context) Halt(reason string) {
	k := c.k
	k.enter(c.t)
	k.haltS(HaltInfo{Thread: c.self, Reason: reason})
	k.mu.Unlock()
	runtime.Goexit()
}
