package kernel

// ISR is the interrupt-context view of the kernel. It only offers
// operations that never block; rescheduling is left to the exit of the
// enclosing Kernel.Interrupt (or Context.WithLock) call.
//
// An ISR value is only valid inside the callback that received it.
type ISR struct {
	k *Kernel
}

// Tick advances system time by one tick, consumes the running thread's
// time slice and fires expired virtual timers.
func (i *ISR) Tick() {
	k := i.k
	k.now++
	if cur := k.current(); cur.ref != idleRef && cur.slice > 0 {
		cur.slice--
	}
	k.vt.tickS(i)
}

// Now returns the system time.
func (i *ISR) Now() Ticks { return i.k.now }

// Resume moves a suspended thread to the ready list.
func (i *ISR) Resume(h Handle) error { return i.k.resumeS(h) }

// SetTimer arms an application virtual timer firing fn(arg) after delay
// ticks.
func (i *ISR) SetTimer(delay Ticks, fn TimerFunc, arg any) (Timer, error) {
	return i.k.vt.setTimerS(delay, fn, arg)
}

// ResetTimer cancels tm. Cancelling a fired or reset timer does nothing.
func (i *ISR) ResetTimer(tm Timer) { i.k.vt.resetTimerS(tm) }

// TimerArmed reports whether tm is still pending.
func (i *ISR) TimerArmed(tm Timer) bool {
	_, ok := i.k.vt.lookup(tm)
	return ok
}

// Broadcast signals every listener of src.
func (i *ISR) Broadcast(src *EventSource, flags EventFlags) {
	i.k.broadcastS(src, flags)
}

// SignalEvents adds events to the pending set of thread h.
func (i *ISR) SignalEvents(h Handle, events EventMask) {
	i.k.signalS(h, events)
}

// Unregister removes l from src.
func (i *ISR) Unregister(src *EventSource, l *Listener) {
	unregisterS(src, l)
}

// Halted reports whether the system is halted.
func (i *ISR) Halted() bool { return i.k.halted }
