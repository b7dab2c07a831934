package kernel

// TimerFunc is a virtual timer callback. It runs in interrupt context and
// must not block.
type TimerFunc func(isr *ISR, arg any)

// Timer is a handle to an application virtual timer. It goes stale when
// the timer fires or is reset.
type Timer struct {
	idx uint32
	gen uint32
}

// Valid reports whether tm was ever returned by SetTimer.
func (tm Timer) Valid() bool { return tm.idx != 0 }

type vtimer struct {
	next, prev uint32
	// delta is the number of ticks beyond the previous timer in the list.
	delta Ticks
	fn    TimerFunc
	arg   any
	gen   uint32
	armed bool
}

// timerList is a delta list over a fixed arena. Slot 0 is the list header;
// slots [1, appBase) belong to thread slots of the same index and slots
// from appBase are handed out by SetTimer.
type timerList struct {
	t       []vtimer
	appBase uint32
	free    uint32
}

func (l *timerList) init(threadSlots, appTimers int) {
	l.t = make([]vtimer, threadSlots+appTimers)
	l.appBase = uint32(threadSlots)
	for i := len(l.t) - 1; i >= int(l.appBase); i-- {
		l.t[i].next = l.free
		l.free = uint32(i)
	}
}

func (l *timerList) empty() bool { return l.t[0].next == 0 }

// armS inserts timer i to fire after delay ticks, cancelling any previous
// arming. A zero delay fires on the next tick. Timers expiring on the same
// tick fire in arming order.
func (l *timerList) armS(i uint32, delay Ticks, fn TimerFunc, arg any) {
	if l.t[i].armed {
		l.removeS(i)
	}
	if delay == 0 {
		delay = 1
	}
	p := l.t[0].next
	for p != 0 && l.t[p].delta <= delay {
		delay -= l.t[p].delta
		p = l.t[p].next
	}

	vt := &l.t[i]
	vt.fn, vt.arg, vt.delta, vt.armed = fn, arg, delay, true
	vt.next = p
	vt.prev = l.t[p].prev
	l.t[vt.prev].next = i
	l.t[p].prev = i
	if p != 0 {
		l.t[p].delta -= delay
	}
}

// removeS unlinks timer i if it is armed.
func (l *timerList) removeS(i uint32) {
	vt := &l.t[i]
	if !vt.armed {
		return
	}
	if vt.next != 0 {
		l.t[vt.next].delta += vt.delta
	}
	l.t[vt.prev].next = vt.next
	l.t[vt.next].prev = vt.prev
	vt.next, vt.prev, vt.armed = 0, 0, false
	vt.fn, vt.arg = nil, nil
}

// tickS advances the list by one tick and fires every expired timer.
func (l *timerList) tickS(isr *ISR) {
	if l.empty() {
		return
	}
	l.t[l.t[0].next].delta--
	for h := l.t[0].next; h != 0 && l.t[h].delta == 0; h = l.t[0].next {
		fn, arg := l.t[h].fn, l.t[h].arg
		l.removeS(h)
		if h >= l.appBase {
			l.releaseS(h)
		}
		fn(isr, arg)
	}
}

func (l *timerList) allocS() (uint32, bool) {
	if l.free == 0 {
		return 0, false
	}
	i := l.free
	l.free = l.t[i].next
	l.t[i].next = 0
	l.t[i].gen++
	return i, true
}

func (l *timerList) releaseS(i uint32) {
	l.t[i].gen++
	l.t[i].next = l.free
	l.free = i
}

func (l *timerList) lookup(tm Timer) (uint32, bool) {
	if tm.idx < l.appBase || int(tm.idx) >= len(l.t) {
		return 0, false
	}
	vt := &l.t[tm.idx]
	if vt.gen != tm.gen || !vt.armed {
		return 0, false
	}
	return tm.idx, true
}

// setTimerS arms an application timer.
func (l *timerList) setTimerS(delay Ticks, fn TimerFunc, arg any) (Timer, error) {
	i, ok := l.allocS()
	if !ok {
		return Timer{}, ErrTimerExhausted
	}
	l.armS(i, delay, fn, arg)
	return Timer{idx: i, gen: l.t[i].gen}, nil
}

// resetTimerS cancels tm; it is a no-op once tm fired or was reset.
func (l *timerList) resetTimerS(tm Timer) {
	i, ok := l.lookup(tm)
	if !ok {
		return
	}
	l.removeS(i)
	l.releaseS(i)
}
