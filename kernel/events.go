package kernel

// EventID selects one bit of a thread's event mask.
type EventID uint8

// EventMask is a set of events pending on, or awaited by, a thread.
type EventMask uint32

// EventFlags are source-defined condition bits carried by a broadcast.
type EventFlags uint32

const (
	// AllEvents waits on any event.
	AllEvents EventMask = ^EventMask(0)
	// AllFlags accepts every broadcast.
	AllFlags EventFlags = ^EventFlags(0)
)

// EventBit returns the mask of event id.
func EventBit(id EventID) EventMask { return 1 << (id % 32) }

// EventSource is a broadcast point. The zero value has no listeners.
type EventSource struct {
	head *Listener
}

// Listener is one registration of a thread on an event source. It is owned
// by the registering code; the source only links it.
type Listener struct {
	next   *Listener
	src    *EventSource
	owner  Handle
	events EventMask
	filter EventFlags
	flags  EventFlags
}

// Registered reports whether l is linked to a source.
func (l *Listener) Registered() bool { return l.src != nil }

// EventHandler handles one dispatched event.
type EventHandler func(id EventID)

func unregisterS(src *EventSource, l *Listener) {
	if l.src != src {
		return
	}
	for p := &src.head; *p != nil; p = &(*p).next {
		if *p == l {
			*p = l.next
			break
		}
	}
	l.next, l.src = nil, nil
}

func (k *Kernel) broadcastS(src *EventSource, flags EventFlags) {
	for l := src.head; l != nil; l = l.next {
		l.flags |= flags
		if flags == 0 || l.filter&flags != 0 {
			k.signalS(l.owner, l.events)
		}
	}
}

func (k *Kernel) signalS(h Handle, events EventMask) {
	t, err := k.lookupS(h)
	if err != nil || t.state == StateTerminated {
		return
	}
	t.epending |= events
	if t.state == StateWaitingOnEvent && t.epending&t.ewmask != 0 {
		k.wakeS(t, MsgOK)
	}
}

// Register links l to src on behalf of the calling thread; broadcasts on
// src signal event id to it.
func (c *Context) Register(src *EventSource, l *Listener, id EventID) error {
	return c.RegisterFiltered(src, l, id, AllFlags)
}

// RegisterFiltered is Register for broadcasts whose flags intersect filter.
// Broadcasts without flags always pass.
func (c *Context) RegisterFiltered(src *EventSource, l *Listener, id EventID, filter EventFlags) error {
	k := c.k
	k.enter(c.t)
	if l.src != nil {
		k.mu.Unlock()
		return ErrListenerBusy
	}
	l.owner = c.self
	l.events = EventBit(id)
	l.filter = filter
	l.flags = 0
	l.src = src
	l.next = src.head
	src.head = l
	k.mu.Unlock()
	return nil
}

// Unregister unlinks l from src. It is a no-op if l is not registered
// there.
func (c *Context) Unregister(src *EventSource, l *Listener) {
	k := c.k
	k.enter(c.t)
	unregisterS(src, l)
	k.mu.Unlock()
}

// Broadcast signals every listener of src with flags.
func (c *Context) Broadcast(src *EventSource, flags EventFlags) {
	c.WithLock(func(i *ISR) { i.Broadcast(src, flags) })
}

// SignalEvents adds events to thread h's pending set.
func (c *Context) SignalEvents(h Handle, events EventMask) {
	c.WithLock(func(i *ISR) { i.SignalEvents(h, events) })
}

// ListenerFlags returns and clears the flags accumulated by l.
func (c *Context) ListenerFlags(l *Listener) EventFlags {
	k := c.k
	k.enter(c.t)
	f := l.flags
	l.flags = 0
	k.mu.Unlock()
	return f
}

// ClearEvents clears mask from the caller's pending events and returns the
// events that were pending in it.
func (c *Context) ClearEvents(mask EventMask) EventMask {
	k := c.k
	k.enter(c.t)
	m := c.t.epending & mask
	c.t.epending &^= mask
	k.mu.Unlock()
	return m
}

// WaitEvents blocks until any event in mask is pending, then clears and
// returns the pending events in mask. It returns 0 on timeout.
func (c *Context) WaitEvents(mask EventMask, timeout Ticks) EventMask {
	k := c.k
	t := c.t
	k.enter(t)
	m := t.epending & mask
	if m == 0 {
		t.ewmask = mask
		msg := k.goSleepTimeoutS(t, StateWaitingOnEvent, timeout)
		t.ewmask = 0
		if msg != MsgOK {
			k.mu.Unlock()
			return 0
		}
		m = t.epending & mask
	}
	t.epending &^= m
	k.mu.Unlock()
	return m
}

// DispatchEvents waits like WaitEvents and calls handlers[id] for every
// returned event id, lowest first.
func (c *Context) DispatchEvents(mask EventMask, timeout Ticks, handlers []EventHandler) EventMask {
	m := c.WaitEvents(mask, timeout)
	for id := 0; id < 32 && m>>id != 0; id++ {
		if m&(1<<id) == 0 || id >= len(handlers) || handlers[id] == nil {
			continue
		}
		handlers[id](EventID(id))
	}
	return m
}
