package kernel

// Mutex is a priority-inheritance mutex. The zero value is unlocked.
//
// While a thread waits on a mutex, the owner (and transitively the owner
// of any mutex that owner waits on) runs at least at the waiter's
// priority.
type Mutex struct {
	owner tref
	queue threadQueue
	// next links the mutexes owned by one thread, most recent first.
	next *Mutex
}

// Lock acquires m, blocking while another thread owns it.
func (c *Context) Lock(m *Mutex) error {
	k := c.k
	t := c.t
	k.enter(t)
	switch m.owner {
	case nilRef:
		k.ownS(t, m)
		k.mu.Unlock()
		return nil
	case t.ref:
		k.mu.Unlock()
		return ErrRecursiveLock
	}

	k.inheritS(k.thread(m.owner), t.prio)
	t.waitMtx = m
	k.qInsertPrio(&m.queue, t)
	k.goSleepS(t, StateWaitingOnMutex)
	t.waitMtx = nil
	k.mu.Unlock()
	return nil
}

// TryLock acquires m if it is free.
func (c *Context) TryLock(m *Mutex) bool {
	k := c.k
	k.enter(c.t)
	ok := m.owner == nilRef
	if ok {
		k.ownS(c.t, m)
	}
	k.mu.Unlock()
	return ok
}

// Unlock releases m, handing it to the highest priority waiter, and
// restores the caller's priority.
func (c *Context) Unlock(m *Mutex) error {
	k := c.k
	t := c.t
	k.enter(t)
	if m.owner != t.ref {
		k.mu.Unlock()
		return ErrNotOwner
	}
	for p := &t.mtxList; *p != nil; p = &(*p).next {
		if *p == m {
			*p = m.next
			break
		}
	}
	k.releaseMutexS(m)
	t.prio = k.inheritedPrioS(t)
	k.rescheduleS(t)
	k.mu.Unlock()
	return nil
}

func (k *Kernel) ownS(t *thread, m *Mutex) {
	m.owner = t.ref
	m.next = t.mtxList
	t.mtxList = m
}

// inheritS raises o, and the owners it is blocked behind, to at least prio.
func (k *Kernel) inheritS(o *thread, prio Priority) {
	for o.prio < prio {
		o.prio = prio
		switch o.state {
		case StateWaitingOnMutex:
			k.requeueS(o)
			o = k.thread(o.waitMtx.owner)
			continue
		case StateReady, StateSending:
			k.requeueS(o)
		}
		return
	}
}

// releaseMutexS passes m, already unlinked from its owner, to its first
// waiter or frees it.
func (k *Kernel) releaseMutexS(m *Mutex) {
	w := k.qPopFirst(&m.queue)
	if w == nil {
		m.owner = nilRef
		m.next = nil
		return
	}
	k.ownS(w, m)
	k.wakeS(w, MsgOK)
}

func (k *Kernel) inheritedPrioS(t *thread) Priority {
	p := t.base
	for m := t.mtxList; m != nil; m = m.next {
		if m.queue.head != nilRef {
			if wp := k.thread(m.queue.head).prio; wp > p {
				p = wp
			}
		}
	}
	return p
}
