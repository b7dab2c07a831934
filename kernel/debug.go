package kernel

const (
	stackFill     = 0x55
	stackGuardLen = 8
)

// stackGuard sits at the low end of every thread stack, where a descending
// stack overflows into.
var stackGuard = [stackGuardLen]byte{0xA5, 0x1F, 0x2E, 0x3D, 0xA5, 0x1F, 0x2E, 0x3D}

func fillStack(s []byte) {
	for i := range s {
		s[i] = stackFill
	}
	copy(s, stackGuard[:])
}

func stackGuardIntact(s []byte) bool {
	if len(s) < stackGuardLen {
		return false
	}
	return [stackGuardLen]byte(s[:stackGuardLen]) == stackGuard
}

// stackUnused counts the untouched fill bytes above the guard.
func stackUnused(s []byte) int {
	n := 0
	for _, b := range s[min(len(s), stackGuardLen):] {
		if b != stackFill {
			break
		}
		n++
	}
	return n
}

// ThreadInfo is a registry entry.
type ThreadInfo struct {
	Handle       Handle
	Name         string
	Priority     Priority
	BasePriority Priority
	State        State
	StackSize    int
	StackUnused  int
	StackGuardOK bool
}

// Threads returns a snapshot of every live application thread.
func (k *Kernel) Threads() []ThreadInfo {
	k.mu.Lock()
	defer k.mu.Unlock()
	var out []ThreadInfo
	for i := int(idleRef) + 1; i < len(k.threads); i++ {
		t := &k.threads[i]
		if t.state == StateFree {
			continue
		}
		out = append(out, ThreadInfo{
			Handle:       handleOf(t),
			Name:         t.name,
			Priority:     t.prio,
			BasePriority: t.base,
			State:        t.state,
			StackSize:    len(t.stack),
			StackUnused:  stackUnused(t.stack),
			StackGuardOK: stackGuardIntact(t.stack),
		})
	}
	return out
}

// State returns the state of thread h.
func (k *Kernel) State(h Handle) (State, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	t, err := k.lookupS(h)
	if err != nil {
		return StateFree, err
	}
	return t.state, nil
}

// Priority returns the effective priority of thread h.
func (k *Kernel) Priority(h Handle) (Priority, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	t, err := k.lookupS(h)
	if err != nil {
		return 0, err
	}
	return t.prio, nil
}

// Current returns the running thread, or the zero Handle while idle.
func (k *Kernel) Current() Handle {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.cur == idleRef {
		return Handle{}
	}
	return handleOf(k.current())
}

// Idle reports whether no application thread is running.
func (k *Kernel) Idle() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.cur == idleRef
}

// ReadyOrder returns the ready list from head to tail, idle excluded.
func (k *Kernel) ReadyOrder() []Handle {
	k.mu.Lock()
	defer k.mu.Unlock()
	var out []Handle
	for r := k.ready.head; r != nilRef; r = k.threads[r].next {
		if r != idleRef {
			out = append(out, handleOf(&k.threads[r]))
		}
	}
	return out
}
