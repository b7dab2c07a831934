package kernel

import (
	"fmt"

	"v.io/x/lib/vlog"
)

// HaltInfo describes why the system halted.
type HaltInfo struct {
	// Thread is the thread running when the system halted, invalid for the
	// idle thread or interrupt context.
	Thread Handle
	Reason string
	// Value is the recovered panic value for thread panics.
	Value any
	Stack []byte
}

func (h *HaltInfo) Error() string {
	if h.Value != nil {
		return fmt.Sprintf("kernel halted: %s: %s: %v", h.Thread, h.Reason, h.Value)
	}
	return fmt.Sprintf("kernel halted: %s: %s", h.Thread, h.Reason)
}

// haltS stops the system once: the port is stopped so no thread runs
// again, and the configured handler is invoked.
func (k *Kernel) haltS(info HaltInfo) {
	if k.halted {
		return
	}
	k.halted = true
	info.Stack = captureStack()
	k.haltInfo = &info
	k.port.Stop()

	vlog.Errorf("%s", info.Error())
	if fn := k.cfg.HaltHandler; fn != nil {
		fn(info)
	}
}

// fatalS halts on a broken kernel invariant and panics with the halt
// record. The kernel lock is released first.
func (k *Kernel) fatalS(format string, args ...any) {
	var h Handle
	if cur := k.current(); cur.ref != idleRef {
		h = handleOf(cur)
	}
	k.haltS(HaltInfo{Thread: h, Reason: fmt.Sprintf(format, args...)})
	info := *k.haltInfo
	k.mu.Unlock()
	panic(&info)
}

// Halt stops the system from outside any thread.
func (k *Kernel) Halt(reason string) {
	k.mu.Lock()
	var h Handle
	if cur := k.current(); cur.ref != idleRef {
		h = handleOf(cur)
	}
	k.haltS(HaltInfo{Thread: h, Reason: reason})
	k.mu.Unlock()
}

// Shutdown stops the CPU without reporting a halt. Parked threads exit.
func (k *Kernel) Shutdown() {
	k.mu.Lock()
	if !k.halted {
		k.halted = true
		k.port.Stop()
		vlog.VI(1).Infof("kernel: shutdown at %d", k.now)
	}
	k.mu.Unlock()
}

// Halted returns the halt record, or nil while the system runs.
func (k *Kernel) Halted() *HaltInfo {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.haltInfo
}

// checkS verifies the ready list against the thread states when
// Config.Debug is set.
func (k *Kernel) checkS() {
	if !k.cfg.Debug {
		return
	}
	n := 0
	last := Priority(255)
	for r := k.ready.head; r != nilRef; r = k.threads[r].next {
		t := &k.threads[r]
		switch {
		case t.state != StateReady || t.q != &k.ready:
			k.fatalS("ready list holds %q in state %s", t.name, t.state)
		case t.prio > last:
			k.fatalS("ready list out of order at %q", t.name)
		}
		last = t.prio
		if n++; n > len(k.threads) {
			k.fatalS("ready list cycle")
		}
	}
	if n != k.ready.n {
		k.fatalS("ready list count %d, linked %d", k.ready.n, n)
	}
	for i := range k.threads {
		t := &k.threads[i]
		if t.state == StateReady {
			n--
		}
		if t.state == StateRunning && t.ref != k.cur {
			k.fatalS("%q running but not current", t.name)
		}
	}
	if n != 0 {
		k.fatalS("ready threads missing from the ready list")
	}
	if cur := k.current(); cur.state != StateRunning {
		k.fatalS("current thread %q in state %s", cur.name, cur.state)
	} else if k.firstReady().prio > cur.prio {
		k.fatalS("%q running below ready priority %d", cur.name, k.firstReady().prio)
	}
}
