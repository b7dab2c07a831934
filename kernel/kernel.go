// Package kernel is a priority-preemptive real-time kernel core: threads,
// the ready list, virtual timers, synchronous messages, event broadcasting,
// priority-inheritance mutexes and byte queues.
//
// All kernel state lives behind one lock, the analogue of disabling
// interrupts. Thread-context operations are methods on Context and may
// block; interrupt-context operations are methods on ISR and never block.
// Control blocks, timers and wait structures come from fixed pools sized
// by Config; nothing is allocated on the scheduling paths.
package kernel

import (
	"fmt"
	"runtime"
	"sync"

	"rtk/port"

	"v.io/x/lib/vlog"
)

const idleRef tref = 1

type thread struct {
	ref  tref
	gen  uint32
	name string

	prio  Priority // effective, may be raised by mutex inheritance
	base  Priority
	state State

	ctx   port.Context
	stack []byte
	entry Entry
	arg   any

	// Links for the queue q the thread is in (ready list or one wait
	// structure).
	next, prev tref
	q          *threadQueue

	wakeMsg Msg
	slice   Ticks

	msgQueue  threadQueue
	msgServer tref
	msgActive bool
	payload   any

	epending EventMask
	ewmask   EventMask
	exitSrc  EventSource

	mtxList *Mutex
	waitMtx *Mutex

	joiner    tref
	exitCode  Msg
	terminate bool
}

// Kernel is one kernel instance. Independent instances share nothing.
type Kernel struct {
	mu   sync.Mutex
	cfg  Config
	port port.Port
	isr  ISR

	threads []thread // [0] is the nil sentinel, [1] the idle thread
	free    tref
	ready   threadQueue
	cur     tref
	now     Ticks
	vt      timerList

	halted   bool
	haltInfo *HaltInfo
}

// New returns an initialized kernel whose CPU runs the idle thread.
func New(cfg Config, p port.Port) (*Kernel, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: nil port", ErrInvalidConfig)
	}

	k := &Kernel{
		cfg:     cfg,
		port:    p,
		threads: make([]thread, cfg.MaxThreads+2),
	}
	k.isr.k = k
	for i := range k.threads {
		k.threads[i].ref = tref(i)
	}
	for i := len(k.threads) - 1; i > int(idleRef); i-- {
		k.threads[i].next = k.free
		k.free = tref(i)
	}
	k.vt.init(len(k.threads), cfg.MaxTimers)

	idle := &k.threads[idleRef]
	idle.gen = 1
	idle.name = "idle"
	idle.state = StateRunning
	k.cur = idleRef

	vlog.VI(1).Infof("kernel: init threads=%d timers=%d quantum=%d", cfg.MaxThreads, cfg.MaxTimers, cfg.Quantum)
	return k, nil
}

// Config returns the effective configuration.
func (k *Kernel) Config() Config { return k.cfg }

func (k *Kernel) thread(r tref) *thread { return &k.threads[r] }

func (k *Kernel) current() *thread { return &k.threads[k.cur] }

func handleOf(t *thread) Handle { return Handle{ref: t.ref, gen: t.gen} }

// lookupS resolves h to a live application thread.
func (k *Kernel) lookupS(h Handle) (*thread, error) {
	if h.ref <= idleRef || int(h.ref) >= len(k.threads) {
		return nil, ErrStaleHandle
	}
	t := &k.threads[h.ref]
	if t.gen != h.gen || t.state == StateFree {
		return nil, ErrStaleHandle
	}
	return t, nil
}

func (k *Kernel) allocS() *thread {
	if k.free == nilRef {
		return nil
	}
	t := &k.threads[k.free]
	k.free = t.next
	t.next = nilRef
	return t
}

func (k *Kernel) freeS(t *thread) {
	for l := t.exitSrc.head; l != nil; {
		next := l.next
		l.next, l.src = nil, nil
		l = next
	}
	gen := t.gen
	*t = thread{ref: t.ref, gen: gen, state: StateFree}
	t.next = k.free
	k.free = t.ref
}

// threadQueue is an intrusive doubly linked list of threads.
type threadQueue struct {
	head, tail tref
	n          int
}

func (k *Kernel) insertBeforeS(q *threadQueue, t *thread, before tref) {
	t.q = q
	t.next = before
	if before == nilRef {
		t.prev = q.tail
		if q.tail != nilRef {
			k.threads[q.tail].next = t.ref
		} else {
			q.head = t.ref
		}
		q.tail = t.ref
	} else {
		b := &k.threads[before]
		t.prev = b.prev
		if b.prev != nilRef {
			k.threads[b.prev].next = t.ref
		} else {
			q.head = t.ref
		}
		b.prev = t.ref
	}
	q.n++
}

// qInsertTail appends t (FIFO).
func (k *Kernel) qInsertTail(q *threadQueue, t *thread) {
	k.insertBeforeS(q, t, nilRef)
}

// qInsertPrio inserts t after every thread of greater or equal priority.
func (k *Kernel) qInsertPrio(q *threadQueue, t *thread) {
	r := q.head
	for r != nilRef && k.threads[r].prio >= t.prio {
		r = k.threads[r].next
	}
	k.insertBeforeS(q, t, r)
}

// qInsertAhead inserts t before every thread of equal priority.
func (k *Kernel) qInsertAhead(q *threadQueue, t *thread) {
	r := q.head
	for r != nilRef && k.threads[r].prio > t.prio {
		r = k.threads[r].next
	}
	k.insertBeforeS(q, t, r)
}

func (k *Kernel) qRemove(t *thread) {
	q := t.q
	if q == nil {
		return
	}
	if t.prev != nilRef {
		k.threads[t.prev].next = t.next
	} else {
		q.head = t.next
	}
	if t.next != nilRef {
		k.threads[t.next].prev = t.prev
	} else {
		q.tail = t.prev
	}
	t.next, t.prev, t.q = nilRef, nilRef, nil
	q.n--
}

func (k *Kernel) qPopFirst(q *threadQueue) *thread {
	if q.head == nilRef {
		return nil
	}
	t := &k.threads[q.head]
	k.qRemove(t)
	return t
}

// requeueS moves t to its priority position in the queue it is in.
func (k *Kernel) requeueS(t *thread) {
	q := t.q
	if q == nil {
		return
	}
	k.qRemove(t)
	k.qInsertPrio(q, t)
}

// readyS inserts t into the ready list behind its priority band.
func (k *Kernel) readyS(t *thread) {
	t.state = StateReady
	k.qInsertPrio(&k.ready, t)
}

// readyAheadS inserts t into the ready list ahead of its priority band.
func (k *Kernel) readyAheadS(t *thread) {
	t.state = StateReady
	k.qInsertAhead(&k.ready, t)
}

// wakeS moves a blocked thread back to the ready list with msg as its wake
// reason, disarming its timeout and unlinking it from its wait structure.
func (k *Kernel) wakeS(t *thread, msg Msg) {
	k.vt.removeS(uint32(t.ref))
	k.qRemove(t)
	t.wakeMsg = msg
	k.readyS(t)
}

func (k *Kernel) firstReady() *thread { return &k.threads[k.ready.head] }

// runS makes next the running thread and hands it the CPU.
func (k *Kernel) runS(next *thread) {
	prev := k.current()
	next.state = StateRunning
	next.slice = k.cfg.Quantum
	k.cur = next.ref
	vlog.VI(3).Infof("kernel: switch %s -> %s at %d", prev.name, next.name, k.now)
	if next.ref == idleRef {
		k.port.Dispatch(nil)
	} else {
		k.port.Dispatch(&next.ctx)
	}
	k.checkS()
}

// parkS blocks the goroutine of t until t is the running thread. It is the
// preemption point of every thread-context entry.
func (k *Kernel) parkS(t *thread) {
	for {
		if k.halted {
			k.mu.Unlock()
			runtime.Goexit()
		}
		if k.cur == t.ref {
			return
		}
		k.mu.Unlock()
		if !k.port.Wait(&t.ctx) {
			runtime.Goexit()
		}
		k.mu.Lock()
	}
}

func (k *Kernel) enter(t *thread) {
	k.mu.Lock()
	k.parkS(t)
}

// goSleepS puts the running thread t in state st, switches to the best
// ready thread and returns t's wake message once t runs again.
func (k *Kernel) goSleepS(t *thread, st State) Msg {
	t.state = st
	k.runS(k.qPopFirst(&k.ready))
	k.parkS(t)
	return t.wakeMsg
}

// goSleepTimeoutS is goSleepS bounded by timeout ticks. The caller must
// not have queued t anywhere when timeout is Immediate.
func (k *Kernel) goSleepTimeoutS(t *thread, st State, timeout Ticks) Msg {
	if timeout == Immediate {
		return MsgTimeout
	}
	if timeout != Infinite {
		k.vt.armS(uint32(t.ref), timeout, wakeTimeout, t)
	}
	return k.goSleepS(t, st)
}

func wakeTimeout(isr *ISR, arg any) {
	isr.k.wakeS(arg.(*thread), MsgTimeout)
}

// rescheduleS yields the CPU from the running thread t if a thread of
// strictly higher priority is ready.
func (k *Kernel) rescheduleS(t *thread) {
	if k.firstReady().prio > t.prio {
		k.readyAheadS(t)
		k.runS(k.qPopFirst(&k.ready))
		k.parkS(t)
		return
	}
	k.checkS()
}

// preemptS is the interrupt-exit reschedule.
func (k *Kernel) preemptS() {
	cur := k.current()
	first := k.firstReady()
	switch {
	case first.prio > cur.prio:
		k.readyAheadS(cur)
	case k.cfg.Quantum > 0 && cur.ref != idleRef && cur.slice == 0 && first.prio == cur.prio:
		k.readyS(cur)
	default:
		k.checkS()
		return
	}
	k.runS(k.qPopFirst(&k.ready))
}

// Interrupt runs fn in interrupt context: the body runs with the kernel
// locked and rescheduling is resolved once, on exit.
func (k *Kernel) Interrupt(fn func(*ISR)) {
	k.mu.Lock()
	if k.halted {
		k.mu.Unlock()
		return
	}
	fn(&k.isr)
	if !k.halted {
		k.preemptS()
	}
	k.mu.Unlock()
}

// Tick delivers one system timer interrupt.
func (k *Kernel) Tick() {
	k.Interrupt(func(i *ISR) { i.Tick() })
}

// Resume moves a suspended thread to the ready list from outside any
// thread, rescheduling as an interrupt exit would.
func (k *Kernel) Resume(h Handle) error {
	err := ErrHalted
	k.Interrupt(func(i *ISR) { err = i.Resume(h) })
	return err
}

// Broadcast signals src from outside any thread.
func (k *Kernel) Broadcast(src *EventSource, flags EventFlags) {
	k.Interrupt(func(i *ISR) { i.Broadcast(src, flags) })
}

// Now returns the system time in ticks.
func (k *Kernel) Now() Ticks {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.now
}
