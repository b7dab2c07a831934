package kernel

// ring is a byte ring over a caller buffer with free-running counters.
type ring struct {
	head uint32
	tail uint32
	buf  []byte
}

func (r *ring) len() int   { return int(r.head - r.tail) }
func (r *ring) full() bool { return r.len() >= len(r.buf) }

func (r *ring) push(b byte) bool {
	if r.full() {
		return false
	}
	r.buf[r.head%uint32(len(r.buf))] = b
	r.head++
	return true
}

func (r *ring) pop() (byte, bool) {
	if r.tail == r.head {
		return 0, false
	}
	b := r.buf[r.tail%uint32(len(r.buf))]
	r.tail++
	return b, true
}

func (r *ring) reset() { r.head, r.tail = 0, 0 }

// InputQueue carries bytes from an interrupt handler to threads.
type InputQueue struct {
	r       ring
	waiters threadQueue
	notify  func()
}

// NewInputQueue returns a queue storing bytes in buf. notify, if not nil,
// runs inside the kernel lock each time a thread takes a byte; drivers use
// it to restart a stalled receiver.
func NewInputQueue(buf []byte, notify func()) *InputQueue {
	return &InputQueue{r: ring{buf: buf}, notify: notify}
}

// PutI stores b, waking one reader. It fails with ErrQueueFull.
func (q *InputQueue) PutI(i *ISR, b byte) error {
	if !q.r.push(b) {
		return ErrQueueFull
	}
	if w := i.k.qPopFirst(&q.waiters); w != nil {
		i.k.wakeS(w, MsgOK)
	}
	return nil
}

// Len returns the number of buffered bytes.
func (q *InputQueue) Len(i *ISR) int { return q.r.len() }

// Reset discards buffered bytes and wakes every reader with MsgReset.
func (q *InputQueue) Reset(i *ISR) {
	q.r.reset()
	resetWaitersS(i.k, &q.waiters)
}

// Get takes one byte, waiting up to timeout ticks. The Msg is MsgOK,
// MsgTimeout or MsgReset.
func (q *InputQueue) Get(ctx *Context, timeout Ticks) (byte, Msg) {
	k := ctx.k
	t := ctx.t
	k.enter(t)
	for {
		if b, ok := q.r.pop(); ok {
			if q.notify != nil {
				q.notify()
			}
			k.mu.Unlock()
			return b, MsgOK
		}
		if msg := waitQueueS(k, t, &q.waiters, timeout); msg != MsgOK {
			k.mu.Unlock()
			return 0, msg
		}
	}
}

// OutputQueue carries bytes from threads to an interrupt handler.
type OutputQueue struct {
	r       ring
	waiters threadQueue
	notify  func()
}

// NewOutputQueue returns a queue storing bytes in buf. notify, if not nil,
// runs inside the kernel lock each time a thread adds a byte; drivers use
// it to start the transmitter.
func NewOutputQueue(buf []byte, notify func()) *OutputQueue {
	return &OutputQueue{r: ring{buf: buf}, notify: notify}
}

// GetI takes the next byte to transmit, waking one writer.
func (q *OutputQueue) GetI(i *ISR) (byte, bool) {
	b, ok := q.r.pop()
	if !ok {
		return 0, false
	}
	if w := i.k.qPopFirst(&q.waiters); w != nil {
		i.k.wakeS(w, MsgOK)
	}
	return b, true
}

// Len returns the number of buffered bytes.
func (q *OutputQueue) Len(i *ISR) int { return q.r.len() }

// Reset discards buffered bytes and wakes every writer with MsgReset.
func (q *OutputQueue) Reset(i *ISR) {
	q.r.reset()
	resetWaitersS(i.k, &q.waiters)
}

// Put adds one byte, waiting up to timeout ticks for room.
func (q *OutputQueue) Put(ctx *Context, b byte, timeout Ticks) Msg {
	k := ctx.k
	t := ctx.t
	k.enter(t)
	for !q.r.push(b) {
		if msg := waitQueueS(k, t, &q.waiters, timeout); msg != MsgOK {
			k.mu.Unlock()
			return msg
		}
	}
	if q.notify != nil {
		q.notify()
	}
	k.mu.Unlock()
	return MsgOK
}

// Write puts every byte of p, stopping at the first byte that times out or
// is reset.
func (q *OutputQueue) Write(ctx *Context, p []byte, timeout Ticks) (int, Msg) {
	for n, b := range p {
		if msg := q.Put(ctx, b, timeout); msg != MsgOK {
			return n, msg
		}
	}
	return len(p), MsgOK
}

func waitQueueS(k *Kernel, t *thread, q *threadQueue, timeout Ticks) Msg {
	if timeout == Immediate {
		return MsgTimeout
	}
	k.qInsertTail(q, t)
	return k.goSleepTimeoutS(t, StateWaitingOnQueue, timeout)
}

func resetWaitersS(k *Kernel, q *threadQueue) {
	for w := k.qPopFirst(q); w != nil; w = k.qPopFirst(q) {
		k.wakeS(w, MsgReset)
	}
}
