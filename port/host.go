//go:build !tinygo

package port

import (
	"v.io/x/lib/nsync"
	"v.io/x/lib/vlog"
)

// Host runs every thread context on its own goroutine and passes a single
// CPU token between them.
//
// A goroutine keeps executing user code after its context loses the token
// until it next calls Wait; kernel entry points do that, so preemption on
// the host takes effect at the preempted thread's next kernel call.
type Host struct {
	mu      nsync.Mu
	cv      nsync.CV
	owner   *Context
	stopped bool
}

// NewHost returns a host port with an idle CPU.
func NewHost() *Host {
	return &Host{}
}

func (h *Host) Init(c *Context, name string, stack []byte, entry func()) {
	h.mu.Lock()
	c.name = name
	c.stack = stack
	c.entry = entry
	c.started = false
	h.mu.Unlock()
}

func (h *Host) Dispatch(c *Context) {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.owner = c
	start := c != nil && !c.started && c.entry != nil
	if start {
		c.started = true
	}
	h.cv.Broadcast()
	h.mu.Unlock()

	if start {
		vlog.VI(3).Infof("port: starting context %q", c.name)
		go h.run(c)
	}
}

func (h *Host) run(c *Context) {
	if !h.Wait(c) {
		return
	}
	c.entry()
}

func (h *Host) Wait(c *Context) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for h.owner != c && !h.stopped {
		h.cv.Wait(&h.mu)
	}
	return !h.stopped
}

func (h *Host) Stop() {
	h.mu.Lock()
	h.stopped = true
	h.owner = nil
	h.cv.Broadcast()
	h.mu.Unlock()
}

// Owner returns the context currently owning the CPU.
func (h *Host) Owner() *Context {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.owner
}
