// Package port defines the platform primitive the kernel uses to move the
// CPU between threads.
package port

// Context is the saved execution context of one kernel thread.
//
// It is owned by the port; the kernel only stores it inside its thread
// control blocks and passes it back.
type Context struct {
	name    string
	stack   []byte
	entry   func()
	started bool
}

// Name returns the label given to Init.
func (c *Context) Name() string { return c.name }

// Stack returns the stack region given to Init.
func (c *Context) Stack() []byte { return c.stack }

// Port switches execution between thread contexts.
//
// Exactly one context owns the CPU at a time. Dispatch and Stop never
// block and may be called with the kernel lock held; Wait must be called
// without it.
type Port interface {
	// Init prepares c to run entry on stack once it is first dispatched.
	Init(c *Context, name string, stack []byte, entry func())
	// Dispatch makes c the context owning the CPU. A nil c leaves the CPU
	// idle.
	Dispatch(c *Context)
	// Wait blocks the calling thread until c owns the CPU. It returns false
	// if the port was stopped.
	Wait(c *Context) bool
	// Stop halts the CPU: every Wait returns false from now on.
	Stop()
}
