package kernel

import "errors"

var (
	ErrInvalidConfig   = errors.New("kernel: invalid config")
	ErrInvalidPriority = errors.New("kernel: priority out of range")
	ErrExhausted       = errors.New("kernel: no free thread slot")
	ErrStackTooSmall   = errors.New("kernel: stack region too small")
	ErrNilEntry        = errors.New("kernel: nil thread entry")
	ErrStaleHandle     = errors.New("kernel: stale thread handle")
	ErrNotSuspended    = errors.New("kernel: thread not suspended")
	ErrTerminated      = errors.New("kernel: thread terminated")
	ErrAlreadyJoined   = errors.New("kernel: thread already has a joiner")
	ErrJoinSelf        = errors.New("kernel: thread cannot join itself")
	ErrSendSelf        = errors.New("kernel: thread cannot send to itself")
	ErrNotPending      = errors.New("kernel: sender not pending on this server")
	ErrTimerExhausted  = errors.New("kernel: no free virtual timer")
	ErrListenerBusy    = errors.New("kernel: listener already registered")
	ErrNotOwner        = errors.New("kernel: mutex not owned by caller")
	ErrRecursiveLock   = errors.New("kernel: mutex already owned by caller")
	ErrQueueFull       = errors.New("kernel: queue full")
	ErrHalted          = errors.New("kernel: system halted")
)
