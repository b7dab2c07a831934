package kernel

import (
	"fmt"
	"math"
)

// Priority orders threads: higher values are more urgent.
type Priority uint8

const (
	// IdlePriority is reserved for the idle thread.
	IdlePriority Priority = 0
	// LowPriority is the lowest priority usable by application threads.
	LowPriority Priority = 1
	// NormalPriority is the default application priority.
	NormalPriority Priority = 64
	// HighPriority is the highest priority usable by application threads.
	HighPriority Priority = 127
)

// Ticks is a duration or absolute time in kernel ticks.
type Ticks uint32

const (
	// Immediate as a timeout makes a wait return at once.
	Immediate Ticks = 0
	// Infinite as a timeout disables it.
	Infinite Ticks = math.MaxUint32
)

// Msg is the wake-up reason delivered to a blocked thread, a message reply
// code or a thread exit code.
type Msg int32

const (
	// MsgOK is the normal wake-up.
	MsgOK Msg = 0
	// MsgTimeout reports that a wait expired.
	MsgTimeout Msg = -1
	// MsgReset reports that the object waited on was reset or went away.
	MsgReset Msg = -2
)

func (m Msg) String() string {
	switch m {
	case MsgOK:
		return "ok"
	case MsgTimeout:
		return "timeout"
	case MsgReset:
		return "reset"
	default:
		return fmt.Sprintf("msg(%d)", int32(m))
	}
}

// State is a thread lifecycle state.
type State uint8

const (
	StateFree State = iota
	StateReady
	StateRunning
	StateSuspended
	StateSleeping
	StateSending
	StateReceiving
	StateWaitingOnEvent
	StateWaitingOnJoin
	StateWaitingOnMutex
	StateWaitingOnQueue
	StateTerminated
)

var stateNames = [...]string{
	StateFree:           "free",
	StateReady:          "ready",
	StateRunning:        "running",
	StateSuspended:      "suspended",
	StateSleeping:       "sleeping",
	StateSending:        "sending",
	StateReceiving:      "receiving",
	StateWaitingOnEvent: "wtevent",
	StateWaitingOnJoin:  "wtjoin",
	StateWaitingOnMutex: "wtmutex",
	StateWaitingOnQueue: "wtqueue",
	StateTerminated:     "terminated",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Waiting reports whether s is one of the blocked states.
func (s State) Waiting() bool {
	return s >= StateSleeping && s <= StateWaitingOnQueue
}

// tref is a thread pool index; 0 is the nil reference.
type tref uint16

const nilRef tref = 0

// Handle identifies a thread for its whole lifetime.
//
// A handle becomes stale once the thread has been joined and its control
// block reused. The zero Handle is never valid.
type Handle struct {
	ref tref
	gen uint32
}

// Valid reports whether h was ever returned by the kernel.
func (h Handle) Valid() bool { return h.ref != nilRef }

func (h Handle) String() string {
	if !h.Valid() {
		return "T-"
	}
	return fmt.Sprintf("T%d.%d", h.ref, h.gen)
}

// Entry is a thread body. The returned value is the thread exit code.
type Entry func(ctx *Context, arg any) Msg
