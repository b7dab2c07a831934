package kernel

import "fmt"

const (
	defaultMaxThreads = 32
	defaultMaxTimers  = 16
	defaultMinStack   = 64

	// maxSlots bounds the thread pool so indices fit in a tref.
	maxSlots = 1<<16 - 2
)

// Config holds kernel build-time style settings.
type Config struct {
	// MaxThreads is the number of application thread slots (the idle
	// thread is extra).
	MaxThreads int
	// MaxTimers is the number of application virtual timers. Timeouts used
	// by blocking calls have dedicated per-thread timers.
	MaxTimers int
	// MaxPriority is the highest priority accepted by Create.
	MaxPriority Priority
	// Quantum is the round-robin time slice in ticks; 0 disables
	// time-slicing among equal priorities.
	Quantum Ticks
	// MinStack is the smallest accepted stack region in bytes.
	MinStack int
	// Debug enables ready list consistency checks after every
	// scheduling decision.
	Debug bool
	// HaltHandler runs once when the system halts. It must not block.
	HaltHandler func(HaltInfo)
}

// DefaultConfig returns the default kernel configuration.
func DefaultConfig() Config {
	return Config{
		MaxThreads:  defaultMaxThreads,
		MaxTimers:   defaultMaxTimers,
		MaxPriority: HighPriority,
		MinStack:    defaultMinStack,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxThreads == 0 {
		c.MaxThreads = d.MaxThreads
	}
	if c.MaxTimers == 0 {
		c.MaxTimers = d.MaxTimers
	}
	if c.MaxPriority == 0 {
		c.MaxPriority = d.MaxPriority
	}
	if c.MinStack == 0 {
		c.MinStack = d.MinStack
	}
	return c
}

func (c Config) validate() error {
	if c.MaxThreads < 1 || c.MaxThreads > maxSlots {
		return fmt.Errorf("%w: max threads %d", ErrInvalidConfig, c.MaxThreads)
	}
	if c.MaxTimers < 0 {
		return fmt.Errorf("%w: max timers %d", ErrInvalidConfig, c.MaxTimers)
	}
	if c.MaxPriority < LowPriority {
		return fmt.Errorf("%w: max priority %d", ErrInvalidConfig, c.MaxPriority)
	}
	if c.MinStack < stackGuardLen {
		return fmt.Errorf("%w: min stack %d below guard size %d", ErrInvalidConfig, c.MinStack, stackGuardLen)
	}
	return nil
}
