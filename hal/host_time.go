//go:build !tinygo

package hal

import (
	"context"
	"time"
)

type hostTime struct {
	ch  chan uint64
	seq uint64

	period time.Duration
	budget int
	last   time.Time
	acc    time.Duration
}

func newHostTime() *hostTime {
	return &hostTime{ch: make(chan uint64, 1024)}
}

func (t *hostTime) Ticks() <-chan uint64 { return t.ch }

// run emits ticks at period until ctx is done.
func (t *hostTime) run(ctx context.Context, period time.Duration, budget int) error {
	t.period = period
	t.budget = budget
	tk := time.NewTicker(period)
	defer tk.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-tk.C:
			t.step(now)
		}
	}
}

// step emits the ticks elapsed since the previous step, at most budget of
// them; a late wall-clock ticker catches up over the following steps.
func (t *hostTime) step(now time.Time) {
	if t.last.IsZero() {
		t.last = now
		t.acc = 0
		t.stepN(1)
		return
	}

	t.acc += now.Sub(t.last)
	t.last = now

	ticks := uint64(t.acc / t.period)
	if ticks == 0 {
		return
	}
	if t.budget > 0 && ticks > uint64(t.budget) {
		ticks = uint64(t.budget)
	}
	t.acc -= time.Duration(ticks) * t.period
	t.stepN(ticks)
}

func (t *hostTime) stepN(n uint64) {
	for i := uint64(0); i < n; i++ {
		t.seq++
		select {
		case t.ch <- t.seq:
		default:
		}
	}
}
