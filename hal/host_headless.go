//go:build !tinygo

package hal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// HeadlessConfig controls the host runner.
type HeadlessConfig struct {
	// Hz is the system tick rate.
	Hz int
	// Ticks stops the runner after that many ticks; 0 runs until the
	// context is done.
	Ticks uint64
	// StepBudget bounds the ticks delivered at once when the host falls
	// behind.
	StepBudget int
}

var errTickLimit = errors.New("hal: tick limit reached")

// RunHeadless delivers the ticks of h to tick, one call per tick, and runs
// workers alongside until ctx is done, the tick limit is reached or any of
// them fails.
func RunHeadless(ctx context.Context, h HAL, cfg HeadlessConfig, tick func(seq uint64), workers ...func(context.Context) error) error {
	if cfg.Hz == 0 {
		cfg.Hz = 1000
	}
	if cfg.StepBudget <= 0 {
		cfg.StepBudget = 8
	}
	d := time.Second / time.Duration(cfg.Hz)
	if cfg.Hz < 0 || d <= 0 {
		return fmt.Errorf("invalid headless hz: %d", cfg.Hz)
	}

	g, ctx := errgroup.WithContext(ctx)
	if ht, ok := h.Time().(*hostTime); ok {
		g.Go(func() error { return ht.run(ctx, d, cfg.StepBudget) })
	}
	g.Go(func() error {
		ch := h.Time().Ticks()
		var n uint64
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case seq, ok := <-ch:
				if !ok {
					return errTickLimit
				}
				tick(seq)
				n++
				if cfg.Ticks > 0 && n >= cfg.Ticks {
					return errTickLimit
				}
			}
		}
	})
	for _, w := range workers {
		g.Go(func() error { return w(ctx) })
	}

	err := g.Wait()
	if errors.Is(err, errTickLimit) {
		return nil
	}
	return err
}
