package serial

import (
	"context"
	"errors"
	"io"

	"rtk/kernel"

	"golang.org/x/sync/errgroup"
)

const pumpChunk = 64

// Pump connects d to a host byte stream. Bytes read from rw are delivered
// as receive interrupts, holding back while the input queue is full, and
// queued output is written to rw. Pump raises Connected at start and
// Disconnected once rw reports EOF; it returns when ctx is done or rw
// fails.
func (d *Driver) Pump(ctx context.Context, k *kernel.Kernel, rw io.ReadWriter) error {
	k.Interrupt(d.ConnectI)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.transmit(ctx, k, rw) })

	// Reads cannot be interrupted, so the receiver is left behind when ctx
	// ends first.
	rxErr := make(chan error, 1)
	go func() { rxErr <- d.receive(ctx, k, rw) }()
	g.Go(func() error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-rxErr:
			k.Interrupt(d.DisconnectI)
			if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		}
	})
	return g.Wait()
}

func (d *Driver) receive(ctx context.Context, k *kernel.Kernel, r io.Reader) error {
	buf := make([]byte, pumpChunk)
	for {
		n, err := r.Read(buf)
		for _, b := range buf[:n] {
			if perr := d.deliver(ctx, k, b); perr != nil {
				return perr
			}
		}
		if err != nil {
			return err
		}
	}
}

// deliver raises one receive interrupt for b once the input queue has room.
func (d *Driver) deliver(ctx context.Context, k *kernel.Kernel, b byte) error {
	for {
		full := false
		k.Interrupt(func(i *kernel.ISR) {
			if d.in.Len(i) >= d.inSize {
				full = true
				return
			}
			d.IncomingI(i, b)
		})
		if !full {
			return nil
		}
		select {
		case <-d.rxReady:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (d *Driver) transmit(ctx context.Context, k *kernel.Kernel, w io.Writer) error {
	buf := make([]byte, 0, pumpChunk)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.txReady:
		}
		for {
			buf = buf[:0]
			k.Interrupt(func(i *kernel.ISR) {
				for len(buf) < cap(buf) {
					b, ok := d.TransmitI(i)
					if !ok {
						break
					}
					buf = append(buf, b)
				}
			})
			if len(buf) == 0 {
				break
			}
			if _, err := w.Write(buf); err != nil {
				return err
			}
		}
	}
}
