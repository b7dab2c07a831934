// Package serial is a full-duplex serial line driver on kernel byte queues.
//
// The interrupt side (methods ending in I) runs inside Kernel.Interrupt; the
// thread side runs on kernel threads. Line status changes are broadcast on
// the driver's status event source and accumulated until a thread reads
// them with GetAndClearFlags.
package serial

import (
	"rtk/kernel"

	"v.io/x/lib/vlog"
)

// Status flags of a serial line.
const (
	Connected kernel.EventFlags = 1 << iota
	Disconnected
	InputAvailable
	Overrun
)

const (
	// DefaultQueueSize is the input and output buffer size used by New.
	DefaultQueueSize = 128
)

// Driver is one serial line.
type Driver struct {
	name string
	in   *kernel.InputQueue
	out  *kernel.OutputQueue

	status kernel.EventSource
	// flags accumulates status; guarded by the kernel lock.
	flags kernel.EventFlags

	// txReady wakes the transmitter whenever a thread queues output;
	// rxReady wakes a receiver stalled on a full input queue whenever a
	// thread takes a byte.
	txReady chan struct{}
	rxReady chan struct{}
	inSize  int
}

// New returns a driver with queues of DefaultQueueSize bytes.
func New(name string) *Driver {
	return NewSize(name, DefaultQueueSize, DefaultQueueSize)
}

// NewSize returns a driver with the given queue sizes.
func NewSize(name string, inSize, outSize int) *Driver {
	d := &Driver{
		name:    name,
		txReady: make(chan struct{}, 1),
		rxReady: make(chan struct{}, 1),
		inSize:  inSize,
	}
	d.in = kernel.NewInputQueue(make([]byte, inSize), d.kickRx)
	d.out = kernel.NewOutputQueue(make([]byte, outSize), d.kickTx)
	return d
}

// Name returns the line name.
func (d *Driver) Name() string { return d.name }

// Status returns the event source broadcast on line status changes.
func (d *Driver) Status() *kernel.EventSource { return &d.status }

func (d *Driver) kickTx() {
	select {
	case d.txReady <- struct{}{}:
	default:
	}
}

func (d *Driver) kickRx() {
	select {
	case d.rxReady <- struct{}{}:
	default:
	}
}

func (d *Driver) addFlagsI(i *kernel.ISR, f kernel.EventFlags) {
	d.flags |= f
	i.Broadcast(&d.status, f)
}

// IncomingI stores a received byte. A full input queue drops the byte and
// raises Overrun.
func (d *Driver) IncomingI(i *kernel.ISR, b byte) {
	empty := d.in.Len(i) == 0
	if err := d.in.PutI(i, b); err != nil {
		vlog.VI(2).Infof("serial %s: overrun", d.name)
		d.addFlagsI(i, Overrun)
		return
	}
	if empty {
		d.addFlagsI(i, InputAvailable)
	}
}

// ConnectI raises Connected.
func (d *Driver) ConnectI(i *kernel.ISR) {
	vlog.VI(1).Infof("serial %s: connected", d.name)
	d.addFlagsI(i, Connected)
}

// DisconnectI raises Disconnected.
func (d *Driver) DisconnectI(i *kernel.ISR) {
	vlog.VI(1).Infof("serial %s: disconnected", d.name)
	d.addFlagsI(i, Disconnected)
}

// TransmitI takes the next byte to send.
func (d *Driver) TransmitI(i *kernel.ISR) (byte, bool) {
	return d.out.GetI(i)
}

// Put queues b for transmission, waiting for room.
func (d *Driver) Put(ctx *kernel.Context, b byte) kernel.Msg {
	return d.out.Put(ctx, b, kernel.Infinite)
}

// Write queues p for transmission.
func (d *Driver) Write(ctx *kernel.Context, p []byte) (int, kernel.Msg) {
	return d.out.Write(ctx, p, kernel.Infinite)
}

// WriteString queues s for transmission.
func (d *Driver) WriteString(ctx *kernel.Context, s string) kernel.Msg {
	_, msg := d.out.Write(ctx, []byte(s), kernel.Infinite)
	return msg
}

// Get waits for a received byte. The Msg is MsgReset once the input queue
// is reset.
func (d *Driver) Get(ctx *kernel.Context) (byte, kernel.Msg) {
	return d.in.Get(ctx, kernel.Infinite)
}

// GetTimeout is Get bounded by timeout ticks.
func (d *Driver) GetTimeout(ctx *kernel.Context, timeout kernel.Ticks) (byte, kernel.Msg) {
	return d.in.Get(ctx, timeout)
}

// GetAndClearFlags returns the status accumulated since the previous call.
func (d *Driver) GetAndClearFlags(ctx *kernel.Context) kernel.EventFlags {
	var f kernel.EventFlags
	ctx.WithLock(func(*kernel.ISR) {
		f = d.flags
		d.flags = 0
	})
	return f
}

// ResetInput discards received bytes and fails pending reads with MsgReset.
func (d *Driver) ResetInput(ctx *kernel.Context) {
	ctx.WithLock(func(i *kernel.ISR) {
		d.in.Reset(i)
		d.kickRx()
	})
}

// ResetOutput discards queued output and fails pending writes with
// MsgReset.
func (d *Driver) ResetOutput(ctx *kernel.Context) {
	ctx.WithLock(d.out.Reset)
}
