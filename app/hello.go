package app

import (
	"rtk/drivers/serial"
	"rtk/kernel"
)

const (
	helloCount = 100
	helloDelay = 333
)

// helloMain greets on the line until ^C. Any other key pauses it once.
func helloMain(ctx *kernel.Context, arg any) kernel.Msg {
	d := arg.(*serial.Driver)
	for range helloCount {
		d.WriteString(ctx, "Hello World\r\n")
		c, msg := d.GetTimeout(ctx, helloDelay)
		switch {
		case msg == kernel.MsgTimeout:
		case msg != kernel.MsgOK:
			return 1
		case c == keyCtrlC:
			d.WriteString(ctx, "^C\r\n")
			return kernel.MsgOK
		default:
			ctx.Sleep(helloDelay)
		}
	}
	return kernel.MsgOK
}
