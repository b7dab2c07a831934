//go:build !tinygo

package kernel

import "runtime"

// haltStackMax bounds the trace kept in a halt record.
const haltStackMax = 16 << 10

// captureStack returns the trace of the calling goroutine only: the halting
// thread, or the interrupt source that broke an invariant.
func captureStack() []byte {
	buf := make([]byte, haltStackMax)
	return buf[:runtime.Stack(buf, false)]
}
