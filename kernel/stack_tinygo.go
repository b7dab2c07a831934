//go:build tinygo

package kernel

// TinyGo cannot walk goroutine stacks; halt records carry none.
func captureStack() []byte { return nil }
