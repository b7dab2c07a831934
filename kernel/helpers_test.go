package kernel

import (
	"sync"
	"testing"
	"time"

	"rtk/port"

	"github.com/davecgh/go-spew/spew"
)

const testTimeout = 2 * time.Second

func newTestKernel(t *testing.T, mods ...func(*Config)) *Kernel {
	t.Helper()
	cfg := DefaultConfig()
	cfg.MaxThreads = 16
	cfg.MaxTimers = 8
	cfg.Debug = true
	for _, mod := range mods {
		mod(&cfg)
	}
	k, err := New(cfg, port.NewHost())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(k.Shutdown)
	return k
}

func newStack() []byte { return make([]byte, 256) }

// waitFor polls cond until it holds or the test times out.
func waitFor(t *testing.T, k *Kernel, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(testTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s\nthreads: %s", what, spew.Sdump(k.Threads()))
		}
		time.Sleep(time.Millisecond)
	}
}

func waitState(t *testing.T, k *Kernel, h Handle, want State) {
	t.Helper()
	waitFor(t, k, h.String()+" "+want.String(), func() bool {
		st, err := k.State(h)
		return err == nil && st == want
	})
}

// runMain runs fn on a thread of priority prio and waits for it to return.
func runMain(t *testing.T, k *Kernel, prio Priority, fn func(ctx *Context)) {
	t.Helper()
	done := make(chan struct{})
	h, err := k.Create("main", prio, newStack(), func(ctx *Context, _ any) Msg {
		defer close(done)
		fn(ctx)
		return MsgOK
	}, nil)
	if err != nil {
		t.Fatalf("Create(main) error = %v", err)
	}
	if err := k.Resume(h); err != nil {
		t.Fatalf("Resume(main) error = %v", err)
	}
	select {
	case <-done:
	case <-time.After(testTimeout):
		t.Fatalf("main thread did not finish\nthreads: %s", spew.Sdump(k.Threads()))
	}
}

// startTicker delivers a tick every millisecond until the test ends.
func startTicker(t *testing.T, k *Kernel) {
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		tk := time.NewTicker(time.Millisecond)
		defer tk.Stop()
		for {
			select {
			case <-stop:
				return
			case <-tk.C:
				k.Tick()
			}
		}
	}()
	t.Cleanup(func() {
		close(stop)
		<-done
	})
}

type recorder struct {
	mu  sync.Mutex
	log []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	r.log = append(r.log, s)
	r.mu.Unlock()
}

func (r *recorder) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.log...)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
