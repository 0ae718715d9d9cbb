package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/runoshun/rtcheck/internal/infra/kernel"
)

// NewKernel returns a preemptive kernel with a short tick and a heap large
// enough for the self-test components. It is shut down when the test ends.
func NewKernel(t testing.TB, tick time.Duration) *kernel.Kernel {
	t.Helper()
	k := kernel.New(kernel.Options{
		Tick:          tick,
		HeapSize:      1 << 20,
		MinStack:      128,
		MaxPriorities: 4,
		Preemptive:    true,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = k.Shutdown(ctx)
	})
	return k
}
