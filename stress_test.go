package camelmm

import (
	"context"
	"testing"
	"unsafe"

	"golang.org/x/sync/errgroup"
)

// TestConcurrentMallocFree drives many goroutines allocating and freeing
// across size classes concurrently, exercising the cross-CPU ownership
// transfer and donation paths under the real lock-ordering protocol.
func TestConcurrentMallocFree(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ArenaCapacity = 64 * 1024 * 1024

	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	const (
		workers    = 32
		iterations = 2000
	)

	sizes := []uintptr{8, 24, 96, 384, 1536}

	g, _ := errgroup.WithContext(context.Background())

	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			var live []unsafe.Pointer

			for i := 0; i < iterations; i++ {
				size := sizes[(w+i)%len(sizes)]

				p := a.Malloc(size)
				if p == nil {
					return errFailedAlloc(size)
				}

				*(*byte)(p) = byte(i)
				live = append(live, p)

				if len(live) > 8 {
					a.Free(live[0])
					live = live[1:]
				}
			}

			for _, p := range live {
				a.Free(p)
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent workload failed: %v", err)
	}
}

type errFailedAlloc uintptr

func (e errFailedAlloc) Error() string {
	return "allocation returned nil under concurrent load"
}
