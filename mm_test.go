package camelmm

import (
	"testing"
	"unsafe"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ArenaCapacity = 32 * 1024 * 1024

	return cfg
}

func TestNewBootstrapsSuperblockStart(t *testing.T) {
	a, err := New(testConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if a.superblockStart%a.provider.PageSize() != 0 {
		t.Fatalf("superblockStart %d is not page-aligned (page size %d)", a.superblockStart, a.provider.PageSize())
	}

	if len(a.heaps) < 2 {
		t.Fatalf("len(heaps) = %d, want at least 2 (global + >=1 per-CPU)", len(a.heaps))
	}
}

func TestMallocZeroAndOversizeReturnNil(t *testing.T) {
	a, err := New(testConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if p := a.Malloc(0); p != nil {
		t.Fatalf("Malloc(0) = %v, want nil", p)
	}

	if p := a.Malloc(a.table.Max() * 1024); p != nil {
		t.Fatalf("Malloc(oversize) = %v, want nil", p)
	}
}

func TestMallocFreeRoundTrip(t *testing.T) {
	a, err := New(testConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	const n = 4096

	ptrs := make([]unsafe.Pointer, 0, n)

	for i := 0; i < n; i++ {
		p := a.Malloc(48)
		if p == nil {
			t.Fatalf("Malloc(48) returned nil at iteration %d", i)
		}

		ptrs = append(ptrs, p)
	}

	seen := make(map[unsafe.Pointer]bool, n)
	for _, p := range ptrs {
		if seen[p] {
			t.Fatalf("Malloc returned duplicate live pointer %v", p)
		}

		seen[p] = true
	}

	for _, p := range ptrs {
		*(*byte)(p) = 0xAB
	}

	for _, p := range ptrs {
		a.Free(p)
	}

	// Everything freed should be reusable: allocating the same count
	// again must succeed.
	for i := 0; i < n; i++ {
		if p := a.Malloc(48); p == nil {
			t.Fatalf("Malloc(48) returned nil reallocating after Free, iteration %d", i)
		}
	}
}

func TestFreeNilIsNoop(t *testing.T) {
	a, err := New(testConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	a.Free(nil)
}

func TestMallocGrowsAcrossSizeClasses(t *testing.T) {
	a, err := New(testConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	sizes := []uintptr{8, 16, 64, 256, 1024, 4096}

	for _, s := range sizes {
		p := a.Malloc(s)
		if p == nil {
			t.Fatalf("Malloc(%d) = nil", s)
		}
	}
}

func TestIdentity(t *testing.T) {
	a, err := New(testConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	id := a.Identity()
	if id.Team == "" {
		t.Fatalf("Identity().Team is empty")
	}
}
