package camelmm

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/camelmm/camelmm/internal/campid"
	"github.com/camelmm/camelmm/internal/heap"
	"github.com/camelmm/camelmm/internal/memlib"
	"github.com/camelmm/camelmm/internal/platform"
	"github.com/camelmm/camelmm/internal/sizeclass"
	"github.com/camelmm/camelmm/internal/superblock"
)

// Allocator is one bootstrapped instance of the allocator: a size-class
// table, a raw arena provider, P+1 heaps, and the address at which the
// superblock region begins.
type Allocator struct {
	cfg   Config
	table *sizeclass.Table

	provider *memlib.Provider
	heaps    []*heap.Heap // heaps[0] is global, heaps[1..P] are per-CPU

	superblockStart uintptr

	mallocCount uint64
	freeCount   uint64
}

// New bootstraps an Allocator per cfg (spec 4.8).
func New(cfg Config) (*Allocator, error) {
	return bootstrap(cfg)
}

// Identity returns the fixed identity record this build of camelmm
// exposes (spec section 6).
func (a *Allocator) Identity() campid.Identity { return campid.Info }

// superblockBase resolves a user pointer to the base address of the
// superblock it was carved from, by floor-dividing its offset from
// SUPERBLOCK_START down to a multiple of SB.
func (a *Allocator) superblockBase(p unsafe.Pointer) uintptr {
	addr := uintptr(p)
	offset := addr - a.superblockStart

	return a.superblockStart + (offset/superblock.SB)*superblock.SB
}

// Malloc returns a pointer to classSize(size) usable bytes, or nil if
// size is 0, exceeds the largest size class, or the arena is exhausted
// (spec 4.6).
func (a *Allocator) Malloc(size uintptr) unsafe.Pointer {
	if size == 0 {
		return nil
	}

	class, ok := a.table.ClassOf(size)
	if !ok {
		return nil
	}

	classSize := a.table.Size(class)
	cpu := platform.CallerCPU()
	h := a.heaps[cpu+1]

	h.Lock()

	// Step 1: this CPU's own heap.
	if addr, bin, found := h.SearchFree(class); found {
		sb := superblock.AtAddress(addr)
		sb.Lock()
		ptr := sb.AllocateBlock(classSize)
		h.PostAllocateUpdate(addr, class, classSize, bin)
		sb.Unlock()
		h.Unlock()
		atomic.AddUint64(&a.mallocCount, 1)

		return ptr
	}

	// Step 2-5: adopt a superblock from the global heap, preserving its
	// fullness bin and re-stamping ownership while holding both heap
	// locks and the superblock's lock, then release the global lock
	// before allocating from it.
	g := a.heaps[0]
	g.Lock()

	if addr, bin, found := g.SearchFree(class); found {
		sb := superblock.AtAddress(addr)
		sb.Lock()

		heap.Transfer(g, h, bin, class, addr, int32(cpu+1))
		g.Unlock()

		ptr := sb.AllocateBlock(classSize)
		h.PostAllocateUpdate(addr, class, classSize, bin)
		sb.Unlock()
		h.Unlock()
		atomic.AddUint64(&a.mallocCount, 1)

		return ptr
	}

	g.Unlock()

	// Step 6: grow. Carve a fresh superblock from the raw arena.
	units := superblock.UnitsFor(classSize)

	base, err := a.provider.Sbrk(uintptr(units) * superblock.SB)
	if err != nil {
		h.Unlock()
		return nil
	}

	sb := superblock.Init(uintptr(base), cpu+1, class, classSize, units)
	ptr := sb.AllocateBlock(classSize) // no sibling knows about sb yet; no sb.Lock() needed

	if !sb.IsFull() {
		h.Insert(superblock.FullnessBins-1, class, sb.Addr())
		h.PostAllocateUpdate(sb.Addr(), class, classSize, superblock.FullnessBins-1)
	}

	h.Unlock()
	atomic.AddUint64(&a.mallocCount, 1)

	return ptr
}

// Free returns p, previously returned by Malloc on this Allocator, to
// its superblock, applies the post-free fullness transition, and
// donates the superblock back to the global heap if its owning heap now
// holds more than SBReserve superblocks and the superblock itself has
// fallen under AllocThreshold bytes allocated (spec 4.7). Free(nil) is
// a no-op.
func (a *Allocator) Free(p unsafe.Pointer) {
	if p == nil {
		return
	}

	atomic.AddUint64(&a.freeCount, 1)

	base := a.superblockBase(p)
	sb := superblock.AtAddress(base)

	sb.Lock()
	class := int(sb.SizeClass())
	assertf(class >= 0 && class < a.table.Len(), "size class %d out of table range [0,%d)", class, a.table.Len())
	classSize := a.table.Size(class)
	sb.FreeBlock(p, classSize)
	owner := sb.Owner()
	sb.Unlock()

	assertf(owner >= 0 && int(owner) < len(a.heaps), "owner %d out of heap range [0,%d)", owner, len(a.heaps))

	if owner == 0 {
		// Already donated to the global heap by a prior Free on a
		// sibling block in the same superblock: the global heap isn't
		// rebucketed on free, so there's nothing more to do. Avoids
		// reacquiring the global lock on every free of a superblock
		// that already migrated.
		return
	}

	h := a.heaps[owner]

	h.Lock()
	sb.Lock()

	if sb.Owner() != owner {
		// Raced with a concurrent Free that already donated this
		// superblock to the global heap; nothing left to do under the
		// heap we locked.
		sb.Unlock()
		h.Unlock()

		return
	}

	h.PostFreeUpdate(base, class, classSize)

	if h.NumSuperblocks() > SBReserve && sb.Allocated() < AllocThreshold {
		g := a.heaps[0]
		g.Lock()

		if bin := sb.BucketNum(); bin >= 0 {
			h.Remove(int(bin), class, base)
		}

		g.Insert(superblock.FullnessBins-1, class, base)
		sb.SetOwner(0)

		g.Unlock()
	}

	sb.Unlock()
	h.Unlock()
}

// HeapStats summarizes one heap's bucket occupancy at the instant it was
// read. Index 0 is always the global heap.
type HeapStats struct {
	Index          int
	NumSuperblocks int
}

// Stats summarizes an Allocator's state: lifetime call counts plus a
// per-heap snapshot of how many superblocks each heap currently holds.
// Grounded on this codebase's AllocatorStats reporting shape, narrowed
// to the counters this allocator's protocol actually tracks.
type Stats struct {
	MallocCount uint64
	FreeCount   uint64
	Heaps       []HeapStats
}

// Stats takes a snapshot of a's counters and heap occupancy.
// Each heap is locked only for the instant its own count is read; this
// is a snapshot, not a transaction across heaps.
func (a *Allocator) Stats() Stats {
	s := Stats{
		MallocCount: atomic.LoadUint64(&a.mallocCount),
		FreeCount:   atomic.LoadUint64(&a.freeCount),
		Heaps:       make([]HeapStats, len(a.heaps)),
	}

	for i, h := range a.heaps {
		h.Lock()
		s.Heaps[i] = HeapStats{Index: i, NumSuperblocks: h.NumSuperblocks()}
		h.Unlock()
	}

	return s
}

var (
	globalMu  sync.Mutex
	globalAlc *Allocator
)

// Init bootstraps the package-level default Allocator with DefaultConfig.
// Malloc and Free operate on this instance. Most callers embedding
// camelmm in a single process use this pair instead of managing an
// Allocator directly.
func Init() error {
	globalMu.Lock()
	defer globalMu.Unlock()

	a, err := New(DefaultConfig())
	if err != nil {
		return err
	}

	globalAlc = a

	return nil
}

// Malloc allocates from the package-level default Allocator set up by
// Init.
func Malloc(size uintptr) unsafe.Pointer {
	globalMu.Lock()
	a := globalAlc
	globalMu.Unlock()

	return a.Malloc(size)
}

// Free returns p to the package-level default Allocator set up by Init.
func Free(p unsafe.Pointer) {
	globalMu.Lock()
	a := globalAlc
	globalMu.Unlock()

	a.Free(p)
}
