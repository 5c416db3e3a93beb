// Package heap implements the per-CPU and global heaps: fullness-indexed
// bucket lists of superblocks, one bucket array per heap, plus the
// transition and transfer logic that moves superblocks between buckets
// and between heaps.
package heap

import (
	"sync"
	"unsafe"

	"github.com/camelmm/camelmm/internal/superblock"
)

// FullnessBins mirrors superblock.FullnessBins for readability in this
// package's call sites.
const FullnessBins = superblock.FullnessBins

// CacheLineSize is the assumed host cache line width.
const CacheLineSize = 64

// heapFields holds everything a Heap actually needs; Heap appends
// padding after it so bootstrap.go's back-to-back `heap.New` allocations
// don't let two heaps' locks and bucket arrays share a cache line.
type heapFields struct {
	mu sync.Mutex

	// buckets[bin][class] holds the base address of the first
	// superblock in that bucket's list, or 0 if the list is empty.
	buckets [FullnessBins][]uintptr

	numSuperblocks int
	index          int // this heap's own index: 0 = global, 1..P per CPU
}

// CachelinePad is the number of trailing padding bytes Heap carries to
// round its size up to a CacheLineSize multiple (spec.md 5: "heap
// metadata is padded to a cacheline boundary").
const CachelinePad = (CacheLineSize - (unsafe.Sizeof(heapFields{}) % CacheLineSize)) % CacheLineSize

// Heap is a collection of per-size-class bucket arrays plus a lock,
// padded to a cache line. Instances: H[0] is the global heap, H[1..P]
// are one per CPU.
type Heap struct {
	heapFields
	_ [CachelinePad]byte
}

// New builds a heap with numClasses columns per fullness bin.
func New(index, numClasses int) *Heap {
	h := &Heap{}
	h.index = index

	for b := range h.buckets {
		h.buckets[b] = make([]uintptr, numClasses)
	}

	return h
}

func (h *Heap) Lock()   { h.mu.Lock() }
func (h *Heap) Unlock() { h.mu.Unlock() }

// Index returns this heap's heap-array index (0 = global).
func (h *Heap) Index() int { return h.index }

// NumSuperblocks returns the count of superblocks currently linked into
// any of this heap's bucket lists. Caller must hold h.Lock().
func (h *Heap) NumSuperblocks() int { return h.numSuperblocks }

// Insert prepends the superblock at addr to bucket (bin, class) and
// stamps its bucketNum. Caller must hold h.Lock(). Insert does not read
// or change sb's owner; callers stamp it themselves.
func (h *Heap) Insert(bin, class int, addr uintptr) {
	sb := superblock.AtAddress(addr)

	oldHead := h.buckets[bin][class]
	sb.SetPrev(0)
	sb.SetNext(oldHead)

	if oldHead != 0 {
		superblock.AtAddress(oldHead).SetPrev(addr)
	}

	h.buckets[bin][class] = addr
	sb.SetBucketNum(int32(bin))
	h.numSuperblocks++
}

// Remove detaches the superblock at addr from bucket (bin, class) and
// marks it as unlinked (bucketNum = -1). Caller must hold h.Lock().
func (h *Heap) Remove(bin, class int, addr uintptr) {
	sb := superblock.AtAddress(addr)
	prev := sb.Prev()
	next := sb.Next()

	if prev != 0 {
		superblock.AtAddress(prev).SetNext(next)
	} else {
		h.buckets[bin][class] = next
	}

	if next != 0 {
		superblock.AtAddress(next).SetPrev(prev)
	}

	sb.SetPrev(0)
	sb.SetNext(0)
	sb.SetBucketNum(-1)
	h.numSuperblocks--
}

// SearchFree scans bins 0 -> F-1 and returns the first non-empty bucket's
// head for the given class. Caller must hold h.Lock().
func (h *Heap) SearchFree(class int) (addr uintptr, bin int, found bool) {
	for b := 0; b < FullnessBins; b++ {
		if a := h.buckets[b][class]; a != 0 {
			return a, b, true
		}
	}

	return 0, -1, false
}

// PostAllocateUpdate applies the fullness transition after a block was
// popped from the superblock at addr (spec 4.5): if the superblock is
// now completely full it leaves every bucket; otherwise, if its new
// ratio now belongs to a more-full bin, it is relinked there. Caller
// must hold both h.Lock() and the superblock's own lock.
func (h *Heap) PostAllocateUpdate(addr uintptr, class int, classSize uintptr, bin int) {
	sb := superblock.AtAddress(addr)

	if sb.IsFull() {
		h.Remove(bin, class, addr)
		return
	}

	target := superblock.TargetBin(sb.Allocated(), sb.Capacity(), classSize, FullnessBins)
	if target != bin {
		h.Remove(bin, class, addr)
		h.Insert(target, class, addr)
	}
}

// PostFreeUpdate applies the fullness transition after a block was
// pushed back onto the superblock at addr (spec 4.5): a superblock that
// was completely full (bucketNum == -1) and now has room rejoins the
// least-full bin; one already linked moves to a less-full bin if its new
// ratio warrants it. Caller must hold both h.Lock() and the superblock's
// own lock.
func (h *Heap) PostFreeUpdate(addr uintptr, class int, classSize uintptr) {
	sb := superblock.AtAddress(addr)
	bin := int(sb.BucketNum())

	if bin < 0 {
		if !sb.IsFull() {
			h.Insert(FullnessBins-1, class, addr)
		}

		return
	}

	target := superblock.TargetBin(sb.Allocated(), sb.Capacity(), classSize, FullnessBins)
	if target != bin {
		h.Remove(bin, class, addr)
		h.Insert(target, class, addr)
	}
}

// Transfer moves the superblock at addr, currently linked at (bin,
// class) in from, into to at the SAME bin, and stamps its new owner.
// Per spec 4.6 step 5, ownership transfer preserves bucketNum rather
// than reclassifying by fullness. Caller must hold from.Lock(),
// to.Lock(), and the superblock's own lock.
func Transfer(from, to *Heap, bin, class int, addr uintptr, newOwner int32) {
	from.Remove(bin, class, addr)
	to.Insert(bin, class, addr)
	superblock.AtAddress(addr).SetOwner(newOwner)
}
