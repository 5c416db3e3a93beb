package heap

import (
	"testing"
	"unsafe"

	"github.com/camelmm/camelmm/internal/superblock"
)

func TestHeapIsCacheLineSized(t *testing.T) {
	if size := unsafe.Sizeof(Heap{}); size%CacheLineSize != 0 {
		t.Fatalf("unsafe.Sizeof(Heap{}) = %d, want a multiple of %d", size, CacheLineSize)
	}
}

func newSuperblock(t *testing.T, owner, class int, classSize uintptr) uintptr {
	t.Helper()

	buf := make([]byte, superblock.SB)
	t.Cleanup(func() { _ = buf })

	base := uintptr(unsafe.Pointer(&buf[0]))
	superblock.Init(base, owner, class, classSize, 1)

	return base
}

func TestInsertRemove(t *testing.T) {
	h := New(1, 4)
	addr := newSuperblock(t, 1, 0, 64)

	h.Insert(2, 0, addr)

	if h.NumSuperblocks() != 1 {
		t.Fatalf("NumSuperblocks() = %d, want 1", h.NumSuperblocks())
	}

	got, bin, found := h.SearchFree(0)
	if !found || got != addr || bin != 2 {
		t.Fatalf("SearchFree(0) = (%v, %d, %v), want (%v, 2, true)", got, bin, found, addr)
	}

	h.Remove(2, 0, addr)

	if h.NumSuperblocks() != 0 {
		t.Fatalf("NumSuperblocks() = %d, want 0 after Remove", h.NumSuperblocks())
	}

	if _, _, found := h.SearchFree(0); found {
		t.Fatalf("SearchFree(0) found a superblock after Remove")
	}
}

func TestInsertMultiplePrependsCorrectly(t *testing.T) {
	h := New(1, 2)

	a1 := newSuperblock(t, 1, 0, 32)
	a2 := newSuperblock(t, 1, 0, 32)

	h.Insert(0, 0, a1)
	h.Insert(0, 0, a2)

	if h.NumSuperblocks() != 2 {
		t.Fatalf("NumSuperblocks() = %d, want 2", h.NumSuperblocks())
	}

	got, _, found := h.SearchFree(0)
	if !found || got != a2 {
		t.Fatalf("SearchFree(0) = %v, want most-recently-inserted %v", got, a2)
	}

	h.Remove(0, 0, a2)

	got, _, found = h.SearchFree(0)
	if !found || got != a1 {
		t.Fatalf("SearchFree(0) after removing head = %v, want %v", got, a1)
	}
}

func TestPostAllocateUpdateMovesToMoreFullBin(t *testing.T) {
	h := New(1, 1)
	classSize := uintptr(64)
	addr := newSuperblock(t, 1, 0, classSize)

	h.Insert(FullnessBins-1, 0, addr)

	sb := superblock.AtAddress(addr)
	for sb.Allocated() < sb.Capacity()*uint32(classSize)-uint32(classSize) {
		sb.AllocateBlock(classSize)
	}

	h.PostAllocateUpdate(addr, 0, classSize, FullnessBins-1)

	if bin := int(sb.BucketNum()); bin == FullnessBins-1 {
		t.Fatalf("BucketNum() = %d, want it to have moved to a fuller bin", bin)
	}
}

func TestPostAllocateUpdateRemovesWhenFull(t *testing.T) {
	h := New(1, 1)
	classSize := uintptr(4000)
	addr := newSuperblock(t, 1, 0, classSize)

	h.Insert(FullnessBins-1, 0, addr)

	sb := superblock.AtAddress(addr)
	for !sb.IsFull() {
		sb.AllocateBlock(classSize)
	}

	h.PostAllocateUpdate(addr, 0, classSize, FullnessBins-1)

	if h.NumSuperblocks() != 0 {
		t.Fatalf("NumSuperblocks() = %d, want 0 after filling the only superblock", h.NumSuperblocks())
	}
}

func TestPostFreeUpdateRejoinsFromFull(t *testing.T) {
	h := New(1, 1)
	classSize := uintptr(4000)
	addr := newSuperblock(t, 1, 0, classSize)

	sb := superblock.AtAddress(addr)
	for !sb.IsFull() {
		sb.AllocateBlock(classSize)
	}

	sb.SetBucketNum(-1) // not linked into any bucket, as a full superblock never is

	p := unsafe.Pointer(addr + superblock.HeaderBytes)
	sb.FreeBlock(p, classSize)

	h.PostFreeUpdate(addr, 0, classSize)

	if h.NumSuperblocks() != 1 {
		t.Fatalf("NumSuperblocks() = %d, want 1 after a full superblock gained room", h.NumSuperblocks())
	}
}

func TestTransferPreservesBin(t *testing.T) {
	from := New(1, 1)
	to := New(2, 1)
	classSize := uintptr(64)
	addr := newSuperblock(t, 1, 0, classSize)

	from.Insert(1, 0, addr)

	Transfer(from, to, 1, 0, addr, 2)

	if from.NumSuperblocks() != 0 {
		t.Fatalf("from.NumSuperblocks() = %d, want 0 after Transfer", from.NumSuperblocks())
	}

	if to.NumSuperblocks() != 1 {
		t.Fatalf("to.NumSuperblocks() = %d, want 1 after Transfer", to.NumSuperblocks())
	}

	sb := superblock.AtAddress(addr)
	if sb.Owner() != 2 {
		t.Fatalf("Owner() = %d, want 2", sb.Owner())
	}

	if int(sb.BucketNum()) != 1 {
		t.Fatalf("BucketNum() = %d, want preserved bin 1", sb.BucketNum())
	}
}
