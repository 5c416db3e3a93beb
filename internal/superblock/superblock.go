// Package superblock implements the fixed-size region that camelmm carves
// into equal-sized blocks of one size class, along with its in-place
// offset-encoded freelist.
//
// A superblock's header and freelist nodes are written directly into the
// raw bytes handed back by internal/memlib, not allocated as ordinary Go
// objects. To keep that overlay garbage-collector-safe, Header stores no
// Go pointers: sibling links and freelist positions are plain integers
// (byte offsets or raw addresses typed as uintptr, which the GC does not
// follow), the same trick the freelist node already needs for its own
// "next" field.
package superblock

import (
	"sync"
	"unsafe"
)

const (
	// SB is the unit size in bytes (one page-aligned chunk a superblock
	// occupies one or more of).
	SB = 4096

	// FullnessBins is F, the number of fullness bins per (heap, class).
	FullnessBins = 3
)

// Header is the superblock's in-region header. It is placed at offset 0
// of the superblock via an unsafe.Pointer cast over memory obtained from
// internal/memlib; it is never copied by value.
type Header struct {
	mu sync.Mutex

	head      uint32 // offset from this header's address to the first freelist node; 0 = none
	allocated uint32 // bytes currently handed out
	capacity  uint32 // C, total blocks this superblock holds
	units     uint32 // U, number of SB-sized units this superblock spans
	owner     int32  // owning heap index; 0 = global
	sizeClass int32  // c
	bucketNum int32  // current fullness bin, or -1 if not linked into any bucket

	prev uintptr // base address of the previous sibling in the owning heap's bucket list; 0 = none
	next uintptr // base address of the next sibling; 0 = none
}

// HeaderBytes is H rounded up to an 8-byte multiple, per spec.
const HeaderBytes = (unsafe.Sizeof(Header{}) + 7) &^ 7

// node is the 8-byte in-place freelist record.
type node struct {
	next uint32 // offset from the enclosing superblock's base to the next free node; 0 = none
	n    uint32 // count of contiguous free blocks this node represents
}

// AtAddress views a raw address as a superblock header. addr must be the
// base of a superblock previously produced by Init.
func AtAddress(addr uintptr) *Header {
	return (*Header)(unsafe.Pointer(addr))
}

// Addr returns this header's own base address, i.e. the superblock's
// first byte.
func (h *Header) Addr() uintptr { return uintptr(unsafe.Pointer(h)) }

// Init carves a fresh superblock out of base..base+units*SB for sizeClass
// blocks of classSize bytes each, and places a single bulk freelist node
// covering the whole block region. bucketNum is left at -1 (not yet
// placed in any bucket); the caller links it in.
func Init(base uintptr, owner int, sizeClass int, classSize uintptr, units uint32) *Header {
	h := (*Header)(unsafe.Pointer(base))
	*h = Header{} // zero-write the header

	h.owner = int32(owner)
	h.sizeClass = int32(sizeClass)
	h.bucketNum = -1
	h.units = units

	// C = ((U-1)*SB + (SB - round_up(H,8))) / S[c]
	available := (uintptr(units)-1)*SB + (SB - HeaderBytes)
	h.capacity = uint32(available / classSize)

	nodeAddr := base + HeaderBytes
	nd := (*node)(unsafe.Pointer(nodeAddr))
	nd.next = 0
	nd.n = h.capacity

	h.head = uint32(HeaderBytes)

	return h
}

// Lock / Unlock protect this header's mutable fields (head, allocated,
// owner, and the freelist bytes) per spec's sb.lock.
func (h *Header) Lock()   { h.mu.Lock() }
func (h *Header) Unlock() { h.mu.Unlock() }

// IsFull reports whether the superblock has no free blocks left.
func (h *Header) IsFull() bool { return h.head == 0 }

func (h *Header) Allocated() uint32  { return h.allocated }
func (h *Header) Capacity() uint32   { return h.capacity }
func (h *Header) Units() uint32      { return h.units }
func (h *Header) Owner() int32       { return h.owner }
func (h *Header) SetOwner(o int32)   { h.owner = o }
func (h *Header) SizeClass() int32   { return h.sizeClass }
func (h *Header) BucketNum() int32   { return h.bucketNum }
func (h *Header) SetBucketNum(b int32) { h.bucketNum = b }
func (h *Header) Prev() uintptr      { return h.prev }
func (h *Header) SetPrev(addr uintptr) { h.prev = addr }
func (h *Header) Next() uintptr      { return h.next }
func (h *Header) SetNext(addr uintptr) { h.next = addr }

// AllocateBlock pops one block from the freelist. The caller must hold
// h.Lock() and must know head != "none" before calling (spec 4.3).
func (h *Header) AllocateBlock(classSize uintptr) unsafe.Pointer {
	base := h.Addr()
	nodeAddr := base + uintptr(h.head)
	nd := (*node)(unsafe.Pointer(nodeAddr))

	var ptr unsafe.Pointer

	if nd.n > 1 {
		nd.n--
		ptr = unsafe.Pointer(nodeAddr + uintptr(nd.n)*classSize)
	} else {
		ptr = unsafe.Pointer(nodeAddr)
		h.head = nd.next
	}

	h.allocated += uint32(classSize)

	return ptr
}

// FreeBlock pushes block p back onto the freelist as a fresh n=1 node.
// The caller must hold h.Lock().
func (h *Header) FreeBlock(p unsafe.Pointer, classSize uintptr) {
	base := h.Addr()
	addr := uintptr(p)

	nd := (*node)(unsafe.Pointer(addr))
	nd.n = 1
	nd.next = h.head

	h.head = uint32(addr - base)
	h.allocated -= uint32(classSize)
}

// TargetBin returns the fullness bin a superblock with the given
// allocated/capacity/classSize should occupy: the largest b such that
// r <= (F-b)/F where r = allocated/(capacity*classSize), computed with
// integer cross-multiplication to avoid floating-point drift.
func TargetBin(allocated, capacity uint32, classSize uintptr, bins int) int {
	total := uint64(capacity) * uint64(classSize)
	if total == 0 {
		return bins - 1
	}

	a := uint64(allocated) * uint64(bins)

	for b := bins - 1; b >= 0; b-- {
		if a <= uint64(bins-b)*total {
			return b
		}
	}

	return 0
}

// UnitsFor computes U, the number of SB-sized units a superblock of the
// given class size needs: 1 unit if the class fits in a single unit's
// available space, otherwise grown to cover it.
func UnitsFor(classSize uintptr) uint32 {
	available := uintptr(SB) - HeaderBytes
	if classSize <= available {
		return 1
	}

	extra := classSize - available
	units := 1 + (extra+SB-1)/SB

	return uint32(units)
}
