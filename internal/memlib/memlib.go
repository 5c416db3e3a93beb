// Package memlib is camelmm's raw heap provider: an sbrk-style bump
// allocator over a single fixed-capacity region, adapted from this
// codebase's internal/runtime region model down to the narrower contract
// spec.md's allocator core actually needs (a monotonically growing,
// never-shrinking, never-relocated byte arena).
//
// camelmm treats this package as an external collaborator: the engine
// only calls New, Sbrk, PageSize, and the bound accessors, and never
// inspects how the region is backed.
package memlib

import (
	"sync"
	"unsafe"

	"github.com/camelmm/camelmm/internal/campid/errors"
)

// DefaultCapacity is the arena size used when callers don't specify one.
const DefaultCapacity = 512 * 1024 * 1024 // 512 MiB

// Provider is a single growable arena. It is never relocated after New:
// the backing slice is allocated once at full capacity and a high-water
// mark is bumped within it, so every address it ever hands out stays
// valid for the provider's lifetime.
type Provider struct {
	mu sync.Mutex

	buf      []byte
	lo       uintptr
	hi       uintptr
	capacity uintptr
	pageSize uintptr
}

// New creates a provider with the given capacity (DefaultCapacity if 0).
func New(capacity uintptr) (*Provider, error) {
	if capacity == 0 {
		capacity = DefaultCapacity
	}

	buf := make([]byte, capacity)
	if len(buf) == 0 {
		return nil, errors.Bootstrap("memlib: failed to reserve arena", nil)
	}

	lo := uintptr(unsafe.Pointer(&buf[0]))

	return &Provider{
		buf:      buf,
		lo:       lo,
		hi:       lo,
		capacity: capacity,
		pageSize: detectPageSize(),
	}, nil
}

// Sbrk bumps the high-water mark by n bytes and returns a pointer to the
// start of the newly carved region, or an error if the arena's capacity
// is exhausted.
func (p *Provider) Sbrk(n uintptr) (unsafe.Pointer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n == 0 {
		return unsafe.Pointer(p.hi), nil
	}

	if p.hi+n > p.lo+p.capacity {
		return nil, errors.OutOfMemory("memlib: arena exhausted", map[string]interface{}{
			"requested": uint64(n),
			"available": uint64((p.lo + p.capacity) - p.hi),
		})
	}

	base := p.hi
	p.hi += n

	// Keep the backing slice alive for as long as the provider lives;
	// the pointers we hand out point inside it but aren't tracked by
	// the Go runtime as slice elements once cast through uintptr.
	_ = p.buf

	return unsafe.Pointer(base), nil
}

// PageSize returns the host page size, queried once at provider creation.
func (p *Provider) PageSize() uintptr { return p.pageSize }

// Lo returns the arena's low bound (its first byte's address).
func (p *Provider) Lo() uintptr { return p.lo }

// Hi returns the arena's current high-water mark.
func (p *Provider) Hi() uintptr {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.hi
}

// Size returns the arena's fixed capacity.
func (p *Provider) Size() uintptr { return p.capacity }
