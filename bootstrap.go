package camelmm

import (
	"github.com/camelmm/camelmm/internal/campid/errors"
	"github.com/camelmm/camelmm/internal/heap"
	"github.com/camelmm/camelmm/internal/memlib"
	"github.com/camelmm/camelmm/internal/platform"
	"github.com/camelmm/camelmm/internal/sizeclass"
)

// bootstrap performs mm_init's layout sequence (spec 4.8):
//
//  1. Obtain the raw provider.
//  2. Pad the provider's high-water mark up to the next page boundary and
//     record the result as SUPERBLOCK_START — the address every future
//     pointer-to-superblock resolution is anchored on.
//  3. Build the size-class table.
//  4. Query the processor count P and build P+1 heaps (index 0 is
//     global, 1..P are per-CPU).
//
// Unlike a C mm_init, camelmm's size-class table and heap bucket arrays
// are ordinary Go-allocated objects rather than bytes carved from the
// raw arena: they hold no addresses a user pointer ever has to resolve
// through, and a heap's bucket slice carries a Go-managed pointer that
// cannot safely live inside memory the garbage collector doesn't scan.
// Only the superblock region itself — the bytes user pointers reference
// directly — has to live in, and be addressable purely by arithmetic
// within, the raw arena. This still satisfies spec's bootstrap
// invariant that heap references never change after bootstrap: these
// objects are built once, here, and never reallocated or relocated
// afterward.
func bootstrap(cfg Config) (*Allocator, error) {
	provider, err := memlib.New(cfg.ArenaCapacity)
	if err != nil {
		return nil, err
	}

	page := provider.PageSize()
	lo := provider.Lo()

	if pad := (page - (lo % page)) % page; pad > 0 {
		if _, err := provider.Sbrk(pad); err != nil {
			return nil, errors.Bootstrap("camelmm: failed to pad to page boundary", map[string]interface{}{
				"padding": uint64(pad),
			})
		}
	}

	start := provider.Hi()
	if start%page != 0 {
		return nil, errors.Bootstrap("camelmm: superblock region is not page-aligned", map[string]interface{}{
			"start": uint64(start),
		})
	}

	table := sizeclass.New(cfg.MinSize, cfg.Growth, cfg.MaxClasses, provider.Size())
	if table.Len() == 0 {
		return nil, errors.Bootstrap("camelmm: size-class table is empty", nil)
	}

	numCPU := platform.NumProcessors()
	heaps := make([]*heap.Heap, numCPU+1)
	for i := range heaps {
		heaps[i] = heap.New(i, table.Len())
	}

	return &Allocator{
		cfg:             cfg,
		table:           table,
		provider:        provider,
		heaps:           heaps,
		superblockStart: start,
	}, nil
}
