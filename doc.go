// Package camelmm is a concurrent, per-CPU superblock memory allocator:
// size classes, fixed-size superblocks with in-place offset-encoded
// freelists, fullness-bucketed heaps, and an ownership-transfer protocol
// between per-CPU heaps and a shared global heap.
//
// The public surface is small on purpose: New to bootstrap an instance,
// Malloc and Free to use it. There is no configuration reload, no
// metrics endpoint, and no persisted state — an Allocator is a single
// in-process object whose entire lifetime runs between New and process
// exit.
//
// Lock ordering. Every code path that needs more than one lock acquires
// them in the same order: a per-CPU heap's lock, then the global heap's
// lock, then a superblock's own lock, then (if it needs to grow the
// arena) the raw provider's internal lock. The one exception is Free's
// donation step, which takes the global heap's lock while already
// holding the owning per-CPU heap's lock and the superblock's lock. No
// path ever acquires a per-CPU heap's lock while already holding the
// global heap's, or a superblock's lock before its owning heap's.
package camelmm
