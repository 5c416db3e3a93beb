// Package platform resolves the two facts camelmm needs about its host
// to index per-CPU heaps: how many CPUs exist, and which one the calling
// goroutine is currently running on. Grounded on this codebase's
// internal/runtime/numa topology sizing, which already treats
// runtime.NumCPU() as the fixed processor count for the allocator's
// lifetime.
package platform

import "runtime"

// numProcessors is cached once: spec.md requires num_processors() to be
// fixed over the allocator's lifetime.
var numProcessors = runtime.NumCPU()

// NumProcessors returns the number of CPUs camelmm sizes its per-CPU
// heap array for.
func NumProcessors() int {
	return numProcessors
}
