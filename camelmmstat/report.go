// Package camelmmstat formats camelmm.Stats snapshots for logs and test
// output. It holds no allocator state of its own and never touches the
// internal heap/superblock packages directly — it only reads what
// camelmm.Allocator.Stats already exposes.
package camelmmstat

import (
	"fmt"
	"strings"

	"github.com/camelmm/camelmm"
	"github.com/camelmm/camelmm/internal/platform"
)

// Report renders a Stats snapshot as a multi-line human-readable
// summary, grounded on this codebase's AllocatorStats reporting
// convention: lifetime counters first, then a breakdown per heap.
func Report(s camelmm.Stats) string {
	var b strings.Builder

	fmt.Fprintf(&b, "camelmm: %d malloc, %d free, %d live\n",
		s.MallocCount, s.FreeCount, s.MallocCount-s.FreeCount)

	for _, hs := range s.Heaps {
		label := fmt.Sprintf("cpu %d", hs.Index-1)
		if hs.Index == 0 {
			label = "global"
		}

		fmt.Fprintf(&b, "  heap[%s]: %d superblocks\n", label, hs.NumSuperblocks)
	}

	return b.String()
}

// Imbalance reports the ratio between the busiest and quietest per-CPU
// heap's superblock count (global heap excluded), as a coarse signal of
// cross-CPU load skew. Returns 0 if fewer than two per-CPU heaps exist
// or every per-CPU heap is empty.
func Imbalance(s camelmm.Stats) float64 {
	if len(s.Heaps) < 3 {
		return 0
	}

	min, max := -1, -1

	for _, hs := range s.Heaps[1:] { // skip the global heap at index 0
		if min < 0 || hs.NumSuperblocks < min {
			min = hs.NumSuperblocks
		}

		if hs.NumSuperblocks > max {
			max = hs.NumSuperblocks
		}
	}

	if max == 0 {
		return 0
	}

	if min == 0 {
		min = 1
	}

	return float64(max) / float64(min)
}

// ExpectedHeapCount returns platform.NumProcessors()+1, the heap count
// any Stats snapshot taken on this host should carry (1 global heap
// plus one per CPU).
func ExpectedHeapCount() int {
	return platform.NumProcessors() + 1
}
