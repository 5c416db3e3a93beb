//go:build !release

package camelmm

import "fmt"

// assertf panics if cond is false, per spec.md 7's "programming faults"
// category: invariant violations are bugs, not failure modes, and abort
// loudly outside release builds rather than corrupting allocator state
// silently.
func assertf(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintf("camelmm: invariant violated: "+format, args...))
	}
}
