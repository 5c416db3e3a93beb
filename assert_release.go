//go:build release

package camelmm

// assertf is a no-op in release builds: spec.md 7 leaves invariant
// violations undefined outside debug builds rather than paying their
// checking cost on the hot allocate/free path.
func assertf(cond bool, format string, args ...interface{}) {}
