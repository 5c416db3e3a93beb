// Package sizeclass computes the discrete block sizes camelmm serves and
// maps allocation requests onto the smallest size class that satisfies
// them.
package sizeclass

import "math"

const (
	// DefaultMinSize is S[0], the smallest size class.
	DefaultMinSize uintptr = 8
	// DefaultGrowth is B, the per-class growth factor.
	DefaultGrowth float64 = 2.0
	// DefaultMaxClasses bounds the table length.
	DefaultMaxClasses = 64
)

// Table is the immutable, ordered sequence of byte sizes S[0] < S[1] < ...
// served by the allocator. It is built once at bootstrap and never
// mutated afterward.
type Table struct {
	sizes  []uintptr
	growth float64
}

// New builds a size-class table starting at minSize, growing each class by
// ceil(S[i] * growth), bounded above by capBound (typically the heap's
// total capacity) and by maxClasses entries.
func New(minSize uintptr, growth float64, maxClasses int, capBound uintptr) *Table {
	if minSize == 0 {
		minSize = DefaultMinSize
	}

	if growth <= 1.0 {
		growth = DefaultGrowth
	}

	if maxClasses <= 0 {
		maxClasses = DefaultMaxClasses
	}

	sizes := make([]uintptr, 0, maxClasses)

	s := minSize
	for len(sizes) < maxClasses {
		if capBound > 0 && s > capBound {
			break
		}

		sizes = append(sizes, s)

		next := uintptr(math.Ceil(float64(s) * growth))
		if next <= s {
			next = s + 1 // guard against growth rounding to a no-op
		}

		s = next
	}

	return &Table{sizes: sizes, growth: growth}
}

// Len returns the number of size classes in the table.
func (t *Table) Len() int { return len(t.sizes) }

// Size returns S[c]. Panics if c is out of range; callers only index
// classes returned by ClassOf.
func (t *Table) Size(c int) uintptr { return t.sizes[c] }

// Max returns the largest size class the table serves.
func (t *Table) Max() uintptr {
	if len(t.sizes) == 0 {
		return 0
	}

	return t.sizes[len(t.sizes)-1]
}

// ClassOf returns the smallest class c with S[c] >= size, or ok=false if
// size exceeds every class (request too large). Callers are expected to
// have already rejected size == 0.
func (t *Table) ClassOf(size uintptr) (class int, ok bool) {
	if len(t.sizes) == 0 || size == 0 {
		return 0, false
	}

	s0 := t.sizes[0]
	if size <= s0 {
		return 0, true
	}

	// c <- ceil(log_B(size / S[0])), then a one-step correction for the
	// discretization of the log lookup.
	c := int(math.Ceil(math.Log(float64(size)/float64(s0)) / math.Log(t.growth)))
	if c < 0 {
		c = 0
	}

	if c > 0 && c-1 < len(t.sizes) && t.sizes[c-1] >= size {
		c--
	}

	if c >= len(t.sizes) {
		return 0, false
	}

	// Defensive linear correction: floating point log/ceil can land one
	// class short of the true answer for sizes near a class boundary.
	for c < len(t.sizes) && t.sizes[c] < size {
		c++
	}

	if c >= len(t.sizes) {
		return 0, false
	}

	return c, true
}
