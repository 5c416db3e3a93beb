package camelmm

import "github.com/camelmm/camelmm/internal/sizeclass"

// Tunables spec.md fixes as constants of the design.
const (
	// FullnessBins is F.
	FullnessBins = 3

	// SBReserve is the minimum number of superblocks a per-CPU heap
	// keeps before it starts donating near-empty ones to the global
	// heap (spec 4.7).
	SBReserve = 4

	// AllocThreshold is the allocated-bytes ceiling (SB/8) below which
	// a superblock is eligible for donation to the global heap.
	AllocThreshold = 4096 / 8
)

// Config bundles camelmm's bootstrap-time tunables.
type Config struct {
	// ArenaCapacity is the fixed size of the raw region handed to
	// internal/memlib. 0 uses memlib.DefaultCapacity.
	ArenaCapacity uintptr

	// MinSize is S[0], the smallest size class served.
	MinSize uintptr

	// Growth is B, the per-class growth factor.
	Growth float64

	// MaxClasses bounds the size-class table's length.
	MaxClasses int
}

// DefaultConfig returns camelmm's default tunables: an 8-byte minimum
// class doubling up to 64 classes, per spec.md section 3.
func DefaultConfig() Config {
	return Config{
		ArenaCapacity: 0,
		MinSize:       sizeclass.DefaultMinSize,
		Growth:        sizeclass.DefaultGrowth,
		MaxClasses:    sizeclass.DefaultMaxClasses,
	}
}
