package platform

import "sync/atomic"

var fallbackCounter uint64

// fallbackCPU hands out CPU indices round-robin. Used on platforms (or
// after a failed syscall) where no real per-call CPU id is available.
func fallbackCPU() int {
	n := atomic.AddUint64(&fallbackCounter, 1)

	return int(n % uint64(numProcessors))
}
