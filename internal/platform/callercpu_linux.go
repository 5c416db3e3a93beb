//go:build linux

package platform

import "golang.org/x/sys/unix"

// CallerCPU returns the index of the CPU the calling goroutine is
// currently scheduled on, queried directly from the kernel. The result
// can go stale the instant the goroutine is rescheduled onto another
// CPU; camelmm only uses it to pick a starting heap, not as a pin
// guarantee.
func CallerCPU() int {
	cpu, err := unix.SchedGetcpu()
	if err != nil || cpu < 0 || cpu >= numProcessors {
		return fallbackCPU()
	}

	return cpu
}
