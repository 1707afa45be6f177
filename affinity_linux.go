//go:build linux

package corosched

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// PinSchedulerThread locks the calling goroutine to its OS thread and
// restricts that thread to cpu. Call it from the goroutine that will
// drive RunCycle/RunCyclesUntilNoJobsRemain, before the first call,
// since every job runs on whichever thread the calling goroutine is
// locked to. Pinning is optional; nothing in this package requires
// it.
func PinSchedulerThread(cpu int) error {
	runtime.LockOSThread()

	var mask unix.CPUSet
	mask.Zero()
	mask.Set(cpu)
	return unix.SchedSetaffinity(0, &mask)
}
