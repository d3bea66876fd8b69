//go:build linux

package rtsync

import (
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/adred-codev/shmsync/clock"
	"github.com/adred-codev/shmsync/status"
)

// wait issues FUTEX_WAIT_BITSET. Without FUTEX_CLOCK_REALTIME set, the
// kernel interprets the timeout argument as an absolute deadline measured
// against CLOCK_MONOTONIC (the kernel's own since-boot clock), not as a
// relative duration and not against this process's clock.Time (whose zero
// instant is merely "when this process's driver was constructed"). So
// callers' relative "time remaining" must be re-anchored onto the
// kernel's own CLOCK_MONOTONIC reading immediately before each syscall,
// rather than passed straight through.
func wait(addr *uint32, expect uint32, deadline clock.Time) *status.Status {
	for {
		remaining := deadline.Sub(clock.Now())
		if remaining <= 0 {
			return status.New(status.DeadlineExceeded, "futex wait deadline already elapsed")
		}

		var kernelNow unix.Timespec
		if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &kernelNow); err != nil {
			return status.Newf(status.Internal, "futex wait: clock_gettime: %v", err)
		}
		ts := clock.ToTimespec(remaining)
		timeout := unix.Timespec{
			Sec:  kernelNow.Sec + ts.Sec,
			Nsec: kernelNow.Nsec + ts.Nsec,
		}
		if timeout.Nsec >= int64(time.Second) {
			timeout.Sec++
			timeout.Nsec -= int64(time.Second)
		}

		_, _, errno := unix.Syscall6(
			unix.SYS_FUTEX,
			uintptr(unsafe.Pointer(addr)),
			uintptr(unix.FUTEX_WAIT_BITSET),
			uintptr(expect),
			uintptr(unsafe.Pointer(&timeout)),
			0,
			uintptr(WaitBitset),
		)

		switch errno {
		case 0:
			return nil
		case unix.EAGAIN:
			// The word changed between the caller's load and the
			// syscall entering the kernel; the caller re-checks.
			return nil
		case unix.EINTR:
			continue
		case unix.ETIMEDOUT:
			return status.New(status.DeadlineExceeded, "futex wait timed out")
		default:
			return status.Newf(status.Internal, "futex wait: %v", errno)
		}
	}
}

func wake(addr *uint32, n int32) *status.Status {
	_, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(unix.FUTEX_WAKE_BITSET),
		uintptr(n),
		0,
		0,
		uintptr(WaitBitset),
	)
	if errno != 0 {
		return status.Newf(status.Internal, "futex wake: %v", errno)
	}
	return nil
}
