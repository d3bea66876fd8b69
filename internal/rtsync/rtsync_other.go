//go:build !linux

package rtsync

import (
	"sync/atomic"
	"time"

	"github.com/adred-codev/shmsync/clock"
	"github.com/adred-codev/shmsync/status"
)

// Non-Linux builds have no futex syscall, so this fallback polls the word
// directly. It is for development and test only: it is not realtime-safe
// (sleep-based polling has unbounded scheduling latency) and it only
// rendezvous within a single process's address space, since there is no
// portable cross-process wake primitive to fall back to.
const fallbackPollInterval = 500 * time.Microsecond

func wait(addr *uint32, expect uint32, deadline clock.Time) *status.Status {
	for {
		if atomic.LoadUint32(addr) != expect {
			return nil
		}
		remaining := deadline.Sub(clock.Now())
		if remaining <= 0 {
			return status.New(status.DeadlineExceeded, "futex wait timed out")
		}
		sleep := fallbackPollInterval
		if remaining < sleep {
			sleep = remaining
		}
		time.Sleep(sleep)
	}
}

func wake(addr *uint32, n int32) *status.Status {
	// Waiters re-check addr on their own polling cadence; there is
	// nothing to signal explicitly on this platform.
	return nil
}
