// Package rtsync wraps the platform futex wait/wake primitive used by
// futex.BinaryFutex. It is internal because the wait/wake calls here carry
// none of the post/wait value semantics a caller needs — those live one
// layer up, in futex, where the word's only valid states are 0 and 1.
package rtsync

import (
	"github.com/adred-codev/shmsync/clock"
	"github.com/adred-codev/shmsync/status"
)

// WaitBitset is the mask used for every wait/wake call in this module. The
// underlying FUTEX_WAIT_BITSET/FUTEX_WAKE_BITSET ops accept an arbitrary
// bitmask partition of waiters; this module never partitions waiters, so
// it always uses the all-ones mask (equivalent to plain FUTEX_WAIT/WAKE).
const WaitBitset uint32 = 0xffffffff

// Wait blocks while *addr == expect, waking when the word changes or
// deadline elapses. It is the platform-specific half of
// futex.BinaryFutex.WaitUntil: the caller has already done the
// compare-and-exchange that would make waiting unnecessary.
func Wait(addr *uint32, expect uint32, deadline clock.Time) *status.Status {
	return wait(addr, expect, deadline)
}

// Wake wakes up to n waiters blocked in Wait on addr.
func Wake(addr *uint32, n int32) *status.Status {
	return wake(addr, n)
}
