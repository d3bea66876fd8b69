// Package futex provides BinaryFutex, a one-bit cross-process post/wait
// primitive. It is the building block every other synchronization
// primitive in this module (lockstep, remote trigger, the future/promise
// pair) is layered on top of.
package futex

import (
	"sync/atomic"

	"github.com/adred-codev/shmsync/clock"
	"github.com/adred-codev/shmsync/diagnostics"
	"github.com/adred-codev/shmsync/internal/rtsync"
	"github.com/adred-codev/shmsync/status"
)

// BinaryFutex is a trivially copyable, lock-free post/wait flag. Its only
// valid states are 0 (not posted) and 1 (posted). It is safe to place as
// the payload — or a field of the payload — of a shared-memory segment:
// it contains no pointers and its only state is the atomic word.
//
// The zero value is a BinaryFutex in the "not posted" state.
type BinaryFutex struct {
	val uint32
}

// New returns a BinaryFutex initialized to posted or not.
func New(posted bool) *BinaryFutex {
	f := &BinaryFutex{}
	if posted {
		f.val = 1
	}
	return f
}

// Post sets the futex to posted, waking at most one waiter. It is a
// no-op, returning OK, if the futex was already posted. Realtime-safe.
func (f *BinaryFutex) Post() *status.Status {
	if !atomic.CompareAndSwapUint32(&f.val, 0, 1) {
		return nil
	}
	diagnostics.RecordFutexPost()
	s := rtsync.Wake(&f.val, 1)
	diagnostics.RecordFutexWake()
	return s
}

// WaitUntil blocks until the futex is posted or deadline passes,
// consuming the post (resetting the word to 0) on success. A deadline
// already in the past returns DeadlineExceeded at once, even if the futex
// is posted. Not realtime-safe in general; safe only if deadline is near
// enough that the underlying wait does not hand control to non-realtime
// scheduling.
func (f *BinaryFutex) WaitUntil(deadline clock.Time) *status.Status {
	if deadline.Before(clock.Now()) {
		diagnostics.RecordFutexTimeout()
		return status.New(status.DeadlineExceeded, "binary futex wait deadline already passed")
	}
	for {
		if atomic.CompareAndSwapUint32(&f.val, 1, 0) {
			return nil
		}
		if deadline.Sub(clock.Now()) <= 0 {
			diagnostics.RecordFutexTimeout()
			return status.New(status.DeadlineExceeded, "binary futex wait deadline exceeded")
		}
		if s := rtsync.Wait(&f.val, 0, deadline); s != nil {
			if status.Of(s) == status.DeadlineExceeded {
				diagnostics.RecordFutexTimeout()
			}
			return s
		}
		// Word changed (or we raced); loop to attempt the consuming CAS.
	}
}

// WaitFor is WaitUntil(clock.Now() + timeout).
func (f *BinaryFutex) WaitFor(timeout clock.Duration) *status.Status {
	return f.WaitUntil(clock.Now().Add(timeout))
}

// indefiniteWaitChunk bounds each individual WaitUntil call Wait issues,
// so a caller asking to wait "forever" never hands an overflowing
// deadline (now + duration) down to the platform wait syscall.
const indefiniteWaitChunk = 24 * 60 * 60 * 1_000_000_000 // 24h, as a clock.Duration

// Wait blocks until the futex is posted, with no deadline. It is
// implemented as a sequence of bounded waits rather than a single
// unbounded one so the process can still observe cancellation of an
// enclosing context by higher layers if one is ever added.
func (f *BinaryFutex) Wait() *status.Status {
	for {
		s := f.WaitFor(indefiniteWaitChunk)
		if status.Of(s) != status.DeadlineExceeded {
			return s
		}
	}
}

// Value returns the current raw word, for diagnostics only — it is not
// meant to drive control flow, since it is stale the instant it is read.
func (f *BinaryFutex) Value() uint32 {
	return atomic.LoadUint32(&f.val)
}

// Addr exposes the backing word's address for callers that place a
// BinaryFutex inside a larger shared-memory struct and need to hand the
// address to a lower-level primitive. No package in this module calls it;
// lockstep and remotetrigger use Post and WaitUntil.
func (f *BinaryFutex) Addr() *uint32 {
	return &f.val
}
