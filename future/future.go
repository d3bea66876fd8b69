// Package future implements a single-value, single-shot hand-off from a
// realtime producer (RealtimePromise) to a non-realtime consumer
// (NonRealtimeFuture), with cooperative cancellation and a destruction
// witness so the future can know the promise side has gone away cleanly.
//
// The pair is process-local (unlike shm/futex/lockstep, it is not placed
// in shared memory) — it moves a value across goroutines or OS threads
// within one process, mirroring the original's use between a realtime
// control thread and an ordinary application thread in the same process.
package future

import (
	"sync"
	"sync/atomic"

	"github.com/adred-codev/shmsync/clock"
	"github.com/adred-codev/shmsync/diagnostics"
	"github.com/adred-codev/shmsync/futex"
	"github.com/adred-codev/shmsync/status"
)

const defaultCancelConfirmTimeout = 1_000_000_000 // 1s, as a clock.Duration

type state[T any] struct {
	mu        sync.Mutex
	value     T
	hasValue  bool
	retrieved bool

	isCancelled atomic.Bool

	isReady           futex.BinaryFutex
	isCancelAck       futex.BinaryFutex
	isDestroyed       futex.BinaryFutex
	promiseHandedOut  atomic.Bool
	cancelConfirmWait clock.Duration
}

// NonRealtimeFuture is the consumer side of the pair. It must outlive any
// promise it hands out: Close cancels the promise (if one was ever
// retrieved) and waits for the promise's own Close to run.
type NonRealtimeFuture[T any] struct {
	s *state[T]
}

// RealtimePromise is the realtime-safe producer side. All of its methods
// avoid allocation and blocking locks on their success paths.
type RealtimePromise[T any] struct {
	s *state[T]
}

// New returns a connected NonRealtimeFuture/RealtimePromise pair sharing
// one internal state. Calling code typically keeps the future and passes
// the promise to the realtime producer via GetPromise instead of using
// this pair directly; New exists for callers that construct both sides
// up front rather than handing the promise out later.
func New[T any](cancelConfirmTimeout clock.Duration) (*NonRealtimeFuture[T], *RealtimePromise[T]) {
	if cancelConfirmTimeout <= 0 {
		cancelConfirmTimeout = defaultCancelConfirmTimeout
	}
	s := &state[T]{cancelConfirmWait: cancelConfirmTimeout}
	s.promiseHandedOut.Store(true)
	return &NonRealtimeFuture[T]{s: s}, &RealtimePromise[T]{s: s}
}

// NewFuture returns a future with no promise yet; GetPromise hands one
// out exactly once.
func NewFuture[T any](cancelConfirmTimeout clock.Duration) *NonRealtimeFuture[T] {
	if cancelConfirmTimeout <= 0 {
		cancelConfirmTimeout = defaultCancelConfirmTimeout
	}
	return &NonRealtimeFuture[T]{s: &state[T]{cancelConfirmWait: cancelConfirmTimeout}}
}

// GetPromise returns the associated promise, exactly once.
func (f *NonRealtimeFuture[T]) GetPromise() (*RealtimePromise[T], *status.Status) {
	if !f.s.promiseHandedOut.CompareAndSwap(false, true) {
		return nil, status.New(status.AlreadyExists, "promise already retrieved from this future")
	}
	return &RealtimePromise[T]{s: f.s}, nil
}

// IsReady is a non-blocking check for whether a value has been set.
func (f *NonRealtimeFuture[T]) IsReady() bool {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return f.s.hasValue
}

// GetWithDeadline blocks until a value is available or deadline passes.
// It returns Cancelled at once if cancellation was requested before the
// call; a cancellation during the wait does not end the wait early.
func (f *NonRealtimeFuture[T]) GetWithDeadline(deadline clock.Time) (T, *status.Status) {
	var zero T

	f.s.mu.Lock()
	if f.s.retrieved {
		f.s.mu.Unlock()
		return zero, status.New(status.ResourceExhausted, "future value already retrieved")
	}
	f.s.mu.Unlock()

	if f.s.isCancelled.Load() {
		diagnostics.RecordFutureOutcome("cancelled")
		return zero, status.New(status.Cancelled, "promise cancelled before a value was set")
	}

	if st := f.s.isReady.WaitUntil(deadline); st != nil {
		if status.Of(st) == status.DeadlineExceeded {
			diagnostics.RecordFutureOutcome("timeout")
		}
		return zero, st
	}

	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.isCancelled.Load() && !f.s.hasValue {
		diagnostics.RecordFutureOutcome("cancelled")
		return zero, status.New(status.Cancelled, "promise cancelled before a value was set")
	}
	f.s.retrieved = true
	diagnostics.RecordFutureOutcome("value")
	return f.s.value, nil
}

// GetWithTimeout is GetWithDeadline(clock.Now() + timeout).
func (f *NonRealtimeFuture[T]) GetWithTimeout(timeout clock.Duration) (T, *status.Status) {
	return f.GetWithDeadline(clock.Now().Add(timeout))
}

// Cancel idempotently marks the future cancelled and waits up to the
// configured cancel-confirm timeout for the promise side to acknowledge.
func (f *NonRealtimeFuture[T]) Cancel() *status.Status {
	if !f.s.isCancelled.CompareAndSwap(false, true) {
		return nil
	}
	return f.s.isCancelAck.WaitFor(f.s.cancelConfirmWait)
}

// Close cancels (if a promise was ever handed out) and waits
// indefinitely for the promise's own Close to run, so the future is
// never dropped while the promise might still touch shared state.
func (f *NonRealtimeFuture[T]) Close() *status.Status {
	if !f.s.promiseHandedOut.Load() {
		return nil
	}
	_ = f.Cancel()
	return f.s.isDestroyed.Wait()
}

// SetValue is the promise's one-shot write. It returns Cancelled (while
// still recording the value and confirming cancellation) if the future
// cancelled first, ResourceExhausted if a value was already set, and
// InvalidArgument for a zero-value (moved-from) promise.
func (p *RealtimePromise[T]) SetValue(v T) *status.Status {
	if p.s == nil {
		return status.New(status.InvalidArgument, "promise is in its zero-value state")
	}

	p.s.mu.Lock()
	if p.s.hasValue {
		p.s.mu.Unlock()
		return status.New(status.ResourceExhausted, "promise value already set")
	}
	p.s.value = v
	p.s.hasValue = true
	p.s.mu.Unlock()

	_ = p.s.isCancelAck.Post()
	if st := p.s.isReady.Post(); st != nil {
		return st
	}

	if p.s.isCancelled.Load() {
		return status.New(status.Cancelled, "future cancelled concurrently with SetValue")
	}
	return nil
}

// IsCancelled is a lock-free query of whether the future has requested
// cancellation (or the promise itself already cancelled voluntarily).
func (p *RealtimePromise[T]) IsCancelled() bool {
	if p.s == nil {
		return false
	}
	return p.s.isCancelled.Load()
}

// Cancel is the promise's own voluntary cancellation path (used when the
// producer decides it cannot supply a value), distinct from the future
// requesting cancellation.
func (p *RealtimePromise[T]) Cancel() *status.Status {
	if p.s == nil {
		return status.New(status.InvalidArgument, "promise is in its zero-value state")
	}
	p.s.isCancelled.Store(true)
	return p.s.isCancelAck.Post()
}

// Close posts the destruction witness the future's Close waits on. Safe
// to call on a zero-value (moved-from) promise.
func (p *RealtimePromise[T]) Close() *status.Status {
	if p.s == nil {
		return nil
	}
	return p.s.isDestroyed.Post()
}
