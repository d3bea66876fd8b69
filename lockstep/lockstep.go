// Package lockstep implements strict two-phase alternation between an
// "A" operation (conventionally run on a realtime thread) and a "B"
// operation (conventionally run on an ordinary thread), layered on two
// futex.BinaryFutex fields and an atomic state enum.
package lockstep

import (
	"sync/atomic"

	"github.com/adred-codev/shmsync/clock"
	"github.com/adred-codev/shmsync/diagnostics"
	"github.com/adred-codev/shmsync/futex"
	"github.com/adred-codev/shmsync/status"
)

// State is one position in the alternation cycle.
type State int32

const (
	BFinished State = iota
	ARunning
	AFinished
	BRunning
	Cancelled
)

func (s State) String() string {
	switch s {
	case BFinished:
		return "B_Finished"
	case ARunning:
		return "A_Running"
	case AFinished:
		return "A_Finished"
	case BRunning:
		return "B_Running"
	case Cancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Lockstep is trivially copyable and safe to place as the payload of a
// shared-memory segment (see SharedMemoryLockstep). The zero value is
// NOT valid; use New or place it via shm and call Init.
type Lockstep struct {
	aFinished futex.BinaryFutex
	bFinished futex.BinaryFutex
	state     int32
}

// New returns a process-local Lockstep in its initial state.
func New() *Lockstep {
	l := &Lockstep{}
	Init(l)
	return l
}

// Init resets l to its initial state in place: B_Finished, a_finished
// unposted, b_finished posted. Used both by New and by Create, which
// places a Lockstep directly into mapped memory.
func Init(l *Lockstep) {
	l.aFinished = *futex.New(false)
	l.bFinished = *futex.New(true)
	atomic.StoreInt32(&l.state, int32(BFinished))
}

// CurrentState is a diagnostic snapshot; callers must not branch control
// flow on it outside of tests, since it is stale the instant it's read.
func (l *Lockstep) CurrentState() State {
	return State(atomic.LoadInt32(&l.state))
}

// StartAWithDeadline waits for the B side to have finished, then
// transitions to A_Running. It must be called only by the A-side thread.
func (l *Lockstep) StartAWithDeadline(deadline clock.Time) *status.Status {
	if s := l.bFinished.WaitUntil(deadline); s != nil {
		return s
	}
	if l.CurrentState() == Cancelled {
		// Wake any other waiter still blocked on b_finished; Cancel only
		// guarantees one successful wake per post.
		_ = l.bFinished.Post()
		return status.New(status.Aborted, "lockstep cancelled while starting operation A")
	}
	if !atomic.CompareAndSwapInt32(&l.state, int32(BFinished), int32(ARunning)) {
		return status.Newf(status.FailedPrecondition, "cannot start A from state %s", l.CurrentState())
	}
	diagnostics.RecordLockstepTransition(ARunning.String())
	return nil
}

// StartAFor is StartAWithDeadline(clock.Now() + timeout).
func (l *Lockstep) StartAFor(timeout clock.Duration) *status.Status {
	return l.StartAWithDeadline(clock.Now().Add(timeout))
}

// EndA transitions A_Running to A_Finished and wakes the B side.
func (l *Lockstep) EndA() *status.Status {
	if l.CurrentState() == Cancelled {
		return nil
	}
	if !atomic.CompareAndSwapInt32(&l.state, int32(ARunning), int32(AFinished)) {
		return status.Newf(status.FailedPrecondition, "cannot end A from state %s", l.CurrentState())
	}
	diagnostics.RecordLockstepTransition(AFinished.String())
	return l.aFinished.Post()
}

// StartBWithDeadline is the B-side mirror of StartAWithDeadline.
func (l *Lockstep) StartBWithDeadline(deadline clock.Time) *status.Status {
	if s := l.aFinished.WaitUntil(deadline); s != nil {
		return s
	}
	if l.CurrentState() == Cancelled {
		_ = l.aFinished.Post()
		return status.New(status.Aborted, "lockstep cancelled while starting operation B")
	}
	if !atomic.CompareAndSwapInt32(&l.state, int32(AFinished), int32(BRunning)) {
		return status.Newf(status.FailedPrecondition, "cannot start B from state %s", l.CurrentState())
	}
	diagnostics.RecordLockstepTransition(BRunning.String())
	return nil
}

// StartBFor is StartBWithDeadline(clock.Now() + timeout).
func (l *Lockstep) StartBFor(timeout clock.Duration) *status.Status {
	return l.StartBWithDeadline(clock.Now().Add(timeout))
}

// EndB transitions B_Running back to B_Finished and wakes the A side.
func (l *Lockstep) EndB() *status.Status {
	if l.CurrentState() == Cancelled {
		return nil
	}
	if !atomic.CompareAndSwapInt32(&l.state, int32(BRunning), int32(BFinished)) {
		return status.Newf(status.FailedPrecondition, "cannot end B from state %s", l.CurrentState())
	}
	diagnostics.RecordLockstepTransition(BFinished.String())
	return l.bFinished.Post()
}

// Cancel moves the lockstep to Cancelled from any state and wakes both
// sides. Idempotent.
func (l *Lockstep) Cancel() {
	atomic.StoreInt32(&l.state, int32(Cancelled))
	diagnostics.RecordLockstepCancel()
	diagnostics.RecordLockstepTransition(Cancelled.String())
	if s := l.aFinished.Post(); s != nil {
		diagnostics.LogThrottled("lockstep.cancel.post_a", "lockstep cancel: failed to post a_finished", s)
	}
	if s := l.bFinished.Post(); s != nil {
		diagnostics.LogThrottled("lockstep.cancel.post_b", "lockstep cancel: failed to post b_finished", s)
	}
}

// Reset returns a Cancelled lockstep to B_Finished, draining any pending
// posts on both futexes first so a stale post does not let the next
// StartA/StartB race ahead without the other side's participation.
func (l *Lockstep) Reset(timeout clock.Duration) *status.Status {
	if l.CurrentState() != Cancelled {
		return status.Newf(status.FailedPrecondition, "reset requires Cancelled state, got %s", l.CurrentState())
	}
	deadline := clock.Now().Add(timeout)
	if s := l.aFinished.WaitUntil(deadline); s != nil {
		return s
	}
	if s := l.bFinished.WaitUntil(deadline); s != nil {
		return s
	}
	atomic.StoreInt32(&l.state, int32(BFinished))
	diagnostics.RecordLockstepTransition(BFinished.String())
	return l.bFinished.Post()
}
