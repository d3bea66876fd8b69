// Package realtimeclock implements the collaborator the rest of a control
// framework uses to learn the current control-cycle timestamp: a realtime
// thread ticks the clock once per cycle, and a non-realtime reader
// observes the published timestamp through an ordinary shared memory
// segment guarded by a SharedMemoryLockstep.
package realtimeclock

import (
	"time"

	"github.com/adred-codev/shmsync/clock"
	"github.com/adred-codev/shmsync/lockstep"
	"github.com/adred-codev/shmsync/shm"
	"github.com/adred-codev/shmsync/status"
)

// Update is the payload published once per tick.
type Update struct {
	TimestampNanos int64
}

// These suffixes match the naming scheme fixed in SPEC_FULL.md
// §6: segment names are "/<module>_realtime_clock_lockstep" and
// "/<module>_realtime_clock_update".
const (
	lockstepSuffix = "_realtime_clock_lockstep"
	updateSuffix   = "_realtime_clock_update"
)

func lockstepName(module string) string { return "/" + module + lockstepSuffix }
func updateName(module string) string   { return "/" + module + updateSuffix }

// RealtimeClock is the realtime ("A") side: one process ticks it once per
// control cycle.
type RealtimeClock struct {
	ls     *lockstep.SharedMemoryLockstep
	update *shm.Writer[Update]
}

// Create sets up a new realtime clock under module's segment names and
// enters the first A phase (the lockstep's initial B_Finished state makes
// this a non-blocking transition), so the first TickBlockingWithDeadline
// call has an A phase to end.
func Create(m *shm.Manager, module string) (*RealtimeClock, *status.Status) {
	ls, s := lockstep.Create(m, lockstepName(module))
	if s != nil {
		return nil, s
	}
	if s := shm.AddSegmentNamed(m, updateName(module), Update{}, "shmsync.realtimeclock.update", 0); s != nil {
		ls.Close()
		return nil, s
	}
	w, s := shm.OpenWriter[Update](updateName(module))
	if s != nil {
		ls.Close()
		return nil, s
	}
	if s := ls.Unchecked().StartAWithDeadline(clock.Now().Add(clock.Duration(time.Second))); s != nil {
		w.Close()
		ls.Close()
		return nil, s
	}
	return &RealtimeClock{ls: ls, update: w}, nil
}

// TickBlockingWithDeadline publishes currentTimestamp, ends the current
// realtime operation A (waking a non-realtime reader blocked in
// StartB), and starts the next cycle's A, blocking until the
// non-realtime side has finished its B phase for the tick just
// published.
func (c *RealtimeClock) TickBlockingWithDeadline(currentTimestamp clock.Time, deadline clock.Time) *status.Status {
	c.update.SetValue(Update{TimestampNanos: currentTimestamp.UnixNano()})
	c.update.UpdatedAt(currentTimestamp)

	l := c.ls.Unchecked()
	if s := l.EndA(); s != nil {
		return s
	}
	return l.StartAWithDeadline(deadline)
}

// Reset cancels and resets the underlying lockstep, for recovering from a
// non-realtime side that has fallen permanently behind, then immediately
// starts the next A operation so TickBlockingWithDeadline's subsequent
// EndA has a running cycle to end. Only the first non-OK status is
// returned; a later step's success never masks an earlier failure.
func (c *RealtimeClock) Reset(timeout clock.Duration) *status.Status {
	l := c.ls.Unchecked()
	l.Cancel()
	s := l.Reset(timeout)
	if status.Of(s) != status.OK {
		return s
	}
	return l.StartAWithDeadline(clock.Now().Add(timeout))
}

// Close performs a final EndA (so a waiting reader is not left blocked
// forever) and releases the segment handles.
func (c *RealtimeClock) Close() *status.Status {
	if l := c.ls.Unchecked(); l.CurrentState() == lockstep.ARunning {
		l.EndA()
	}
	s1 := c.update.Close()
	s2 := c.ls.Close()
	if s1 != nil {
		return s1
	}
	return s2
}

// Reader is the non-realtime ("B") side. The lockstep admits one B phase
// per tick, so when several Readers are open each tick is delivered to
// only one of them.
type Reader struct {
	ls     *lockstep.SharedMemoryLockstep
	update *shm.Reader[Update]
}

// Open attaches to an existing realtime clock as a reader.
func Open(module string) (*Reader, *status.Status) {
	ls, s := lockstep.Get(lockstepName(module))
	if s != nil {
		return nil, s
	}
	r, s := shm.OpenReader[Update](updateName(module))
	if s != nil {
		ls.Close()
		return nil, s
	}
	return &Reader{ls: ls, update: r}, nil
}

// WaitForTickWithDeadline blocks for the realtime side's next tick and
// returns the published timestamp.
func (r *Reader) WaitForTickWithDeadline(deadline clock.Time) (clock.Time, *status.Status) {
	l := r.ls.Unchecked()
	if s := l.StartBWithDeadline(deadline); s != nil {
		return clock.Time{}, s
	}
	v := r.update.Value()
	if s := l.EndB(); s != nil {
		return clock.Time{}, s
	}
	return clock.FromUnixNano(v.TimestampNanos), nil
}

// Close releases this reader's handles.
func (r *Reader) Close() *status.Status {
	s1 := r.update.Close()
	s2 := r.ls.Close()
	if s1 != nil {
		return s1
	}
	return s2
}
