package lockstep

import (
	"fmt"

	"github.com/adred-codev/shmsync/shm"
	"github.com/adred-codev/shmsync/status"
)

// SharedMemoryLockstep places a Lockstep inside a named shared-memory
// segment so two processes can rendezvous on it by name. It is
// "connected" once both sides have opened it as a writer; operating on
// one before that point is a programming error, mirroring the original's
// CHECK-fail on a null dereference.
type SharedMemoryLockstep struct {
	writer *shm.Writer[Lockstep]
}

// Create adds a new Lockstep segment named name via m and returns a
// connected-or-not handle to it. The caller is the segment's first
// writer; a second process calling Get becomes the second. Calling Create
// again for the same name from another manager re-initializes the header
// (refcounts back to zero) and the lockstep state instead.
func Create(m *shm.Manager, name string) (*SharedMemoryLockstep, *status.Status) {
	if s := shm.AddSegmentNamed(m, name, Lockstep{}, "shmsync.lockstep", 0); s != nil {
		return nil, s
	}
	w, s := shm.OpenWriter[Lockstep](name)
	if s != nil {
		return nil, s
	}
	Init(w.ValuePtr())
	return &SharedMemoryLockstep{writer: w}, nil
}

// Get opens an existing Lockstep segment by name as the (second, or
// later) writer. It does not initialize the lockstep state — only
// Create's first call does that.
func Get(name string) (*SharedMemoryLockstep, *status.Status) {
	w, s := shm.OpenWriter[Lockstep](name)
	if s != nil {
		return nil, s
	}
	return &SharedMemoryLockstep{writer: w}, nil
}

// Connected reports whether both participant processes have opened this
// segment as a writer.
func (s *SharedMemoryLockstep) Connected() bool {
	return s.writer.Header().WriterRefCount() == 2
}

// Get returns the underlying Lockstep, panicking if the segment is not
// yet connected — operating on a half-open rendezvous point is a
// programming error the original models as a CHECK-fail.
func (s *SharedMemoryLockstep) Get() *Lockstep {
	if !s.Connected() {
		panic(fmt.Sprintf("shared memory lockstep not connected (writer_ref_count=%d)", s.writer.Header().WriterRefCount()))
	}
	return s.writer.ValuePtr()
}

// Unchecked returns the underlying Lockstep without the connected-writer
// check Get enforces. It exists for built-in collaborators (realtimeclock)
// that manage their own handshake discipline: the side that calls Create
// necessarily runs its first StartA before any peer has opened the
// segment as a second writer, so gating that access on Connected would
// make construction itself impossible. General callers should use Get.
func (s *SharedMemoryLockstep) Unchecked() *Lockstep {
	return s.writer.ValuePtr()
}

// Close releases this process's writer handle on the segment.
func (s *SharedMemoryLockstep) Close() *status.Status {
	return s.writer.Close()
}
