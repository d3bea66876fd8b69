package shm

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/adred-codev/shmsync/diagnostics"
	"github.com/adred-codev/shmsync/internal/shmio"
	"github.com/adred-codev/shmsync/status"
)

// entry tracks one segment this manager created, so Close can unlink
// every one of them exactly once.
type entry struct {
	seg      *shmio.Segment
	typeID   string
	flags    Flag
	nameOnly string
}

// Manager is the lifecycle owner of every named segment it creates: it
// places the header, copies in the initial payload, and unlinks the
// backing object when closed. Handles (Reader[T]/Writer[T]) are opened
// independently of the manager that created a segment — a manager need
// not be reachable from the process that merely reads or writes a
// segment's payload.
type Manager struct {
	mu       sync.Mutex
	segments map[string]*entry
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{segments: make(map[string]*entry)}
}

// AddSegmentDefault creates a new segment sized for T, zero-valued, with
// a generated type id derived from T's Go type name.
func AddSegmentDefault[T any](m *Manager, name string) *status.Status {
	var zero T
	return AddSegment(m, name, zero)
}

// AddSegment creates a new segment sized for T and copies value into it
// as the initial payload. The type id recorded in the header is derived
// from T's static type; callers needing a specific cross-language id
// should use AddSegmentNamed.
func AddSegment[T any](m *Manager, name string, value T) *status.Status {
	return AddSegmentNamed(m, name, value, fmt.Sprintf("%T", value), 0)
}

// AddSegmentNamed is AddSegment with an explicit type id and flags.
func AddSegmentNamed[T any](m *Manager, name string, value T, typeID string, flags Flag) *status.Status {
	if s := ValidateName(name); s != nil {
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.segments[name]; exists {
		return status.Newf(status.AlreadyExists, "segment %q already registered with this manager", name)
	}
	if len(m.segments) >= MaxSegmentsPerManager {
		return status.Newf(status.ResourceExhausted, "manager already owns the maximum of %d segments", MaxSegmentsPerManager)
	}

	size := int(HeaderSize) + int(unsafe.Sizeof(value))
	seg, s := shmio.Open(name, size)
	if s != nil {
		return s
	}

	h := headerAt(seg.Bytes)
	initInPlace(h, typeID, flags)

	payload := payloadPtr[T](seg.Bytes)
	*payload = value

	m.segments[name] = &entry{seg: seg, typeID: typeID, flags: flags, nameOnly: name}
	diagnostics.RecordSegmentCreated()
	return nil
}

// AddSegmentBytes creates a raw-byte payload segment of the given size,
// for payloads that are not a plain copy of some Go type T (e.g. a
// pre-serialized buffer).
func (m *Manager) AddSegmentBytes(name string, payloadSize int) *status.Status {
	if s := ValidateName(name); s != nil {
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.segments[name]; exists {
		return status.Newf(status.AlreadyExists, "segment %q already registered with this manager", name)
	}
	if len(m.segments) >= MaxSegmentsPerManager {
		return status.Newf(status.ResourceExhausted, "manager already owns the maximum of %d segments", MaxSegmentsPerManager)
	}

	size := int(HeaderSize) + payloadSize
	seg, s := shmio.Open(name, size)
	if s != nil {
		return s
	}

	h := headerAt(seg.Bytes)
	initInPlace(h, "bytes", 0)

	m.segments[name] = &entry{seg: seg, typeID: "bytes", nameOnly: name}
	diagnostics.RecordSegmentCreated()
	return nil
}

// SegmentHeader returns the header for name, or nil if this manager did
// not create it.
func (m *Manager) SegmentHeader(name string) *Header {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.segments[name]
	if !ok {
		return nil
	}
	return headerAt(e.seg.Bytes)
}

// SetSegmentValue overwrites the payload of an existing segment.
func SetSegmentValue[T any](m *Manager, name string, value T) *status.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.segments[name]
	if !ok {
		return status.Newf(status.NotFound, "segment %q not registered with this manager", name)
	}
	payload := payloadPtr[T](e.seg.Bytes)
	*payload = value
	return nil
}

// RegisteredSegmentNames returns the names of every segment this manager
// owns, in no particular order.
func (m *Manager) RegisteredSegmentNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.segments))
	for name := range m.segments {
		names = append(names, name)
	}
	return names
}

// Info summarizes one owned segment for diagnostics.
type Info struct {
	Name               string
	TypeID             string
	ReaderRefCount     int
	WriterRefCount     int
	ExclusiveOwnership bool
}

// SegmentInfo summarizes every segment this manager owns.
func (m *Manager) SegmentInfo() []Info {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Info, 0, len(m.segments))
	for name, e := range m.segments {
		h := headerAt(e.seg.Bytes)
		out = append(out, Info{
			Name:               name,
			TypeID:             h.TypeInfo(),
			ReaderRefCount:     h.ReaderRefCount(),
			WriterRefCount:     h.WriterRefCount(),
			ExclusiveOwnership: h.FlagIsSet(FlagExclusiveOwnership),
		})
	}
	return out
}

// Close unmaps and unlinks every segment this manager created. It is not
// an error to Close a manager more than once; the second call is a no-op
// since segments are removed from the map as they are torn down.
func (m *Manager) Close() *status.Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	var first *status.Status
	for name, e := range m.segments {
		if s := e.seg.Close(); s != nil && first == nil {
			first = s
		}
		if s := shmio.Unlink(name); s != nil && first == nil {
			first = s
		}
		delete(m.segments, name)
		diagnostics.RecordSegmentClosed()
	}
	return first
}

// payloadPtr reinterprets the bytes following the header as *T. Callers
// are responsible for having sized the segment for T; there is no
// runtime check that the bytes actually hold a T (see the open question
// on type_id enforcement recorded in DESIGN.md).
func payloadPtr[T any](b []byte) *T {
	return (*T)(unsafe.Pointer(&b[HeaderSize]))
}
