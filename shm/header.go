package shm

import (
	"sync/atomic"
	"unsafe"

	"github.com/adred-codev/shmsync/clock"
	"github.com/adred-codev/shmsync/internal/rtsync"
)

// TypeIDCapacity bounds the type tag every segment carries. The tag is
// recorded and reported by TypeInfo, but OpenReader/OpenWriter do not
// compare it against T (see the open question recorded in DESIGN.md).
const TypeIDCapacity = 100

// Flag is a bit in Header.flags.
type Flag uint32

const (
	// FlagExclusiveOwnership is recorded in the header and reported by
	// SegmentInfo. AddSegment does not consult it: an existing backing
	// object of the same name is reused and re-initialized regardless.
	FlagExclusiveOwnership Flag = 1 << iota
)

const headerCacheLinePad = 128 - TypeIDCapacity - 1

// Header is the fixed-size metadata block placed at offset 0 of every
// segment. It is trivially copyable and reinterpreted directly out of
// mmap'd bytes via unsafe.Pointer — it must never contain a Go pointer,
// slice, map, or string.
//
// The type tag occupies its own 128-byte block so that readers polling
// TypeInfo() under contention do not false-share a cache line with the
// lock/refcount block that every Post/refcount change touches.
type Header struct {
	typeIDLen uint8
	typeID    [TypeIDCapacity]byte
	_         [headerCacheLinePad]byte

	lock             uint32
	readerRefCount   uint32
	writerRefCount   uint32
	flags            uint32
	lastUpdatedNanos int64
	updateCounter    uint64
}

// HeaderSize is sizeof(Header), exported so callers computing segment
// sizes (header + payload) do not need unsafe.Sizeof at call sites.
const HeaderSize = unsafe.Sizeof(Header{})

// headerAt reinterprets the first HeaderSize bytes of b as a *Header. The
// caller is responsible for b being at least HeaderSize long and for the
// backing memory outliving the returned pointer.
func headerAt(b []byte) *Header {
	return (*Header)(unsafe.Pointer(&b[0]))
}

// initInPlace zero-initializes h's mutex and refcounts and installs the
// type tag and flags. It must run exactly once per segment, performed by
// whichever manager call first creates the backing object — never by a
// later Reader/Writer that merely reopens an existing segment.
func initInPlace(h *Header, typeID string, flags Flag) {
	if len(typeID) > TypeIDCapacity {
		typeID = typeID[:TypeIDCapacity]
	}
	copy(h.typeID[:], typeID)
	h.typeIDLen = uint8(len(typeID))
	atomic.StoreUint32(&h.flags, uint32(flags))
	atomic.StoreUint32(&h.lock, 0)
	atomic.StoreUint32(&h.readerRefCount, 0)
	atomic.StoreUint32(&h.writerRefCount, 0)
	atomic.StoreInt64(&h.lastUpdatedNanos, 0)
	atomic.StoreUint64(&h.updateCounter, 0)
}

// lockHeader spins a futex-backed lock: an uncontended lock never leaves
// userspace (unlockHeader always issues a wake); a contended one parks via
// the same wait/wake syscall futex.BinaryFutex uses, making the header
// mutex itself process-shared and async-signal-safe without a libc
// semaphore binding.
func lockHeader(h *Header) {
	for {
		if atomic.CompareAndSwapUint32(&h.lock, 0, 1) {
			return
		}
		// Wait while still contended; any wake or the end of each
		// contentionPollInterval park retries the CAS. Acquiring the lock
		// has no overall deadline: header critical sections are O(1)
		// field updates, never a blocking wait.
		_ = rtsync.Wait(&h.lock, 1, clock.Now().Add(contentionPollInterval))
	}
}

func unlockHeader(h *Header) {
	atomic.StoreUint32(&h.lock, 0)
	_ = rtsync.Wake(&h.lock, 1)
}

const contentionPollInterval = 2_000_000 // 2ms, in nanoseconds-as-Duration via clock.Duration

// TypeInfo returns the type tag recorded at initialization.
func (h *Header) TypeInfo() string {
	n := h.typeIDLen
	if int(n) > len(h.typeID) {
		n = uint8(len(h.typeID))
	}
	return string(h.typeID[:n])
}

// FlagIsSet is a lock-free query against the flags bitset.
func (h *Header) FlagIsSet(f Flag) bool {
	return atomic.LoadUint32(&h.flags)&uint32(f) != 0
}

// ReaderRefCount returns the number of live Reader handles across every
// process that has opened this segment.
func (h *Header) ReaderRefCount() int {
	lockHeader(h)
	defer unlockHeader(h)
	return int(h.readerRefCount)
}

// WriterRefCount returns the number of live Writer handles.
func (h *Header) WriterRefCount() int {
	lockHeader(h)
	defer unlockHeader(h)
	return int(h.writerRefCount)
}

func (h *Header) incrementReader() {
	lockHeader(h)
	h.readerRefCount++
	unlockHeader(h)
}

func (h *Header) decrementReader() {
	lockHeader(h)
	if h.readerRefCount > 0 {
		h.readerRefCount--
	}
	unlockHeader(h)
}

func (h *Header) incrementWriter() {
	lockHeader(h)
	h.writerRefCount++
	unlockHeader(h)
}

func (h *Header) decrementWriter() {
	lockHeader(h)
	if h.writerRefCount > 0 {
		h.writerRefCount--
	}
	unlockHeader(h)
}

// UpdatedAt records t as the segment's last-update time and advances the
// update counter by one. Callers pass a monotonic clock.Time; it is the
// writer's responsibility to call this at most once per logical update.
func (h *Header) UpdatedAt(t clock.Time) {
	lockHeader(h)
	h.lastUpdatedNanos = t.UnixNano()
	h.updateCounter++
	unlockHeader(h)
}

// LastUpdatedAt returns the most recently recorded update time, or the
// zero instant if UpdatedAt has never been called.
func (h *Header) LastUpdatedAt() clock.Time {
	lockHeader(h)
	defer unlockHeader(h)
	return clock.FromUnixNano(h.lastUpdatedNanos)
}

// UpdateCounter returns the current monotone update counter; readers use
// changes in this value to detect missed updates between polls.
func (h *Header) UpdateCounter() uint64 {
	lockHeader(h)
	defer unlockHeader(h)
	return h.updateCounter
}
