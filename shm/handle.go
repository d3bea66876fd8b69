package shm

import (
	"unsafe"

	"github.com/adred-codev/shmsync/clock"
	"github.com/adred-codev/shmsync/diagnostics"
	"github.com/adred-codev/shmsync/internal/shmio"
	"github.com/adred-codev/shmsync/status"
)

// Reader is a typed, shared view onto a segment's payload, opened by
// name independently of whichever Manager created it. It participates in
// the header's reader refcount but does no internal locking of its own —
// concurrency discipline for the payload is external (see the
// concurrency model notes in SPEC_FULL.md).
//
// The zero value is a "null" Reader, safe to Close (a no-op).
type Reader[T any] struct {
	seg *shmio.Segment
	hdr *Header
	val *T
}

// OpenReader opens an existing segment by name as a reader.
func OpenReader[T any](name string) (*Reader[T], *status.Status) {
	var zero T
	size := int(HeaderSize) + int(unsafe.Sizeof(zero))
	seg, s := shmio.Open(name, size)
	if s != nil {
		return nil, s
	}
	h := headerAt(seg.Bytes)
	h.incrementReader()
	diagnostics.RecordSegmentReaderOpened()
	return &Reader[T]{seg: seg, hdr: h, val: payloadPtr[T](seg.Bytes)}, nil
}

// Clone returns a second Reader over the same mapping, incrementing the
// reader refcount again; the two handles must each be Closed.
func (r *Reader[T]) Clone() *Reader[T] {
	if r == nil || r.hdr == nil {
		return &Reader[T]{}
	}
	r.hdr.incrementReader()
	diagnostics.RecordSegmentReaderOpened()
	return &Reader[T]{seg: r.seg, hdr: r.hdr, val: r.val}
}

// Close decrements the reader refcount. Safe to call on a zero-value or
// already-closed Reader.
func (r *Reader[T]) Close() *status.Status {
	if r == nil || r.hdr == nil {
		return nil
	}
	r.hdr.decrementReader()
	diagnostics.RecordSegmentReaderClosed()
	s := r.seg.Close()
	r.hdr = nil
	r.val = nil
	r.seg = nil
	return s
}

// Value returns the current payload by value.
func (r *Reader[T]) Value() T {
	return *r.val
}

// ValuePtr returns a pointer directly into the mapped payload. A Reader
// grants no enforced exclusivity over Writer — it exists to express
// intent and to be counted in the header's reader refcount — so this is
// needed for payload types whose only valid access is through their own
// lock-free methods (futex.BinaryFutex.Post/WaitUntil), which mutate
// their backing word regardless of which side of a rendezvous is
// "reading" or "writing" in the logical sense.
func (r *Reader[T]) ValuePtr() *T {
	return r.val
}

// RawValue returns the raw payload bytes, for payloads whose true
// contents are not a plain copy of T (e.g. a serialized buffer sized to
// T only for allocation purposes).
func (r *Reader[T]) RawValue() []byte {
	return r.seg.Bytes[HeaderSize:]
}

// Header exposes the segment's header for refcount/update-counter
// inspection.
func (r *Reader[T]) Header() *Header {
	return r.hdr
}

// Writer is the exclusive-by-discipline counterpart of Reader: it can
// mutate the payload and advance the header's update counter.
type Writer[T any] struct {
	seg *shmio.Segment
	hdr *Header
	val *T
}

// OpenWriter opens an existing segment by name as a writer.
func OpenWriter[T any](name string) (*Writer[T], *status.Status) {
	var zero T
	size := int(HeaderSize) + int(unsafe.Sizeof(zero))
	seg, s := shmio.Open(name, size)
	if s != nil {
		return nil, s
	}
	h := headerAt(seg.Bytes)
	h.incrementWriter()
	diagnostics.RecordSegmentWriterOpened()
	return &Writer[T]{seg: seg, hdr: h, val: payloadPtr[T](seg.Bytes)}, nil
}

// Clone returns a second Writer over the same mapping, incrementing the
// writer refcount again.
func (w *Writer[T]) Clone() *Writer[T] {
	if w == nil || w.hdr == nil {
		return &Writer[T]{}
	}
	w.hdr.incrementWriter()
	diagnostics.RecordSegmentWriterOpened()
	return &Writer[T]{seg: w.seg, hdr: w.hdr, val: w.val}
}

// Close decrements the writer refcount. Safe on a zero-value Writer.
func (w *Writer[T]) Close() *status.Status {
	if w == nil || w.hdr == nil {
		return nil
	}
	w.hdr.decrementWriter()
	diagnostics.RecordSegmentWriterClosed()
	s := w.seg.Close()
	w.hdr = nil
	w.val = nil
	w.seg = nil
	return s
}

// Value returns the current payload by value.
func (w *Writer[T]) Value() T {
	return *w.val
}

// ValuePtr returns a pointer directly into the mapped payload, for
// in-place mutation of lock-free fields (e.g. the futexes embedded in a
// Lockstep payload) without a read-modify-write round trip.
func (w *Writer[T]) ValuePtr() *T {
	return w.val
}

// SetValue overwrites the payload.
func (w *Writer[T]) SetValue(v T) {
	*w.val = v
}

// RawValue returns the raw payload bytes.
func (w *Writer[T]) RawValue() []byte {
	return w.seg.Bytes[HeaderSize:]
}

// UpdatedAt records t as the segment's last update time via the header.
func (w *Writer[T]) UpdatedAt(t clock.Time) {
	w.hdr.UpdatedAt(t)
}

// Header exposes the segment's header.
func (w *Writer[T]) Header() *Header {
	return w.hdr
}
