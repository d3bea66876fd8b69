package shm

import (
	"fmt"
	"testing"

	"github.com/adred-codev/shmsync/clock"
	"github.com/adred-codev/shmsync/status"
)

type payload struct {
	Counter int64
	Flag    uint32
}

func uniqueName(t *testing.T) string {
	return fmt.Sprintf("/shmsync_test_%s", t.Name())
}

func TestAddSegmentFreshHeader(t *testing.T) {
	m := NewManager()
	name := uniqueName(t)
	defer m.Close()

	if s := AddSegmentDefault[payload](m, name); status.Of(s) != status.OK {
		t.Fatalf("AddSegmentDefault failed: %v", s)
	}

	h := m.SegmentHeader(name)
	if h == nil {
		t.Fatal("expected header to be present")
	}
	if h.ReaderRefCount() != 0 || h.WriterRefCount() != 0 {
		t.Fatalf("fresh segment should have zero refcounts, got r=%d w=%d", h.ReaderRefCount(), h.WriterRefCount())
	}
	if h.UpdateCounter() != 0 {
		t.Fatalf("fresh segment should have zero update counter")
	}
	if !h.LastUpdatedAt().IsZero() {
		t.Fatalf("fresh segment should have zero last-updated time")
	}
}

func TestAddSegmentDuplicateName(t *testing.T) {
	m := NewManager()
	name := uniqueName(t)
	defer m.Close()

	if s := AddSegmentDefault[payload](m, name); status.Of(s) != status.OK {
		t.Fatalf("first AddSegment failed: %v", s)
	}
	s := AddSegmentDefault[payload](m, name)
	if status.Of(s) != status.AlreadyExists {
		t.Fatalf("expected AlreadyExists, got %v", s)
	}
}

func TestReaderWriterRefCounts(t *testing.T) {
	m := NewManager()
	name := uniqueName(t)
	defer m.Close()

	if s := AddSegment(m, name, payload{Counter: 42}); status.Of(s) != status.OK {
		t.Fatalf("AddSegment failed: %v", s)
	}

	w, s := OpenWriter[payload](name)
	if status.Of(s) != status.OK {
		t.Fatalf("OpenWriter failed: %v", s)
	}
	r, s := OpenReader[payload](name)
	if status.Of(s) != status.OK {
		t.Fatalf("OpenReader failed: %v", s)
	}

	h := m.SegmentHeader(name)
	if h.ReaderRefCount() != 1 || h.WriterRefCount() != 1 {
		t.Fatalf("expected 1/1 refcounts, got r=%d w=%d", h.ReaderRefCount(), h.WriterRefCount())
	}

	if got := r.Value().Counter; got != 42 {
		t.Fatalf("reader should observe writer's initial value, got %d", got)
	}

	w.SetValue(payload{Counter: 100})
	if got := r.Value().Counter; got != 100 {
		t.Fatalf("reader should observe updated value, got %d", got)
	}

	r.Close()
	w.Close()

	if h.ReaderRefCount() != 0 || h.WriterRefCount() != 0 {
		t.Fatalf("expected refcounts back to zero after close, got r=%d w=%d", h.ReaderRefCount(), h.WriterRefCount())
	}
}

func TestUpdatedAtAdvancesCounter(t *testing.T) {
	m := NewManager()
	name := uniqueName(t)
	defer m.Close()

	AddSegmentDefault[payload](m, name)
	w, _ := OpenWriter[payload](name)
	defer w.Close()

	before := w.Header().UpdateCounter()
	w.UpdatedAt(clock.Now())
	after := w.Header().UpdateCounter()

	if after != before+1 {
		t.Fatalf("expected update counter to advance by one, got %d -> %d", before, after)
	}
}

func TestCloseUnlinksSegment(t *testing.T) {
	m := NewManager()
	name := uniqueName(t)

	AddSegmentDefault[payload](m, name)
	if s := m.Close(); status.Of(s) != status.OK {
		t.Fatalf("manager Close failed: %v", s)
	}

	m2 := NewManager()
	defer m2.Close()
	if s := AddSegmentDefault[payload](m2, name); status.Of(s) != status.OK {
		t.Fatalf("expected segment name to be reusable after unlink, got %v", s)
	}
}
