package bridge

import (
	"testing"
	"time"

	"github.com/adred-codev/shmsync/future"
	"github.com/adred-codev/shmsync/status"
)

func TestFireAndForgetRequest(t *testing.T) {
	req := New[string, int]("do the thing")
	if got := req.GetRequest(); got != "do the thing" {
		t.Fatalf("got %q", got)
	}
	if s := req.SetResponse(1); status.Of(s) != status.OK {
		t.Fatalf("SetResponse on a promise-less request should be a no-op OK, got %v", s)
	}
	if req.IsCancelled() {
		t.Fatal("a promise-less request should never report cancelled")
	}
}

func TestRequestWithPromiseDeliversResponse(t *testing.T) {
	f := future.NewFuture[int](time.Second)
	p, _ := f.GetPromise()

	req := NewWithPromise[string, int]("compute", p)

	if s := req.SetResponse(99); status.Of(s) != status.OK {
		t.Fatalf("SetResponse failed: %v", s)
	}

	v, s := f.GetWithTimeout(time.Second)
	if status.Of(s) != status.OK {
		t.Fatalf("Get failed: %v", s)
	}
	if v != 99 {
		t.Fatalf("got %d, want 99", v)
	}
}

func TestRequestCancelReflectsInIsCancelled(t *testing.T) {
	f := future.NewFuture[int](time.Second)
	p, _ := f.GetPromise()
	req := NewWithPromise[string, int]("compute", p)

	f.Cancel()
	if !req.IsCancelled() {
		t.Fatal("expected the request to observe the future's cancellation")
	}
}

func TestGetMovedRequestMarksTaken(t *testing.T) {
	req := New[int, int](7)
	if req.Taken() {
		t.Fatal("should not be taken initially")
	}
	if v := req.GetMovedRequest(); v != 7 {
		t.Fatalf("got %d", v)
	}
	if !req.Taken() {
		t.Fatal("expected Taken to be true after GetMovedRequest")
	}
}
