package futex

import (
	"testing"
	"time"

	"github.com/adred-codev/shmsync/clock"
	"github.com/adred-codev/shmsync/diagnostics"
	"github.com/adred-codev/shmsync/internal/testenv"
	"github.com/adred-codev/shmsync/status"
)

// testCfg loads CI deadline-slowdown tuning once per test binary, so every
// deadline-based test in this package scales the same way a loaded CI
// runner needs without each test reading the environment itself.
var testCfg = mustLoadTestConfig()

func mustLoadTestConfig() *testenv.Config {
	cfg, err := testenv.Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func TestPostThenWaitSucceeds(t *testing.T) {
	f := New(false)
	if s := f.Post(); status.Of(s) != status.OK {
		t.Fatalf("post failed: %v", s)
	}
	if s := f.WaitFor(testCfg.Scale(50 * time.Millisecond)); status.Of(s) != status.OK {
		t.Fatalf("wait after post failed: %v", s)
	}
}

func TestWaitWithoutPostTimesOut(t *testing.T) {
	f := New(false)
	s := f.WaitFor(testCfg.Scale(20 * time.Millisecond))
	if status.Of(s) != status.DeadlineExceeded {
		t.Fatalf("expected DeadlineExceeded, got %v", s)
	}
}

func TestPostIsIdempotent(t *testing.T) {
	f := New(false)
	f.Post()
	f.Post()

	if s := f.WaitFor(testCfg.Scale(50 * time.Millisecond)); status.Of(s) != status.OK {
		t.Fatalf("first wait should succeed: %v", s)
	}
	if s := f.WaitFor(testCfg.Scale(20 * time.Millisecond)); status.Of(s) != status.DeadlineExceeded {
		t.Fatalf("second wait should time out (post was consumed once), got %v", s)
	}
}

func TestConcurrentPostWait(t *testing.T) {
	f := New(false)
	done := make(chan *status.Status, 1)
	go func() {
		done <- f.WaitFor(testCfg.Scale(time.Second))
	}()

	time.Sleep(testCfg.Scale(10 * time.Millisecond))
	f.Post()

	select {
	case s := <-done:
		if status.Of(s) != status.OK {
			t.Fatalf("waiter did not observe post: %v", s)
		}
	case <-time.After(testCfg.Scale(2 * time.Second)):
		t.Fatal("waiter never woke")
	}
}

func TestWaitUntilPastDeadline(t *testing.T) {
	f := New(false)
	past := clock.Now().Add(-time.Second)
	s := f.WaitUntil(past)
	if status.Of(s) != status.DeadlineExceeded {
		t.Fatalf("expected immediate DeadlineExceeded, got %v", s)
	}
}

// TestWaitLatencyCorrelatesWithPlatformSnapshot takes a host resource
// snapshot around a bounded wait, the kind of correlation useful when a
// futex-latency regression turns out to be host contention rather than a
// bug in this package.
func TestWaitLatencyCorrelatesWithPlatformSnapshot(t *testing.T) {
	before, err := diagnostics.PlatformSnapshot()
	if err != nil {
		t.Fatalf("platform snapshot before wait failed: %v", err)
	}

	f := New(false)
	start := clock.Now()
	go func() {
		time.Sleep(testCfg.Scale(10 * time.Millisecond))
		f.Post()
	}()
	if s := f.WaitFor(testCfg.Scale(time.Second)); status.Of(s) != status.OK {
		t.Fatalf("wait failed: %v", s)
	}
	elapsed := clock.Now().Sub(start)

	after, err := diagnostics.PlatformSnapshot()
	if err != nil {
		t.Fatalf("platform snapshot after wait failed: %v", err)
	}

	t.Logf("wait took %v; cpu %.1f%%->%.1f%%, mem %.1f%%->%.1f%%",
		elapsed, before.CPUPercent, after.CPUPercent, before.MemoryPercent, after.MemoryPercent)
}
