package lockstep

import (
	"testing"
	"time"

	"github.com/adred-codev/shmsync/internal/testenv"
	"github.com/adred-codev/shmsync/status"
)

// testCfg loads CI deadline-slowdown tuning once per test binary.
var testCfg = mustLoadTestConfig()

func mustLoadTestConfig() *testenv.Config {
	cfg, err := testenv.Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func TestInitialStateIsBFinished(t *testing.T) {
	l := New()
	if l.CurrentState() != BFinished {
		t.Fatalf("expected initial state B_Finished, got %s", l.CurrentState())
	}
}

func TestAlternationCycles(t *testing.T) {
	l := New()
	for i := 0; i < 3; i++ {
		if s := l.StartAFor(testCfg.Scale(time.Second)); status.Of(s) != status.OK {
			t.Fatalf("iteration %d: StartA failed: %v", i, s)
		}
		if s := l.EndA(); status.Of(s) != status.OK {
			t.Fatalf("iteration %d: EndA failed: %v", i, s)
		}
		if s := l.StartBFor(testCfg.Scale(time.Second)); status.Of(s) != status.OK {
			t.Fatalf("iteration %d: StartB failed: %v", i, s)
		}
		if s := l.EndB(); status.Of(s) != status.OK {
			t.Fatalf("iteration %d: EndB failed: %v", i, s)
		}
	}
}

func TestStartBBeforeStartABlocks(t *testing.T) {
	l := New()
	done := make(chan *status.Status, 1)
	go func() {
		done <- l.StartBFor(testCfg.Scale(time.Second))
	}()

	select {
	case <-done:
		t.Fatal("StartB should block until A completes a cycle")
	case <-time.After(testCfg.Scale(50 * time.Millisecond)):
	}

	if s := l.StartAFor(testCfg.Scale(time.Second)); status.Of(s) != status.OK {
		t.Fatalf("StartA failed: %v", s)
	}
	if s := l.EndA(); status.Of(s) != status.OK {
		t.Fatalf("EndA failed: %v", s)
	}

	select {
	case s := <-done:
		if status.Of(s) != status.OK {
			t.Fatalf("StartB should now succeed, got %v", s)
		}
	case <-time.After(testCfg.Scale(time.Second)):
		t.Fatal("StartB never unblocked")
	}
}

func TestCancelWakesWaitersAborted(t *testing.T) {
	l := New()
	l.StartAFor(testCfg.Scale(time.Second))
	l.EndA()
	// Consumes the a_finished post from EndA; state is now B_Running.
	l.StartBFor(testCfg.Scale(time.Second))

	// a_finished is unposted again, so this StartB parks until Cancel.
	done := make(chan *status.Status, 1)
	go func() {
		done <- l.StartBFor(testCfg.Scale(2 * time.Second))
	}()
	time.Sleep(testCfg.Scale(20 * time.Millisecond))

	l.Cancel()
	select {
	case s := <-done:
		if status.Of(s) != status.Aborted {
			t.Fatalf("expected the parked StartB to return Aborted, got %v", s)
		}
	case <-time.After(testCfg.Scale(time.Second)):
		t.Fatal("Cancel did not wake the parked StartB")
	}
	if l.CurrentState() != Cancelled {
		t.Fatalf("expected Cancelled after Cancel, got %s", l.CurrentState())
	}

	s := l.StartAFor(testCfg.Scale(50 * time.Millisecond))
	if status.Of(s) != status.Aborted {
		t.Fatalf("expected Aborted after cancel, got %v", s)
	}
}

func TestResetRequiresCancelled(t *testing.T) {
	l := New()
	s := l.Reset(testCfg.Scale(time.Second))
	if status.Of(s) != status.FailedPrecondition {
		t.Fatalf("expected FailedPrecondition resetting a non-cancelled lockstep, got %v", s)
	}
}

func TestResetReturnsToBFinished(t *testing.T) {
	l := New()
	l.Cancel()
	if s := l.Reset(testCfg.Scale(time.Second)); status.Of(s) != status.OK {
		t.Fatalf("reset failed: %v", s)
	}
	if l.CurrentState() != BFinished {
		t.Fatalf("expected B_Finished after reset, got %s", l.CurrentState())
	}

	// The cycle should work normally again.
	if s := l.StartAFor(testCfg.Scale(time.Second)); status.Of(s) != status.OK {
		t.Fatalf("StartA after reset failed: %v", s)
	}
}
