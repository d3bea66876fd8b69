package lockstep

import (
	"fmt"
	"testing"
	"time"

	"github.com/adred-codev/shmsync/shm"
	"github.com/adred-codev/shmsync/status"
)

func TestSharedMemoryLockstepConnectsAtTwoWriters(t *testing.T) {
	m := shm.NewManager()
	defer m.Close()
	name := fmt.Sprintf("/shmsync_test_%s", t.Name())

	a, s := Create(m, name)
	if status.Of(s) != status.OK {
		t.Fatalf("Create failed: %v", s)
	}
	defer a.Close()

	if a.Connected() {
		t.Fatal("should not be connected with only one writer")
	}

	b, s := Get(name)
	if status.Of(s) != status.OK {
		t.Fatalf("Get failed: %v", s)
	}
	defer b.Close()

	if !a.Connected() || !b.Connected() {
		t.Fatal("expected both handles to report connected")
	}
}

func TestSharedMemoryLockstepPanicsWhenUnconnected(t *testing.T) {
	m := shm.NewManager()
	defer m.Close()
	name := fmt.Sprintf("/shmsync_test_%s", t.Name())

	a, s := Create(m, name)
	if status.Of(s) != status.OK {
		t.Fatalf("Create failed: %v", s)
	}
	defer a.Close()

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected a panic operating on an unconnected lockstep")
		}
	}()
	a.Get()
}

func TestSharedMemoryLockstepCycles(t *testing.T) {
	m := shm.NewManager()
	defer m.Close()
	name := fmt.Sprintf("/shmsync_test_%s", t.Name())

	a, _ := Create(m, name)
	defer a.Close()
	b, _ := Get(name)
	defer b.Close()

	la, lb := a.Get(), b.Get()

	if s := la.StartAFor(time.Second); status.Of(s) != status.OK {
		t.Fatalf("StartA failed: %v", s)
	}
	if s := la.EndA(); status.Of(s) != status.OK {
		t.Fatalf("EndA failed: %v", s)
	}
	if s := lb.StartBFor(time.Second); status.Of(s) != status.OK {
		t.Fatalf("StartB failed: %v", s)
	}
	if s := lb.EndB(); status.Of(s) != status.OK {
		t.Fatalf("EndB failed: %v", s)
	}
}
