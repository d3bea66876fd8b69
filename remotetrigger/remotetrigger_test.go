package remotetrigger

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/adred-codev/shmsync/clock"
	"github.com/adred-codev/shmsync/internal/testenv"
	"github.com/adred-codev/shmsync/shm"
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

func TestQueryRunsCallbackOnce(t *testing.T) {
	m := shm.NewManager()
	defer m.Close()
	id := fmt.Sprintf("/shmsync_test_%s", t.Name())

	var calls int32
	server, s := NewServer(m, id, func() { atomic.AddInt32(&calls, 1) })
	if status.Of(s) != status.OK {
		t.Fatalf("NewServer failed: %v", s)
	}
	defer server.Close()

	client, s := Connect(id)
	if status.Of(s) != status.OK {
		t.Fatalf("Connect failed: %v", s)
	}
	defer client.Close()

	done := make(chan bool, 1)
	go func() {
		ran, s := server.Query()
		if status.Of(s) != status.OK {
			t.Errorf("Query failed: %v", s)
		}
		done <- ran
	}()

	time.Sleep(testCfg.Scale(10 * time.Millisecond))
	if s := client.TriggerFor(testCfg.Scale(time.Second)); status.Of(s) != status.OK {
		t.Fatalf("Trigger failed: %v", s)
	}

	if ran := <-done; !ran {
		t.Fatal("expected the server's callback to have run")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected exactly one callback invocation, got %d", calls)
	}
}

func TestTriggerSecondOutstandingRejected(t *testing.T) {
	m := shm.NewManager()
	defer m.Close()
	id := fmt.Sprintf("/shmsync_test_%s", t.Name())

	server, _ := NewServer(m, id, func() { time.Sleep(testCfg.Scale(50 * time.Millisecond)) })
	defer server.Close()
	server.StartAsync(zerolog.Nop())
	defer server.Stop()

	client, _ := Connect(id)
	defer client.Close()

	req, s := client.TriggerAsync(clock.Now().Add(testCfg.Scale(time.Second)))
	if status.Of(s) != status.OK {
		t.Fatalf("first TriggerAsync failed: %v", s)
	}
	defer req.Close()

	if _, s := client.TriggerAsync(clock.Now().Add(testCfg.Scale(time.Second))); status.Of(s) != status.AlreadyExists {
		t.Fatalf("expected AlreadyExists for a second outstanding request, got %v", s)
	}

	if s := req.WaitUntil(clock.Now().Add(testCfg.Scale(time.Second))); status.Of(s) != status.OK {
		t.Fatalf("waiting on the first request failed: %v", s)
	}
}

func TestServerStopUnblocksStart(t *testing.T) {
	m := shm.NewManager()
	defer m.Close()
	id := fmt.Sprintf("/shmsync_test_%s", t.Name())

	server, _ := NewServer(m, id, func() {})
	defer server.Close()

	doneCh := make(chan struct{})
	go func() {
		server.Start()
		close(doneCh)
	}()

	time.Sleep(testCfg.Scale(20 * time.Millisecond))
	server.Stop()

	select {
	case <-doneCh:
	case <-time.After(testCfg.Scale(2 * time.Second)):
		t.Fatal("server.Start did not return after Stop")
	}
}
