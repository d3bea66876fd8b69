package diagnostics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func TestNewLoggerDefaultsToInfo(t *testing.T) {
	NewLogger(Config{Component: "test"})
	if got := zerolog.GlobalLevel(); got != zerolog.InfoLevel {
		t.Fatalf("expected global level info with no Level set, got %v", got)
	}
}

func TestRecoverPanicDoesNotPropagate(t *testing.T) {
	logger := NewLogger(Config{Component: "test"})

	func() {
		defer RecoverPanic(logger, "test-goroutine", map[string]any{"k": "v"})
		panic("boom")
	}()
	// Reaching here means the panic was contained.
}

func TestLogThrottledDoesNotPanicOnRepeatedCalls(t *testing.T) {
	for i := 0; i < 5; i++ {
		LogThrottled("test.key", "repeated failure", errors.New("x"))
	}
}

func TestNewMetricsRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.FutexPostsTotal.Inc()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected at least one metric family registered")
	}
}

func TestRecordFunctionsAreNoOpsWithoutGlobalMetrics(t *testing.T) {
	SetGlobalMetrics(nil)
	defer SetGlobalMetrics(nil)

	// None of these may panic or block when no Metrics has been installed.
	RecordFutexPost()
	RecordFutexWake()
	RecordFutexTimeout()
	RecordLockstepTransition("A_Running")
	RecordLockstepCancel()
	RecordRemoteTriggerLatency(0.001)
	RecordRemoteTriggerFailure("Aborted")
	RecordRemoteTriggerCallback()
	RecordFutureOutcome("value")
	RecordSegmentCreated()
	RecordSegmentClosed()
	RecordSegmentReaderOpened()
	RecordSegmentReaderClosed()
	RecordSegmentWriterOpened()
	RecordSegmentWriterClosed()
}

func TestSetGlobalMetricsRoutesRecordCalls(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	SetGlobalMetrics(m)
	defer SetGlobalMetrics(nil)

	RecordFutexPost()
	RecordFutexWake()
	RecordLockstepTransition("A_Running")
	RecordRemoteTriggerLatency(0.002)
	RecordFutureOutcome("value")

	if got := testutil.ToFloat64(m.FutexPostsTotal); got != 1 {
		t.Fatalf("expected FutexPostsTotal to be 1, got %v", got)
	}
	if got := testutil.ToFloat64(m.LockstepTransitionsTotal.WithLabelValues("A_Running")); got != 1 {
		t.Fatalf("expected one A_Running transition recorded, got %v", got)
	}
}
