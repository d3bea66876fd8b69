package diagnostics

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects every counter/gauge/histogram the synchronization core
// exposes, grouped into a struct so a process embedding this module can
// register it into its own registry instead of the global default one.
type Metrics struct {
	SegmentsActive     prometheus.Gauge
	SegmentReaderRefs  prometheus.Gauge
	SegmentWriterRefs  prometheus.Gauge
	FutexPostsTotal    prometheus.Counter
	FutexWakesTotal    prometheus.Counter
	FutexTimeoutsTotal prometheus.Counter

	LockstepTransitionsTotal *prometheus.CounterVec
	LockstepCancelsTotal     prometheus.Counter

	RemoteTriggerLatency   prometheus.Histogram
	RemoteTriggerFailures  *prometheus.CounterVec
	RemoteTriggerCallbacks prometheus.Counter

	FutureOutcomes *prometheus.CounterVec
}

// NewMetrics constructs a Metrics bound to reg. Pass
// prometheus.NewRegistry() for an isolated registry (as tests should) or
// prometheus.DefaultRegisterer to expose via the default /metrics
// handler.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SegmentsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "shmsync_segments_active",
			Help: "Number of shared-memory segments currently owned by this process's managers.",
		}),
		SegmentReaderRefs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "shmsync_segment_reader_refs",
			Help: "Sum of reader reference counts across segments this process observes.",
		}),
		SegmentWriterRefs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "shmsync_segment_writer_refs",
			Help: "Sum of writer reference counts across segments this process observes.",
		}),
		FutexPostsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shmsync_futex_posts_total",
			Help: "Total number of successful BinaryFutex.Post calls.",
		}),
		FutexWakesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shmsync_futex_wakes_total",
			Help: "Total number of futex wake syscalls issued.",
		}),
		FutexTimeoutsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shmsync_futex_wait_timeouts_total",
			Help: "Total number of BinaryFutex waits that returned DeadlineExceeded.",
		}),
		LockstepTransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shmsync_lockstep_transitions_total",
			Help: "Lockstep state transitions by resulting state.",
		}, []string{"state"}),
		LockstepCancelsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shmsync_lockstep_cancels_total",
			Help: "Total number of Lockstep.Cancel calls.",
		}),
		RemoteTriggerLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "shmsync_remote_trigger_round_trip_seconds",
			Help:    "Client-observed round trip time of a remote trigger request.",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		RemoteTriggerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shmsync_remote_trigger_failures_total",
			Help: "Remote trigger failures by status code.",
		}, []string{"code"}),
		RemoteTriggerCallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shmsync_remote_trigger_callbacks_total",
			Help: "Total number of server-side callback invocations.",
		}),
		FutureOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shmsync_future_outcomes_total",
			Help: "NonRealtimeFuture outcomes by kind (value, cancelled, timeout).",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		m.SegmentsActive, m.SegmentReaderRefs, m.SegmentWriterRefs,
		m.FutexPostsTotal, m.FutexWakesTotal, m.FutexTimeoutsTotal,
		m.LockstepTransitionsTotal, m.LockstepCancelsTotal,
		m.RemoteTriggerLatency, m.RemoteTriggerFailures, m.RemoteTriggerCallbacks,
		m.FutureOutcomes,
	)
	return m
}

// Handler returns an http.Handler serving reg in the Prometheus exposition
// format, for embedding in a process's own mux.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// globalMetrics is the process-wide Metrics instance the synchronization
// core records against, following the same package-level singleton shape
// as globalThrottle. It is nil until SetGlobalMetrics is called, and every
// Record* function below is a no-op in that case: a BinaryFutex/Lockstep
// placed in shared memory must stay trivially copyable, so it cannot hold
// a *Metrics field of its own — recording has to go through a global hook
// instead.
var globalMetrics atomic.Pointer[Metrics]

// SetGlobalMetrics installs m as the target of every Record* call in this
// package. Passing nil disables recording. Safe to call before any
// synchronization primitive is used; not safe to call concurrently with
// one, since the swap itself is unsynchronized with respect to readers
// beyond the atomic pointer load.
func SetGlobalMetrics(m *Metrics) {
	globalMetrics.Store(m)
}

// RecordSegmentCreated increments the active-segment gauge when a Manager
// creates a new segment.
func RecordSegmentCreated() {
	if m := globalMetrics.Load(); m != nil {
		m.SegmentsActive.Inc()
	}
}

// RecordSegmentClosed decrements the active-segment gauge when a Manager
// unlinks a segment it created.
func RecordSegmentClosed() {
	if m := globalMetrics.Load(); m != nil {
		m.SegmentsActive.Dec()
	}
}

// RecordSegmentReaderOpened increments the reader refcount gauge when a
// Reader[T] handle is opened or cloned.
func RecordSegmentReaderOpened() {
	if m := globalMetrics.Load(); m != nil {
		m.SegmentReaderRefs.Inc()
	}
}

// RecordSegmentReaderClosed decrements the reader refcount gauge when a
// Reader[T] handle is closed.
func RecordSegmentReaderClosed() {
	if m := globalMetrics.Load(); m != nil {
		m.SegmentReaderRefs.Dec()
	}
}

// RecordSegmentWriterOpened increments the writer refcount gauge when a
// Writer[T] handle is opened or cloned.
func RecordSegmentWriterOpened() {
	if m := globalMetrics.Load(); m != nil {
		m.SegmentWriterRefs.Inc()
	}
}

// RecordSegmentWriterClosed decrements the writer refcount gauge when a
// Writer[T] handle is closed.
func RecordSegmentWriterClosed() {
	if m := globalMetrics.Load(); m != nil {
		m.SegmentWriterRefs.Dec()
	}
}

// RecordFutexPost counts one successful BinaryFutex.Post call.
func RecordFutexPost() {
	if m := globalMetrics.Load(); m != nil {
		m.FutexPostsTotal.Inc()
	}
}

// RecordFutexWake counts one futex wake syscall issued.
func RecordFutexWake() {
	if m := globalMetrics.Load(); m != nil {
		m.FutexWakesTotal.Inc()
	}
}

// RecordFutexTimeout counts one BinaryFutex wait that returned
// DeadlineExceeded.
func RecordFutexTimeout() {
	if m := globalMetrics.Load(); m != nil {
		m.FutexTimeoutsTotal.Inc()
	}
}

// RecordLockstepTransition counts one Lockstep state transition, labeled
// by the state it landed in.
func RecordLockstepTransition(state string) {
	if m := globalMetrics.Load(); m != nil {
		m.LockstepTransitionsTotal.WithLabelValues(state).Inc()
	}
}

// RecordLockstepCancel counts one Lockstep.Cancel call.
func RecordLockstepCancel() {
	if m := globalMetrics.Load(); m != nil {
		m.LockstepCancelsTotal.Inc()
	}
}

// RecordRemoteTriggerLatency observes one client-side round trip duration,
// in seconds.
func RecordRemoteTriggerLatency(seconds float64) {
	if m := globalMetrics.Load(); m != nil {
		m.RemoteTriggerLatency.Observe(seconds)
	}
}

// RecordRemoteTriggerFailure counts one remote trigger failure, labeled by
// status code.
func RecordRemoteTriggerFailure(code string) {
	if m := globalMetrics.Load(); m != nil {
		m.RemoteTriggerFailures.WithLabelValues(code).Inc()
	}
}

// RecordRemoteTriggerCallback counts one server-side callback invocation.
func RecordRemoteTriggerCallback() {
	if m := globalMetrics.Load(); m != nil {
		m.RemoteTriggerCallbacks.Inc()
	}
}

// RecordFutureOutcome counts one NonRealtimeFuture resolution, labeled by
// outcome ("value", "cancelled", or "timeout").
func RecordFutureOutcome(outcome string) {
	if m := globalMetrics.Load(); m != nil {
		m.FutureOutcomes.WithLabelValues(outcome).Inc()
	}
}
