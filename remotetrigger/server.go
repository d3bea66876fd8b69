// Package remotetrigger implements a request/response pattern on top of
// two futex-backed shared-memory segments: a client posts a request
// futex, a server running a registered callback wakes, runs it, and
// posts a response futex the client is waiting on.
package remotetrigger

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/adred-codev/shmsync/clock"
	"github.com/adred-codev/shmsync/diagnostics"
	"github.com/adred-codev/shmsync/futex"
	"github.com/adred-codev/shmsync/shm"
	"github.com/adred-codev/shmsync/status"
)

// Callback is the zero-argument, zero-result function a server runs each
// time it is triggered.
type Callback func()

// Server owns the manager for both futex segments of one server id and
// runs a registered callback each time a client triggers it.
type Server struct {
	manager  *shm.Manager
	req      *shm.Writer[futex.BinaryFutex]
	res      *shm.Writer[futex.BinaryFutex]
	callback Callback

	running atomic.Bool
	wg      sync.WaitGroup
	stop    chan struct{}
}

// NewServer creates the request/response segments for serverID under m
// and registers callback.
func NewServer(m *shm.Manager, serverID string, callback Callback) (*Server, *status.Status) {
	reqName := RequestSegmentName(serverID)
	resName := ResponseSegmentName(serverID)

	if s := shm.AddSegmentNamed(m, reqName, *futex.New(false), "shmsync.futex", 0); s != nil {
		return nil, s
	}
	if s := shm.AddSegmentNamed(m, resName, *futex.New(false), "shmsync.futex", 0); s != nil {
		return nil, s
	}

	req, s := shm.OpenWriter[futex.BinaryFutex](reqName)
	if s != nil {
		return nil, s
	}
	res, s := shm.OpenWriter[futex.BinaryFutex](resName)
	if s != nil {
		req.Close()
		return nil, s
	}

	return &Server{manager: m, req: req, res: res, callback: callback, stop: make(chan struct{})}, nil
}

// Start runs the server's poll loop on the calling goroutine until Stop
// is called. It wakes at least once every ~100ms even without a request
// so that Stop is observed promptly.
func (s *Server) Start() {
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	s.run()
}

// StartAsync runs the poll loop on a new goroutine and returns
// immediately. logger recovers and records a panic in the callback
// instead of letting it take down the process.
func (s *Server) StartAsync(logger zerolog.Logger) {
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer diagnostics.RecoverPanic(logger, "remotetrigger.server", nil)
		s.run()
	}()
}

func (s *Server) run() {
	defer s.running.Store(false)
	for {
		select {
		case <-s.stop:
			return
		default:
		}
		deadline := clock.Now().Add(pollInterval)
		if st := s.req.ValuePtr().WaitUntil(deadline); st != nil {
			if status.Of(st) == status.DeadlineExceeded {
				continue
			}
			diagnostics.LogThrottled("remotetrigger.server.wait", "remote trigger server wait failed", st)
			return
		}
		if s.callback != nil {
			s.callback()
			diagnostics.RecordRemoteTriggerCallback()
		}
		if st := s.res.ValuePtr().Post(); st != nil {
			diagnostics.LogThrottled("remotetrigger.server.post", "remote trigger server failed to post response", st)
			return
		}
	}
}

// Query performs exactly one wait/callback/post cycle with a bounded
// ~100ms wait, for use when the server is not running its own loop. It
// must not be called concurrently with Start/StartAsync. It returns false
// without waiting once Stop has ended a running loop.
func (s *Server) Query() (ran bool, err *status.Status) {
	if s.callback == nil {
		return false, status.New(status.Unimplemented, "no callback registered")
	}
	select {
	case <-s.stop:
		return false, nil
	default:
	}
	deadline := clock.Now().Add(pollInterval)
	if st := s.req.ValuePtr().WaitUntil(deadline); st != nil {
		if status.Of(st) == status.DeadlineExceeded {
			return false, nil
		}
		return false, st
	}
	s.callback()
	diagnostics.RecordRemoteTriggerCallback()
	if st := s.res.ValuePtr().Post(); st != nil {
		return true, st
	}
	return true, nil
}

// Stop requests the poll loop to exit and, if it was started
// asynchronously, waits for it to do so.
func (s *Server) Stop() {
	if !s.running.Load() {
		return
	}
	select {
	case <-s.stop:
		// already closed
	default:
		close(s.stop)
	}
	s.wg.Wait()
}

// Close stops the server and releases its segment handles. It does not
// unlink the segments — that is the owning Manager's responsibility.
func (s *Server) Close() *status.Status {
	s.Stop()
	s1 := s.req.Close()
	s2 := s.res.Close()
	if s1 != nil {
		return s1
	}
	return s2
}
