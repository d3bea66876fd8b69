package remotetrigger

import (
	"sync/atomic"

	"github.com/adred-codev/shmsync/clock"
	"github.com/adred-codev/shmsync/diagnostics"
	"github.com/adred-codev/shmsync/futex"
	"github.com/adred-codev/shmsync/shm"
	"github.com/adred-codev/shmsync/status"
)

// Client triggers a remote server's callback and waits for it to
// complete. At most one request may be outstanding per Client at a time.
type Client struct {
	req *shm.Writer[futex.BinaryFutex]
	res *shm.Reader[futex.BinaryFutex]

	requestStarted atomic.Bool
}

// Connect opens the request/response segments for serverID, which must
// already have been created by a Server.
func Connect(serverID string) (*Client, *status.Status) {
	reqName := RequestSegmentName(serverID)
	resName := ResponseSegmentName(serverID)

	req, s := shm.OpenWriter[futex.BinaryFutex](reqName)
	if s != nil {
		return nil, s
	}
	res, s := shm.OpenReader[futex.BinaryFutex](resName)
	if s != nil {
		req.Close()
		return nil, s
	}
	return &Client{req: req, res: res}, nil
}

// IsConnected reports whether a server side is attached, judged by the
// request segment alone: writer_ref_count == 2 there, since both this
// client and the server open it as writers. The response segment is not
// checked.
func (c *Client) IsConnected() bool {
	return c.req.Header().WriterRefCount() == 2
}

// TriggerWithDeadline posts the request futex and waits for the server's
// response, or for deadline to pass. It returns AlreadyExists if another
// request from this Client is still outstanding, FailedPrecondition if
// the server side has not connected yet, and InvalidArgument if deadline
// is not in the future.
func (c *Client) TriggerWithDeadline(deadline clock.Time) *status.Status {
	if !c.IsConnected() {
		return status.New(status.FailedPrecondition, "remote trigger client is not connected to a server")
	}
	if deadline.Sub(clock.Now()) <= 0 {
		return status.New(status.InvalidArgument, "deadline must be in the future")
	}
	if !c.requestStarted.CompareAndSwap(false, true) {
		return status.New(status.AlreadyExists, "a request is already outstanding on this client")
	}
	defer c.requestStarted.Store(false)

	started := clock.Now()
	if s := c.req.ValuePtr().Post(); s != nil {
		diagnostics.RecordRemoteTriggerFailure(status.Of(s).String())
		return s
	}
	s := c.res.ValuePtr().WaitUntil(deadline)
	if status.Of(s) != status.OK {
		diagnostics.RecordRemoteTriggerFailure(status.Of(s).String())
		return s
	}
	diagnostics.RecordRemoteTriggerLatency(clock.Seconds(clock.Now().Sub(started)))
	return nil
}

// TriggerFor is TriggerWithDeadline(clock.Now() + timeout).
func (c *Client) TriggerFor(timeout clock.Duration) *status.Status {
	return c.TriggerWithDeadline(clock.Now().Add(timeout))
}

// AsyncRequest represents an in-flight trigger started via TriggerAsync;
// the caller later calls WaitUntil to learn the outcome.
type AsyncRequest struct {
	client   *Client
	deadline clock.Time
	started  clock.Time
	waited   bool
}

// TriggerAsync posts the request futex and returns immediately with a
// handle the caller waits on later. It returns FailedPrecondition if the
// server side has not connected yet and InvalidArgument if deadline is
// not in the future.
func (c *Client) TriggerAsync(deadline clock.Time) (*AsyncRequest, *status.Status) {
	if !c.IsConnected() {
		return nil, status.New(status.FailedPrecondition, "remote trigger client is not connected to a server")
	}
	if deadline.Sub(clock.Now()) <= 0 {
		return nil, status.New(status.InvalidArgument, "deadline must be in the future")
	}
	if !c.requestStarted.CompareAndSwap(false, true) {
		return nil, status.New(status.AlreadyExists, "a request is already outstanding on this client")
	}
	started := clock.Now()
	if s := c.req.ValuePtr().Post(); s != nil {
		c.requestStarted.Store(false)
		diagnostics.RecordRemoteTriggerFailure(status.Of(s).String())
		return nil, s
	}
	return &AsyncRequest{client: c, deadline: deadline, started: started}, nil
}

// WaitUntil blocks for the server's response up to the request's
// deadline (or the optionally narrower deadline argument, if earlier). It
// returns FailedPrecondition if this request has already been waited on.
func (r *AsyncRequest) WaitUntil(deadline clock.Time) *status.Status {
	if r.waited {
		return status.New(status.FailedPrecondition, "async request has already been waited on")
	}
	if deadline.Sub(r.deadline) > 0 {
		deadline = r.deadline
	}
	s := r.client.res.ValuePtr().WaitUntil(deadline)
	r.waited = true
	r.client.requestStarted.Store(false)
	if status.Of(s) != status.OK {
		diagnostics.RecordRemoteTriggerFailure(status.Of(s).String())
		return s
	}
	diagnostics.RecordRemoteTriggerLatency(clock.Seconds(clock.Now().Sub(r.started)))
	return nil
}

// Close releases the outstanding-request flag if the caller never called
// WaitUntil, the async equivalent of the original's destructor clearing
// request_started on every exit path.
func (r *AsyncRequest) Close() {
	if !r.waited {
		r.client.requestStarted.Store(false)
	}
}

// Close releases this client's handles.
func (c *Client) Close() *status.Status {
	s1 := c.req.Close()
	s2 := c.res.Close()
	if s1 != nil {
		return s1
	}
	return s2
}
