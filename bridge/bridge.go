// Package bridge provides AsyncRequest, the boundary type a non-realtime
// caller uses to enqueue work for a realtime thread to execute and
// optionally respond to. It composes a plain request value with an
// optional future.RealtimePromise, so a caller that does not need
// a response can omit the promise entirely.
package bridge

import (
	"github.com/adred-codev/shmsync/future"
	"github.com/adred-codev/shmsync/status"
)

// AsyncRequest carries a request value of type Req from a non-realtime
// caller to a realtime consumer, with an optional RealtimePromise[Resp]
// the consumer uses to deliver a response.
type AsyncRequest[Req any, Resp any] struct {
	request  Req
	taken    bool
	promise  *future.RealtimePromise[Resp]
	response Resp
}

// New builds an AsyncRequest carrying req, with no response channel.
func New[Req any, Resp any](req Req) *AsyncRequest[Req, Resp] {
	return &AsyncRequest[Req, Resp]{request: req}
}

// NewWithPromise builds an AsyncRequest carrying req whose response, if
// any, is delivered through promise.
func NewWithPromise[Req any, Resp any](req Req, promise *future.RealtimePromise[Resp]) *AsyncRequest[Req, Resp] {
	return &AsyncRequest[Req, Resp]{request: req, promise: promise}
}

// GetRequest returns the request value by copy, leaving it available for
// a later GetRequest or GetMovedRequest call.
func (r *AsyncRequest[Req, Resp]) GetRequest() Req {
	return r.request
}

// GetMovedRequest returns the request value and marks it taken. It is
// realtime-safe and meant for a consumer that wants Go's usual "consume
// once" discipline without an actual move (Go has no move semantics);
// calling it twice still returns the same value, since nothing here
// clears request — taken is advisory for callers that want to assert
// single consumption.
func (r *AsyncRequest[Req, Resp]) GetMovedRequest() Req {
	r.taken = true
	return r.request
}

// Taken reports whether GetMovedRequest has been called.
func (r *AsyncRequest[Req, Resp]) Taken() bool {
	return r.taken
}

// IsCancelled reports whether the non-realtime side has cancelled the
// associated promise (always false if no promise was attached).
func (r *AsyncRequest[Req, Resp]) IsCancelled() bool {
	if r.promise == nil {
		return false
	}
	return r.promise.IsCancelled()
}

// SetResponse delivers resp through the attached promise, if any. It is
// a no-op returning OK if this request carries no promise (a
// fire-and-forget request).
func (r *AsyncRequest[Req, Resp]) SetResponse(resp Resp) *status.Status {
	if r.promise == nil {
		return nil
	}
	r.response = resp
	return r.promise.SetValue(resp)
}

// Cancel cancels the attached promise, if any.
func (r *AsyncRequest[Req, Resp]) Cancel() *status.Status {
	if r.promise == nil {
		return nil
	}
	return r.promise.Cancel()
}
