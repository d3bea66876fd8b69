// Package status defines the realtime-safe error discipline shared by every
// synchronization primitive in this module. A Status is a small value type
// (a code plus a bounded message) that can be constructed and returned from
// a realtime thread without allocating on most paths.
package status

import "fmt"

// Code classifies the outcome of an operation. The set mirrors the
// conventional RPC status codes used throughout the corpus this module is
// built from, trimmed to the subset the synchronization core needs.
type Code int

const (
	OK Code = iota
	InvalidArgument
	AlreadyExists
	NotFound
	FailedPrecondition
	ResourceExhausted
	Cancelled
	Aborted
	DeadlineExceeded
	Internal
	Unimplemented
)

func (c Code) String() string {
	switch c {
	case OK:
		return "OK"
	case InvalidArgument:
		return "InvalidArgument"
	case AlreadyExists:
		return "AlreadyExists"
	case NotFound:
		return "NotFound"
	case FailedPrecondition:
		return "FailedPrecondition"
	case ResourceExhausted:
		return "ResourceExhausted"
	case Cancelled:
		return "Cancelled"
	case Aborted:
		return "Aborted"
	case DeadlineExceeded:
		return "DeadlineExceeded"
	case Internal:
		return "Internal"
	case Unimplemented:
		return "Unimplemented"
	default:
		return "Unknown"
	}
}

// Status is an error with a code, satisfying the standard error interface
// so it composes with fmt.Errorf("...: %w", status) and errors.As/Is.
type Status struct {
	code Code
	msg  string
}

// New builds a Status. It allocates only the Status value itself (msg is
// not copied), so it is usable from a realtime thread as long as msg is a
// literal or otherwise pre-formatted string (avoid fmt.Sprintf on a
// realtime path).
func New(code Code, msg string) *Status {
	return &Status{code: code, msg: msg}
}

// Newf builds a Status with a formatted message. Not realtime-safe — it
// allocates and calls into the fmt machinery.
func Newf(code Code, format string, args ...any) *Status {
	return &Status{code: code, msg: fmt.Sprintf(format, args...)}
}

func (s *Status) Code() Code {
	if s == nil {
		return OK
	}
	return s.code
}

func (s *Status) Message() string {
	if s == nil {
		return ""
	}
	return s.msg
}

func (s *Status) Error() string {
	if s == nil {
		return "OK"
	}
	if s.msg == "" {
		return s.code.String()
	}
	return fmt.Sprintf("%s: %s", s.code.String(), s.msg)
}

// Ok reports whether s represents success. A nil Status is OK, matching
// Go's nil-error-means-success convention.
func Ok(s *Status) bool {
	return s == nil || s.code == OK
}

// Is lets errors.Is match on code alone, e.g. errors.Is(err, status.Aborted).
func (s *Status) Is(target error) bool {
	t, ok := target.(*Status)
	if !ok {
		return false
	}
	return s.Code() == t.Code()
}

// FromCode is a convenience for sentinel comparisons with errors.Is, e.g.
// status.Is(err, status.FromCode(status.Aborted)).
func FromCode(c Code) *Status {
	return &Status{code: c}
}

// Of extracts the Code carried by err, returning OK if err is nil and
// Internal if err is a non-Status error (an unexpected escape from a
// lower layer that this module did not originate).
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if s, ok := err.(*Status); ok {
		return s.Code()
	}
	var s *Status
	if As(err, &s) {
		return s.Code()
	}
	return Internal
}

// As is a tiny local wrapper so this file does not need to import the
// standard errors package solely for one call site used by Of.
func As(err error, target **Status) bool {
	type wrapper interface{ Unwrap() error }
	for err != nil {
		if s, ok := err.(*Status); ok {
			*target = s
			return true
		}
		w, ok := err.(wrapper)
		if !ok {
			return false
		}
		err = w.Unwrap()
	}
	return false
}
