package shm

import (
	"strings"

	"github.com/adred-codev/shmsync/status"
)

// MaxNameLength mirrors the POSIX shm_open name length limit this module
// enforces; the kernel's real limit is implementation-defined, but 255
// matches the original's own constant.
const MaxNameLength = 255

// MaxSegmentsPerManager bounds how many segments a single manager tracks.
const MaxSegmentsPerManager = 100

// ValidateName checks a segment name against the rules every manager
// enforces on creation: must start with "/", must not exceed
// MaxNameLength bytes, must contain no further "/", and must not be empty
// beyond the leading slash.
func ValidateName(name string) *status.Status {
	if name == "" || name[0] != '/' {
		return status.Newf(status.InvalidArgument, "segment name %q must begin with '/'", name)
	}
	if len(name) > MaxNameLength {
		return status.Newf(status.InvalidArgument, "segment name %q exceeds %d bytes", name, MaxNameLength)
	}
	if len(name) == 1 {
		return status.New(status.InvalidArgument, "segment name must not be empty beyond the leading '/'")
	}
	if strings.Contains(name[1:], "/") {
		return status.Newf(status.InvalidArgument, "segment name %q must not contain '/' beyond the leading one", name)
	}
	return nil
}
