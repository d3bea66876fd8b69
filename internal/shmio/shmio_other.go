//go:build !linux

package shmio

import (
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/adred-codev/shmsync/status"
)

// Non-Linux builds back "shared memory" with a plain file under the OS
// temp directory and an mmap through the standard mmap syscall exposed by
// the runtime's syscall package. This is development/test scaffolding
// only: two unrelated processes on a non-Linux host will not find each
// other unless they agree on the same temp directory, and there is no
// portable futex here — rtsync's fallback wait/wake is process-local only
// regardless of this backing store.
func tempPath(name string) string {
	safe := strings.TrimPrefix(name, "/")
	safe = strings.ReplaceAll(safe, "/", "_")
	return filepath.Join(os.TempDir(), "shmsync-"+safe)
}

func open(name string, size int) (*Segment, *status.Status) {
	path := tempPath(name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, status.Newf(status.Internal, "open backing file %q: %v", path, err)
	}
	defer f.Close()

	if err := f.Truncate(int64(size)); err != nil {
		return nil, status.Newf(status.Internal, "truncate backing file %q to %d: %v", path, size, err)
	}

	data, err := syscall.Mmap(int(f.Fd()), 0, size, syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		return nil, status.Newf(status.Internal, "mmap backing file %q: %v", path, err)
	}

	return &Segment{Bytes: data, name: name, size: size}, nil
}

func closeSegment(s *Segment) *status.Status {
	if s.Bytes == nil {
		return nil
	}
	if err := syscall.Munmap(s.Bytes); err != nil {
		return status.Newf(status.Internal, "munmap backing file for %q: %v", s.name, err)
	}
	s.Bytes = nil
	return nil
}

func unlink(name string) *status.Status {
	if err := os.Remove(tempPath(name)); err != nil && !os.IsNotExist(err) {
		return status.Newf(status.Internal, "remove backing file for %q: %v", name, err)
	}
	return nil
}
