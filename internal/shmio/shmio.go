// Package shmio wraps the POSIX shared-memory syscalls (shm_open,
// ftruncate, mmap, munmap, shm_unlink) behind a small platform-neutral
// interface. It is internal: callers use shm.Manager, which
// adds name validation, header placement, and refcounting on top.
package shmio

import "github.com/adred-codev/shmsync/status"

// Segment is a mapped region backing one named shared-memory object.
type Segment struct {
	Bytes []byte
	name  string
	size  int
}

// Open maps (creating if necessary) a segment of the given total size
// (header + payload) under name. If the backing object already exists
// with a different size, it is truncated/extended to size.
func Open(name string, size int) (*Segment, *status.Status) {
	return open(name, size)
}

// Close unmaps the segment without unlinking the backing object, leaving
// it available for other processes that still hold it open.
func (s *Segment) Close() *status.Status {
	return closeSegment(s)
}

// Unlink removes the named backing object so no further Open calls can
// find it. Existing mappings (including this one, until Close) remain
// valid: POSIX shared memory, like any file, survives unlink until the
// last reference is dropped.
func Unlink(name string) *status.Status {
	return unlink(name)
}
