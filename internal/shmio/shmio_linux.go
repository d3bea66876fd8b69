//go:build linux

package shmio

import (
	"golang.org/x/sys/unix"

	"github.com/adred-codev/shmsync/status"
)

func open(name string, size int) (*Segment, *status.Status) {
	// shm_open is not directly exposed by x/sys/unix; POSIX shared memory
	// objects on Linux are ordinary files under the /dev/shm tmpfs mount,
	// so opening that path has the same effect as shm_open.
	fd, err := unix.Open(shmPath(name), unix.O_CREAT|unix.O_RDWR, 0o600)
	if err != nil {
		return nil, status.Newf(status.Internal, "open shared memory object %q: %v", name, err)
	}
	defer unix.Close(fd)

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return nil, status.Newf(status.Internal, "fstat shared memory object %q: %v", name, err)
	}
	if int(st.Size) != size {
		if err := unix.Ftruncate(fd, int64(size)); err != nil {
			return nil, status.Newf(status.Internal, "ftruncate shared memory object %q to %d: %v", name, size, err)
		}
	}

	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, status.Newf(status.Internal, "mmap shared memory object %q: %v", name, err)
	}

	return &Segment{Bytes: data, name: name, size: size}, nil
}

func closeSegment(s *Segment) *status.Status {
	if s.Bytes == nil {
		return nil
	}
	if err := unix.Munmap(s.Bytes); err != nil {
		return status.Newf(status.Internal, "munmap shared memory object %q: %v", s.name, err)
	}
	s.Bytes = nil
	return nil
}

func unlink(name string) *status.Status {
	if err := unix.Unlink(shmPath(name)); err != nil && err != unix.ENOENT {
		return status.Newf(status.Internal, "unlink shared memory object %q: %v", name, err)
	}
	return nil
}

// shmPath maps a POSIX shared-memory name (leading "/", no further "/")
// onto the conventional /dev/shm tmpfs mount Linux exposes them through.
func shmPath(name string) string {
	return "/dev/shm" + name
}
