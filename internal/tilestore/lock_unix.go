//go:build !windows

package tilestore

import "golang.org/x/sys/unix"

// flockExclusive takes an advisory, blocking exclusive lock on fd, used to
// serialize header mutations across processes sharing a swap file
// (spec.md §4.2, §5).
func flockExclusive(fd uintptr) error {
	return unix.Flock(int(fd), unix.LOCK_EX)
}

// funlock releases a lock taken by flockExclusive.
func funlock(fd uintptr) error {
	return unix.Flock(int(fd), unix.LOCK_UN)
}
