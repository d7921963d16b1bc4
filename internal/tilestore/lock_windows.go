//go:build windows

package tilestore

import "golang.org/x/sys/windows"

// flockExclusive takes an advisory, blocking exclusive lock on fd, used to
// serialize header mutations across processes sharing a swap file
// (spec.md §4.2, §5).
func flockExclusive(fd uintptr) error {
	ol := new(windows.Overlapped)
	return windows.LockFileEx(windows.Handle(fd), windows.LOCKFILE_EXCLUSIVE_LOCK, 0, 1, 0, ol)
}

// funlock releases a lock taken by flockExclusive.
func funlock(fd uintptr) error {
	ol := new(windows.Overlapped)
	return windows.UnlockFileEx(windows.Handle(fd), 0, 1, 0, ol)
}
