//go:build !windows

package fs

import (
	"errors"
	"syscall"
)

// ENOMEDIUM is what Linux reports for an empty removable drive.
func isNotReady(err error) bool {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.Errno(123) // ENOMEDIUM
	}
	return false
}

func isRemoteDrive(root string) bool { return false }
