//go:build windows

package fs

import (
	"errors"

	"golang.org/x/sys/windows"
)

func isNotReady(err error) bool {
	return errors.Is(err, windows.ERROR_NOT_READY)
}

func isRemoteDrive(root string) bool {
	p, err := windows.UTF16PtrFromString(root)
	if err != nil {
		return false
	}
	return windows.GetDriveType(p) == windows.DRIVE_REMOTE
}
