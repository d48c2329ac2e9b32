//go:build windows

package fs

import (
	"golang.org/x/sys/windows"
)

// ListDrivePaths returns drive roots without touching the drives themselves.
// GetLogicalDrives returns immediately even for disconnected network drives.
func ListDrivePaths() []string {
	var paths []string
	mask, err := windows.GetLogicalDrives()
	if err != nil || mask == 0 {
		return paths
	}
	for i := 0; i < 26; i++ {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		paths = append(paths, string(rune('A'+i))+`:\`)
	}
	return paths
}

// SystemDrive implements DriveLister.
func (OSDrives) SystemDrive() (string, bool) {
	dir, err := windows.GetSystemWindowsDirectory()
	if err != nil || len(dir) < 2 || dir[1] != ':' {
		return "", false
	}
	return RootOf(dir), true
}

// FixedDrives implements DriveLister. Only C..Z are considered.
func (d OSDrives) FixedDrives() []string {
	var out []string
	for _, root := range ListDrivePaths() {
		if root[0] < 'C' {
			continue
		}
		if d.DriveType(root) == DriveFixed {
			out = append(out, root)
		}
	}
	return out
}

// DriveType implements DriveLister.
func (OSDrives) DriveType(root string) DriveType {
	p, err := windows.UTF16PtrFromString(root)
	if err != nil {
		return DriveUnknown
	}
	switch windows.GetDriveType(p) {
	case windows.DRIVE_NO_ROOT_DIR:
		return DriveNoRootDir
	case windows.DRIVE_REMOVABLE:
		return DriveRemovable
	case windows.DRIVE_FIXED:
		return DriveFixed
	case windows.DRIVE_REMOTE:
		return DriveRemote
	case windows.DRIVE_CDROM:
		return DriveCDROM
	case windows.DRIVE_RAMDISK:
		return DriveRAMDisk
	}
	return DriveUnknown
}

// MountRoot implements DriveLister via GetVolumePathName, which also
// resolves volumes mounted into a folder.
func (OSDrives) MountRoot(path string) (string, bool) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return "", false
	}
	buf := make([]uint16, windows.MAX_PATH+1)
	if err := windows.GetVolumePathName(p, &buf[0], uint32(len(buf))); err != nil {
		return "", false
	}
	return windows.UTF16ToString(buf), true
}

// ListDrives returns available drives with their types. It does not query
// volume labels, which can block on empty CD-ROM drives.
func ListDrives() []Drive {
	var drives []Drive
	for _, root := range ListDrivePaths() {
		t := OSDrives{}.DriveType(root)
		if t == DriveUnknown || t == DriveNoRootDir {
			continue
		}
		drives = append(drives, Drive{Name: root[:2], Path: root, Type: t})
	}
	return drives
}
