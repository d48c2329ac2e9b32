//go:build !windows

package fs

import (
	"sort"

	"github.com/shirou/gopsutil/v4/disk"

	"github.com/justyntemme/salpanel/internal/debug"
)

func partitions() []disk.PartitionStat {
	parts, err := disk.Partitions(false)
	if err != nil {
		debug.Log(debug.FS, "partitions: %v", err)
		return nil
	}
	return parts
}

// SystemDrive implements DriveLister.
func (OSDrives) SystemDrive() (string, bool) { return "/", true }

// FixedDrives implements DriveLister; "/" always comes first.
func (OSDrives) FixedDrives() []string {
	out := []string{"/"}
	var rest []string
	for _, p := range partitions() {
		if p.Mountpoint != "/" && partitionType(p) == DriveFixed {
			rest = append(rest, p.Mountpoint)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// DriveType implements DriveLister.
func (OSDrives) DriveType(root string) DriveType {
	if root == "/" {
		return DriveFixed
	}
	if p, ok := mountFor(partitions(), root); ok {
		return partitionType(p)
	}
	return DriveNoRootDir
}

// MountRoot implements DriveLister.
func (OSDrives) MountRoot(path string) (string, bool) {
	if p, ok := mountFor(partitions(), path); ok {
		return p.Mountpoint, true
	}
	return "/", true
}

// ListDrives returns mounted volumes, skipping virtual filesystems.
func ListDrives() []Drive {
	drives := []Drive{{Name: "/ (Root)", Path: "/", Type: DriveFixed}}
	seen := map[string]bool{"/": true}
	for _, p := range partitions() {
		t := partitionType(p)
		if seen[p.Mountpoint] || t == DriveUnknown {
			continue
		}
		seen[p.Mountpoint] = true
		drives = append(drives, Drive{Name: p.Mountpoint, Path: p.Mountpoint, Type: t})
	}
	return drives
}
