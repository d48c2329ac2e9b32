package fs

import (
	"strings"

	"github.com/shirou/gopsutil/v4/disk"
)

// DriveType classifies a volume root.
type DriveType int

const (
	DriveUnknown DriveType = iota
	DriveNoRootDir
	DriveRemovable
	DriveFixed
	DriveRemote
	DriveCDROM
	DriveRAMDisk
)

func (t DriveType) String() string {
	switch t {
	case DriveNoRootDir:
		return "no-root"
	case DriveRemovable:
		return "removable"
	case DriveFixed:
		return "fixed"
	case DriveRemote:
		return "remote"
	case DriveCDROM:
		return "cdrom"
	case DriveRAMDisk:
		return "ramdisk"
	}
	return "unknown"
}

// Drive represents a mounted drive/volume
type Drive struct {
	Name string
	Path string
	Type DriveType
}

// DriveLister answers the drive questions the fallback navigator asks.
type DriveLister interface {
	// SystemDrive returns the root of the drive holding the OS.
	SystemDrive() (string, bool)
	// FixedDrives returns fixed drive roots in letter (or mount) order.
	FixedDrives() []string
	DriveType(root string) DriveType
	// MountRoot returns the mount point containing path.
	MountRoot(path string) (string, bool)
}

// OSDrives is the DriveLister for the running system.
type OSDrives struct{}

var _ DriveLister = OSDrives{}

// FreeSpace returns the bytes available to the caller on the volume of path.
func FreeSpace(path string) (uint64, error) {
	u, err := disk.Usage(path)
	if err != nil {
		return 0, classify(err)
	}
	return u.Free, nil
}

// FirstFixedDrive returns the system drive when it is fixed, else the first
// fixed drive.
func FirstFixedDrive(d DriveLister) (string, bool) {
	if sys, ok := d.SystemDrive(); ok && d.DriveType(sys) == DriveFixed {
		return sys, true
	}
	if fixed := d.FixedDrives(); len(fixed) > 0 {
		return fixed[0], true
	}
	return "", false
}

var remoteFSTypes = map[string]bool{
	"nfs": true, "nfs4": true, "cifs": true, "smbfs": true, "smb3": true,
	"fuse.sshfs": true, "afpfs": true, "9p": true,
}

var virtualFSTypes = map[string]bool{
	"proc": true, "sysfs": true, "devtmpfs": true, "devpts": true, "cgroup": true,
	"cgroup2": true, "securityfs": true, "debugfs": true, "tracefs": true,
	"overlay": true, "squashfs": true, "autofs": true, "mqueue": true,
	"pstore": true, "bpf": true, "configfs": true, "fusectl": true, "devfs": true,
	"hugetlbfs": true, "binfmt_misc": true, "nsfs": true,
}

// partitionType guesses a drive type from a gopsutil partition.
func partitionType(p disk.PartitionStat) DriveType {
	fstype := strings.ToLower(p.Fstype)
	switch {
	case remoteFSTypes[fstype]:
		return DriveRemote
	case fstype == "iso9660" || fstype == "udf" || fstype == "cd9660":
		return DriveCDROM
	case fstype == "tmpfs" || fstype == "ramfs":
		return DriveRAMDisk
	case virtualFSTypes[fstype]:
		return DriveUnknown
	case strings.HasPrefix(p.Mountpoint, "/media/") || strings.HasPrefix(p.Mountpoint, "/run/media/") ||
		strings.HasPrefix(p.Mountpoint, "/Volumes/"):
		return DriveRemovable
	}
	return DriveFixed
}

// mountFor returns the longest mount point that contains path.
func mountFor(parts []disk.PartitionStat, path string) (disk.PartitionStat, bool) {
	var best disk.PartitionStat
	found := false
	for _, p := range parts {
		mp := p.Mountpoint
		if mp == "" {
			continue
		}
		if !(IsTheSamePath(mp, path) || strings.HasPrefix(Clean(path), strings.TrimRight(Clean(mp), `/\`)+string(Sep(mp)))) {
			continue
		}
		if !found || len(mp) > len(best.Mountpoint) {
			best, found = p, true
		}
	}
	return best, found
}
