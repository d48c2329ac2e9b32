package archive

import (
	"os"
	"time"
)

// Stamp records the size and modification time of an archive at open time.
type Stamp struct {
	ModTime time.Time
	Size    int64
}

// StatStamp reads the current stamp of path.
func StatStamp(path string) (Stamp, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Stamp{}, err
	}
	return Stamp{ModTime: info.ModTime(), Size: info.Size()}, nil
}

// Changed reports whether the archive was modified between two stamps.
func Changed(old, cur Stamp) bool {
	return old.Size != cur.Size || !old.ModTime.Equal(cur.ModTime)
}
