package view

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/justyntemme/salpanel/internal/listing"
)

// Status is the information line under a panel.
type Status struct {
	Path          string
	Dirs          int
	Files         int
	Selected      int
	SelectedBytes uint64
	TotalBytes    uint64
	FreeBytes     uint64
	HasFreeSpace  bool
}

// StatusSink receives status updates after every refresh.
type StatusSink interface {
	SetStatus(s Status)
}

// StatusOf summarizes l; ".." is not counted.
func StatusOf(path string, l *listing.Listing) Status {
	s := Status{Path: path}
	if l == nil {
		return s
	}
	s.Dirs = len(l.Dirs)
	if l.HasUpDir() {
		s.Dirs--
	}
	s.Files = len(l.Files)
	s.Selected, s.SelectedBytes = l.SelectedCount()
	s.TotalBytes = l.TotalSize()
	return s
}

func (s Status) String() string {
	var line string
	if s.Selected > 0 {
		line = fmt.Sprintf("%s in %d selected", humanize.IBytes(s.SelectedBytes), s.Selected)
	} else {
		line = fmt.Sprintf("%s in %d files, %d dirs", humanize.IBytes(s.TotalBytes), s.Files, s.Dirs)
	}
	if s.HasFreeSpace {
		line += fmt.Sprintf(", %s free", humanize.IBytes(s.FreeBytes))
	}
	return line
}

// StatusRecorder keeps the last status it was given.
type StatusRecorder struct {
	Last  Status
	Calls int
}

func (r *StatusRecorder) SetStatus(s Status) {
	r.Last = s
	r.Calls++
}
