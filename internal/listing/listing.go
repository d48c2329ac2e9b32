// Package listing holds the directory listing a panel displays and the
// generation arena that keeps background readers away from released data.
package listing

import (
	"sort"
	"strings"
	"time"
)

// UpEntryName is the synthetic entry leading back to the parent directory.
const UpEntryName = ".."

// Attr is a bit set of file attributes.
type Attr uint32

const (
	AttrReadOnly Attr = 1 << iota
	AttrHidden
	AttrSystem
	AttrDirectory
	AttrArchive
	AttrLink
)

// Entry is one file or directory of a listing.
type Entry struct {
	Name           string
	DOSName        string // short name, empty when it matches Name
	Ext            int    // offset of the extension in Name, len(Name) when none
	Size           uint64
	Attr           Attr
	ModTime        time.Time
	IsDir          bool
	Selected       bool
	CutToClipboard bool
	IconOverlay    uint8
	PluginData     any
}

// NewEntry fills in the extension offset for name.
func NewEntry(name string, isDir bool) *Entry {
	e := &Entry{Name: name, IsDir: isDir}
	if isDir {
		e.Attr |= AttrDirectory
	}
	e.Ext = extOffset(name)
	return e
}

func extOffset(name string) int {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 || name == UpEntryName {
		return len(name)
	}
	return i + 1
}

// Extension returns the part of the name after the last dot.
func (e *Entry) Extension() string {
	if e.Ext >= len(e.Name) {
		return ""
	}
	return e.Name[e.Ext:]
}

// IsUpDir reports whether e is the ".." entry.
func (e *Entry) IsUpDir() bool { return e.IsDir && e.Name == UpEntryName }

// Listing is the pair of independently sorted collections shown in a panel.
// Dirs precede Files when indexing.
type Listing struct {
	Dirs       []*Entry
	Files      []*Entry
	Generation uint64 // assigned by Arena.Install
}

// New returns an empty listing.
func New() *Listing { return &Listing{} }

// Add appends e to Dirs or Files.
func (l *Listing) Add(e *Entry) {
	if e.IsDir {
		l.Dirs = append(l.Dirs, e)
	} else {
		l.Files = append(l.Files, e)
	}
}

// AddUpDir inserts the ".." entry at Dirs[0] unless it is already there.
func (l *Listing) AddUpDir() {
	if len(l.Dirs) > 0 && l.Dirs[0].IsUpDir() {
		return
	}
	up := NewEntry(UpEntryName, true)
	l.Dirs = append([]*Entry{up}, l.Dirs...)
}

// HasUpDir reports whether the listing starts with "..".
func (l *Listing) HasUpDir() bool { return len(l.Dirs) > 0 && l.Dirs[0].IsUpDir() }

// Count returns the number of entries.
func (l *Listing) Count() int {
	if l == nil {
		return 0
	}
	return len(l.Dirs) + len(l.Files)
}

// At returns entry i, dirs first.
func (l *Listing) At(i int) *Entry {
	if l == nil || i < 0 {
		return nil
	}
	if i < len(l.Dirs) {
		return l.Dirs[i]
	}
	i -= len(l.Dirs)
	if i < len(l.Files) {
		return l.Files[i]
	}
	return nil
}

// Find looks up name, preferring an exact-case match. It returns -1 when
// nothing matches.
func (l *Listing) Find(name string) (index int, exactCase bool) {
	if l == nil || name == "" {
		return -1, false
	}
	folded := -1
	for i := 0; i < l.Count(); i++ {
		n := l.At(i).Name
		if n == name {
			return i, true
		}
		if folded < 0 && strings.EqualFold(n, name) {
			folded = i
		}
	}
	return folded, false
}

// FindDir looks for a directory only.
func (l *Listing) FindDir(name string) *Entry {
	if l == nil {
		return nil
	}
	var folded *Entry
	for _, d := range l.Dirs {
		if d.Name == name {
			return d
		}
		if folded == nil && strings.EqualFold(d.Name, name) {
			folded = d
		}
	}
	return folded
}

// SelectedCount returns the number of selected entries and their total size.
func (l *Listing) SelectedCount() (count int, size uint64) {
	if l == nil {
		return 0, 0
	}
	for i := 0; i < l.Count(); i++ {
		if e := l.At(i); e.Selected {
			count++
			if !e.IsDir {
				size += e.Size
			}
		}
	}
	return count, size
}

// TotalSize sums the file sizes.
func (l *Listing) TotalSize() uint64 {
	var n uint64
	if l == nil {
		return 0
	}
	for _, f := range l.Files {
		n += f.Size
	}
	return n
}

// SelectedNames returns the names of selected entries.
func (l *Listing) SelectedNames() []string {
	var out []string
	for i := 0; i < l.Count(); i++ {
		if e := l.At(i); e.Selected {
			out = append(out, e.Name)
		}
	}
	return out
}

// Names returns all names in display order.
func (l *Listing) Names() []string {
	out := make([]string, 0, l.Count())
	for i := 0; i < l.Count(); i++ {
		out = append(out, l.At(i).Name)
	}
	return out
}

// Clone returns a shallow copy whose slices are independent of l.
func (l *Listing) Clone() *Listing {
	if l == nil {
		return New()
	}
	c := &Listing{
		Dirs:  make([]*Entry, len(l.Dirs)),
		Files: make([]*Entry, len(l.Files)),
	}
	for i, d := range l.Dirs {
		cp := *d
		c.Dirs[i] = &cp
	}
	for i, f := range l.Files {
		cp := *f
		c.Files[i] = &cp
	}
	return c
}

// SortMode selects the ordering applied by Sort.
type SortMode int

const (
	SortByName SortMode = iota
	SortByExt
	SortByTime
	SortBySize
)

// ParseSortMode maps a config value onto a SortMode.
func ParseSortMode(s string) SortMode {
	switch strings.ToLower(s) {
	case "ext":
		return SortByExt
	case "time":
		return SortByTime
	case "size":
		return SortBySize
	}
	return SortByName
}

// Sort orders Dirs and Files separately, keeping ".." first.
func (l *Listing) Sort(mode SortMode) {
	dirs := l.Dirs
	if l.HasUpDir() {
		dirs = dirs[1:]
	}
	less := lessFunc(mode)
	sort.SliceStable(dirs, func(i, j int) bool { return less(dirs[i], dirs[j]) })
	sort.SliceStable(l.Files, func(i, j int) bool { return less(l.Files[i], l.Files[j]) })
}

func lessFunc(mode SortMode) func(a, b *Entry) bool {
	byName := func(a, b *Entry) bool {
		la, lb := strings.ToLower(a.Name), strings.ToLower(b.Name)
		if la != lb {
			return la < lb
		}
		return a.Name < b.Name
	}
	switch mode {
	case SortByExt:
		return func(a, b *Entry) bool {
			ea, eb := strings.ToLower(a.Extension()), strings.ToLower(b.Extension())
			if ea != eb {
				return ea < eb
			}
			return byName(a, b)
		}
	case SortByTime:
		return func(a, b *Entry) bool {
			if !a.ModTime.Equal(b.ModTime) {
				return a.ModTime.After(b.ModTime)
			}
			return byName(a, b)
		}
	case SortBySize:
		return func(a, b *Entry) bool {
			if a.Size != b.Size {
				return a.Size > b.Size
			}
			return byName(a, b)
		}
	}
	return byName
}
