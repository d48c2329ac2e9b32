// Package location models what a panel displays: a disk directory, a
// directory inside an archive, or a path on a plugin filesystem.
package location

import (
	"fmt"
	"strings"
	"time"

	"github.com/justyntemme/salpanel/internal/fs"
)

// Kind tags the shape of a Location.
type Kind int

const (
	KindDisk Kind = iota
	KindArchive
	KindPluginFS
)

func (k Kind) String() string {
	switch k {
	case KindDisk:
		return "disk"
	case KindArchive:
		return "archive"
	case KindPluginFS:
		return "pluginfs"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Location is one of Disk, Archive or PluginFS. The set is closed; switch
// on the concrete type and panic in the default branch.
type Location interface {
	Kind() Kind
	// Key identifies the location for history and scroll memory.
	Key() string
	// Describe returns the text the user would type to get here.
	Describe() string
	isLocation()
}

// Disk is a directory on a local or network volume.
type Disk struct {
	Path string
}

// Archive is a directory inside an archive. Inner uses "/" and never has a
// leading or trailing separator; empty means the archive root.
type Archive struct {
	File    string
	Inner   string
	ModTime time.Time
	Size    int64
}

// PluginFS is a path on a plugin filesystem, UserPart in the plugin's
// internal format.
type PluginFS struct {
	FSName      string
	FSNameIndex int
	UserPart    string
}

func (Disk) Kind() Kind     { return KindDisk }
func (Archive) Kind() Kind  { return KindArchive }
func (PluginFS) Kind() Kind { return KindPluginFS }

func (Disk) isLocation()     {}
func (Archive) isLocation()  {}
func (PluginFS) isLocation() {}

func (d Disk) Key() string      { return fs.FoldKey(d.Path) }
func (d Disk) Describe() string { return d.Path }

func (a Archive) Key() string {
	return fs.FoldKey(a.File) + "|" + strings.ToLower(a.Inner)
}

func (a Archive) Describe() string { return JoinInner(a.File, a.Inner) }

func (p PluginFS) Key() string      { return strings.ToLower(p.FSName) + ":" + p.UserPart }
func (p PluginFS) Describe() string { return p.FSName + ":" + p.UserPart }

// NormalizeInner converts an archive inner path to "/" form without
// leading or trailing separators.
func NormalizeInner(inner string) string {
	inner = strings.ReplaceAll(inner, `\`, "/")
	parts := strings.FieldsFunc(inner, func(r rune) bool { return r == '/' })
	return strings.Join(parts, "/")
}

// CutInner removes the last element of an inner path.
func CutInner(inner string) (parent, cut string, ok bool) {
	inner = NormalizeInner(inner)
	if inner == "" {
		return "", "", false
	}
	i := strings.LastIndexByte(inner, '/')
	if i < 0 {
		return "", inner, true
	}
	return inner[:i], inner[i+1:], true
}

// JoinInner builds the display path of an archive location using the
// archive file's separator.
func JoinInner(file, inner string) string {
	inner = NormalizeInner(inner)
	if inner == "" {
		return file
	}
	sep := string(fs.Sep(file))
	return fs.Join(file, strings.ReplaceAll(inner, "/", sep))
}
