package location

import (
	"errors"
	"os"
	"strings"
	"syscall"

	"github.com/justyntemme/salpanel/internal/debug"
	"github.com/justyntemme/salpanel/internal/fs"
)

// ArchiveRecognizer tells archives from plain files.
type ArchiveRecognizer interface {
	IsArchive(path string) bool
}

// FSNameRegistry tells registered plugin filesystem names apart.
type FSNameRegistry interface {
	IsPluginFSName(name string) bool
}

// Classifier turns user input into a Location.
type Classifier struct {
	Archives ArchiveRecognizer
	Plugins  FSNameRegistry
	Stat     func(string) (os.FileInfo, error) // os.Stat when nil
}

func (c *Classifier) stat(p string) (os.FileInfo, error) {
	if c.Stat != nil {
		return c.Stat(p)
	}
	return os.Stat(p)
}

// MaxInputLen is the limit on any path handed to the navigator.
const MaxInputLen = 2*fs.MaxPath - 2

// Classify resolves input relative to base (a disk path, may be empty) and
// returns the location it denotes.
func (c *Classifier) Classify(input, base string) (Location, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fs.ErrInvalidPath
	}
	if len(input) >= MaxInputLen {
		return nil, fs.ErrPathTooLong
	}

	if name, user, ok := SplitFSPath(input); ok && c.Plugins != nil && c.Plugins.IsPluginFSName(name) {
		debug.Log(debug.PANEL, "Classify: %q is plugin fs %q", input, name)
		return PluginFS{FSName: name, UserPart: user}, nil
	}

	full, err := fs.GetFullName(input, base)
	if err != nil {
		return nil, err
	}
	if c.Archives != nil {
		if file, inner, ok := c.SplitArchivePath(full); ok {
			debug.Log(debug.PANEL, "Classify: %q is archive %q inner %q", input, file, inner)
			return Archive{File: file, Inner: inner}, nil
		}
	}
	return Disk{Path: full}, nil
}

// SplitArchivePath finds the longest prefix of path that is an existing
// regular file recognized as an archive.
func (c *Classifier) SplitArchivePath(path string) (file, inner string, ok bool) {
	cur := fs.Clean(path)
	var rest []string
	for {
		info, err := c.stat(cur)
		if err == nil {
			if info.IsDir() || !c.Archives.IsArchive(cur) {
				return "", "", false
			}
			for i, j := 0, len(rest)-1; i < j; i, j = i+1, j-1 {
				rest[i], rest[j] = rest[j], rest[i]
			}
			return cur, strings.Join(rest, "/"), true
		}
		if !errors.Is(err, os.ErrNotExist) && !errors.Is(err, fs.ErrNotDirectory) && !isNotDir(err) {
			return "", "", false
		}
		parent, cut, more := fs.CutDirectory(cur)
		if !more {
			return "", "", false
		}
		rest = append(rest, cut)
		cur = parent
	}
}

// isNotDir catches ENOTDIR from stat'ing a path below a regular file.
func isNotDir(err error) bool {
	return errors.Is(err, syscall.ENOTDIR)
}

// SplitFSPath splits "name:user" when name is at least two characters of
// letters, digits, '_' or '-'. A single letter is a drive.
func SplitFSPath(p string) (name, user string, ok bool) {
	i := strings.IndexByte(p, ':')
	if i < 2 {
		return "", "", false
	}
	for j := 0; j < i; j++ {
		c := p[j]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '-') {
			return "", "", false
		}
	}
	return p[:i], p[i+1:], true
}
