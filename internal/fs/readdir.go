package fs

import (
	"errors"
	"io"
	iofs "io/fs"
	"os"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"

	"github.com/justyntemme/salpanel/internal/debug"
	"github.com/justyntemme/salpanel/internal/listing"
)

// ReadDir lists the direct children of path. A ".." entry is inserted
// unless path is a root.
func ReadDir(path string) (*listing.Listing, error) {
	debug.Log(debug.FS, "ReadDir: %q", path)

	info, err := os.Stat(path)
	if err != nil {
		return nil, classify(err)
	}
	if !info.IsDir() {
		return nil, ErrNotDirectory
	}
	// fastwalk skips unreadable roots silently, so open it once ourselves
	f, err := os.Open(path)
	if err != nil {
		return nil, classify(err)
	}
	_, err = f.Readdirnames(1)
	f.Close()
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, classify(err)
	}

	var mu sync.Mutex
	out := listing.New()
	conf := &fastwalk.Config{
		Follow: true,
	}
	pathLen := len(path)

	err = fastwalk.Walk(conf, path, func(fullPath string, d iofs.DirEntry, err error) error {
		if err != nil {
			if fullPath == path {
				return err
			}
			debug.Log(debug.FS, "ReadDir: walk error at %q: %v", fullPath, err)
			return nil
		}
		if fullPath == path {
			return nil
		}

		relStart := pathLen
		if relStart < len(fullPath) && isSep(fullPath[relStart]) {
			relStart++
		}
		if strings.ContainsAny(fullPath[relStart:], `/\`) {
			if d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}

		info, err := fastwalk.StatDirEntry(fullPath, d)
		if err != nil {
			// broken symlink
			info, err = os.Lstat(fullPath)
			if err != nil {
				debug.Log(debug.FS, "ReadDir: skipping %q: %v", d.Name(), err)
				return nil
			}
		}

		e := listing.NewEntry(d.Name(), info.IsDir())
		e.ModTime = info.ModTime()
		if !e.IsDir {
			e.Size = uint64(info.Size())
		}
		e.Attr |= attrOf(d.Name(), info)

		mu.Lock()
		out.Add(e)
		mu.Unlock()

		if d.IsDir() {
			return fastwalk.SkipDir
		}
		return nil
	})
	if err != nil {
		debug.Log(debug.FS, "ReadDir: walk error: %v", err)
		return nil, classify(err)
	}

	if !IsRoot(path) {
		out.AddUpDir()
	}
	debug.Log(debug.FS, "ReadDir: %d entries", out.Count())
	return out, nil
}

func attrOf(name string, info os.FileInfo) listing.Attr {
	var a listing.Attr
	if info.Mode()&os.ModeSymlink != 0 {
		a |= listing.AttrLink
	}
	if info.Mode().Perm()&0o200 == 0 {
		a |= listing.AttrReadOnly
	}
	if strings.HasPrefix(name, ".") {
		a |= listing.AttrHidden
	}
	return a
}
