package memfs

import (
	iofs "io/fs"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"

	"github.com/justyntemme/salpanel/internal/debug"
)

// Import copies the shape of the disk tree under root into the volume at
// "/". File contents are not read; only names, sizes and times are kept.
// Entries that cannot be stat'ed are skipped.
func (v *Volume) Import(root string) (files, dirs int, err error) {
	root = filepath.Clean(root)
	var mu sync.Mutex
	conf := &fastwalk.Config{Follow: false}

	err = fastwalk.Walk(conf, root, func(path string, d iofs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			debug.Log(debug.PLUGIN, "memfs: import skips %s: %v", path, err)
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil || rel == "." {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")

		// fastwalk calls back from several goroutines
		mu.Lock()
		defer mu.Unlock()
		v.mu.Lock()
		defer v.mu.Unlock()
		if d.IsDir() {
			n := v.mkdirs(parts)
			n.modTime = info.ModTime()
			dirs++
			return nil
		}
		parent := v.mkdirs(parts[:len(parts)-1])
		name := parts[len(parts)-1]
		parent.children[name] = &node{name: name, size: uint64(info.Size()), modTime: info.ModTime()}
		files++
		return nil
	})
	return files, dirs, err
}
