package app

import (
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/justyntemme/salpanel/internal/debug"
	"github.com/justyntemme/salpanel/internal/logging"
)

// DefaultDebounce is used when the configured debounce is not positive.
const DefaultDebounce = 200 * time.Millisecond

// DirectoryWatcher watches the directories shown by the panels and reports
// each changed one once its events have been quiet for the debounce period.
type DirectoryWatcher struct {
	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	watching map[string]bool // cleaned paths
	notify   chan string
	done     chan struct{}
	debounce time.Duration
	log      *zap.Logger
}

// NewDirectoryWatcher starts a watcher with the given debounce.
func NewDirectoryWatcher(debounce time.Duration) (*DirectoryWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	dw := &DirectoryWatcher{
		watcher:  w,
		watching: make(map[string]bool),
		notify:   make(chan string, 10),
		done:     make(chan struct{}),
		debounce: debounce,
		log:      logging.Named("watcher"),
	}

	go dw.run()
	return dw, nil
}

// run collects events per watched directory and flushes them on a ticker.
func (dw *DirectoryWatcher) run() {
	lastEvent := make(map[string]time.Time)
	ticker := time.NewTicker(dw.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-dw.done:
			return

		case event, ok := <-dw.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Write) &&
				!event.Has(fsnotify.Chmod) {
				continue
			}
			changed := filepath.Clean(event.Name)
			parent := filepath.Dir(changed)

			dw.mu.Lock()
			switch {
			case dw.watching[parent]:
				lastEvent[parent] = time.Now()
				debug.Log(debug.APP, "FSNotify event: %s on %s", event.Op, changed)
			case dw.watching[changed]:
				// the shown directory itself was renamed, removed or chmodded
				lastEvent[changed] = time.Now()
				debug.Log(debug.APP, "FSNotify event: %s on watched dir %s", event.Op, changed)
			}
			dw.mu.Unlock()

		case err, ok := <-dw.watcher.Errors:
			if !ok {
				return
			}
			dw.log.Warn("watch error", zap.Error(err))

		case <-ticker.C:
			now := time.Now()
			for dir, at := range lastEvent {
				if now.Sub(at) < dw.debounce {
					continue
				}
				select {
				case dw.notify <- dir:
					debug.Log(debug.APP, "Directory change notification: %s", dir)
				default:
					debug.Log(debug.APP, "Directory change notification dropped: %s", dir)
				}
				delete(lastEvent, dir)
			}
		}
	}
}

// Watch adds a directory to the watch list.
func (dw *DirectoryWatcher) Watch(path string) error {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	return dw.watchLocked(filepath.Clean(path))
}

func (dw *DirectoryWatcher) watchLocked(path string) error {
	if dw.watching[path] {
		return nil
	}
	if err := dw.watcher.Add(path); err != nil {
		return err
	}
	dw.watching[path] = true
	debug.Log(debug.APP, "Now watching directory: %s", path)
	return nil
}

// Unwatch removes a directory from the watch list.
func (dw *DirectoryWatcher) Unwatch(path string) {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	dw.unwatchLocked(filepath.Clean(path))
}

func (dw *DirectoryWatcher) unwatchLocked(path string) {
	if !dw.watching[path] {
		return
	}
	if err := dw.watcher.Remove(path); err != nil {
		// the directory may already be gone
		debug.Log(debug.APP, "Error unwatching %s: %v", path, err)
	}
	delete(dw.watching, path)
	debug.Log(debug.APP, "Stopped watching directory: %s", path)
}

// Retarget makes paths the exact watch set. Paths that cannot be watched
// are skipped; the first such error is returned.
func (dw *DirectoryWatcher) Retarget(paths ...string) error {
	want := make(map[string]bool, len(paths))
	for _, p := range paths {
		if p != "" {
			want[filepath.Clean(p)] = true
		}
	}

	dw.mu.Lock()
	defer dw.mu.Unlock()
	for p := range dw.watching {
		if !want[p] {
			dw.unwatchLocked(p)
		}
	}
	var first error
	for p := range want {
		if err := dw.watchLocked(p); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Watching returns the watched directories in sorted order.
func (dw *DirectoryWatcher) Watching() []string {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	out := make([]string, 0, len(dw.watching))
	for p := range dw.watching {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Notify returns the channel that receives changed directories.
func (dw *DirectoryWatcher) Notify() <-chan string {
	return dw.notify
}

// Close shuts down the watcher.
func (dw *DirectoryWatcher) Close() error {
	close(dw.done)
	return dw.watcher.Close()
}
