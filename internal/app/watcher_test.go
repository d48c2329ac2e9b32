package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitNotify(t *testing.T, w *DirectoryWatcher, timeout time.Duration) (string, bool) {
	t.Helper()
	select {
	case dir := <-w.Notify():
		return dir, true
	case <-time.After(timeout):
		return "", false
	}
}

func TestDirectoryWatcherDebouncesChanges(t *testing.T) {
	dir := t.TempDir()
	w, err := NewDirectoryWatcher(50 * time.Millisecond)
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch(dir))

	for i := 0; i < 5; i++ {
		touch(t, filepath.Join(dir, "f"+string(rune('a'+i))))
	}

	got, ok := waitNotify(t, w, 5*time.Second)
	require.True(t, ok, "no notification")
	assert.Equal(t, dir, got)

	// the burst above is reported once
	_, ok = waitNotify(t, w, 300*time.Millisecond)
	assert.False(t, ok)
}

func TestDirectoryWatcherReportsRemovedDirectory(t *testing.T) {
	parent := t.TempDir()
	dir := filepath.Join(parent, "gone")
	require.NoError(t, os.Mkdir(dir, 0o755))

	w, err := NewDirectoryWatcher(20 * time.Millisecond)
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch(dir))

	require.NoError(t, os.Remove(dir))
	got, ok := waitNotify(t, w, 5*time.Second)
	require.True(t, ok, "no notification")
	assert.Equal(t, dir, got)
}

func TestDirectoryWatcherRetarget(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	w, err := NewDirectoryWatcher(20 * time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Retarget(a, "", a+string(filepath.Separator)))
	assert.Equal(t, []string{a}, w.Watching())

	require.NoError(t, w.Retarget(b))
	assert.Equal(t, []string{b}, w.Watching())

	touch(t, filepath.Join(a, "ignored"))
	touch(t, filepath.Join(b, "seen"))
	got, ok := waitNotify(t, w, 5*time.Second)
	require.True(t, ok, "no notification")
	assert.Equal(t, b, got)

	err = w.Retarget(b, filepath.Join(b, "missing"))
	assert.Error(t, err)
	assert.Equal(t, []string{b}, w.Watching())

	w.Unwatch(b)
	assert.Empty(t, w.Watching())
}
