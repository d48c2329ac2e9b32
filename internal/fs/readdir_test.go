//go:build !windows

package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub", "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "deep.txt"), []byte("x"), 0o644))

	l, err := ReadDir(dir)
	require.NoError(t, err)
	require.Equal(t, 3, l.Count())
	assert.True(t, l.HasUpDir())

	idx, exact := l.Find("a.txt")
	require.GreaterOrEqual(t, idx, 0)
	assert.True(t, exact)
	assert.Equal(t, uint64(5), l.At(idx).Size)
	assert.Equal(t, "txt", l.At(idx).Extension())
	assert.NotNil(t, l.FindDir("sub"))

	_, found := l.Find("deep.txt")
	assert.False(t, found, "nested entries must not be listed")
}

func TestReadDirErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := ReadDir(filepath.Join(dir, "nope"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	file := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = ReadDir(file)
	assert.ErrorIs(t, err, ErrNotDirectory)
}

func TestReadDirAccessDenied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	dir := t.TempDir()
	locked := filepath.Join(dir, "locked")
	require.NoError(t, os.Mkdir(locked, 0o000))
	t.Cleanup(func() { os.Chmod(locked, 0o755) })

	_, err := ReadDir(locked)
	assert.ErrorIs(t, err, ErrAccessDenied)
}
