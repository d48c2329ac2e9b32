package memfs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/salpanel/internal/pluginfs"
)

func sampleVolume() *Volume {
	v := NewVolume()
	v.MkdirAll("/a/b")
	v.WriteFile("/a/b/file.txt", 12)
	v.WriteFile("/top.txt", 1)
	return v
}

func open(t *testing.T, p *Plugin) *FS {
	t.Helper()
	f, err := p.OpenFS("mem", 0)
	require.NoError(t, err)
	return f.(*FS)
}

func TestChangePathModes(t *testing.T) {
	testCases := []struct {
		name    string
		path    string
		mode    int
		want    string
		cut     bool
		cutFile string
	}{
		{"exact", "/a/b", pluginfs.ModeHistory, "/a/b", false, ""},
		{"missing tail", "/a/b/x/y", pluginfs.ModeHistory, "/a/b", true, ""},
		{"file in user mode", "/a/b/file.txt", pluginfs.ModeUserInput, "/a/b", true, "file.txt"},
		{"file in history mode", "/a/b/file.txt", pluginfs.ModeHistory, "/a/b", true, ""},
		{"backslashes", `\a\b`, pluginfs.ModeRefresh, "/a/b", false, ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := open(t, New(sampleVolume()))
			res := f.ChangePath(context.Background(), pluginfs.ChangePathRequest{FSName: "mem", UserPart: tc.path, Mode: tc.mode})
			require.True(t, res.OK)
			assert.Equal(t, tc.want, res.UserPart)
			assert.Equal(t, tc.cut, res.PathWasCut)
			assert.Equal(t, tc.cutFile, res.CutFileName)
			assert.True(t, f.IsCurrentPath(0, tc.want))
		})
	}
}

func TestChangePathReportsFileInHistoryMode(t *testing.T) {
	f := open(t, New(sampleVolume()))
	f.ChangePath(context.Background(), pluginfs.ChangePathRequest{UserPart: "/a/b/file.txt", Mode: pluginfs.ModeHistory})
	assert.Contains(t, f.Messages, "/a/b/file.txt is a file")
}

func TestListCurrentPath(t *testing.T) {
	p := New(sampleVolume())
	f := open(t, p)
	require.True(t, f.ChangePath(context.Background(), pluginfs.ChangePathRequest{UserPart: "/a/b"}).OK)

	l, data, icons, err := f.ListCurrentPath(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, []string{"..", "file.txt"}, l.Names())
	assert.Equal(t, "/a/b", data)
	assert.Equal(t, pluginfs.IconsSimple, icons)

	f.SetBehavior(Behavior{ListErrors: map[string]error{"/a/b": ErrOffline}})
	_, _, _, err = f.ListCurrentPath(context.Background(), false)
	assert.ErrorIs(t, err, ErrOffline)
	assert.ErrorIs(t, err, pluginfs.ErrListFailed)
}

func TestRootHasNoUpDir(t *testing.T) {
	f := open(t, New(sampleVolume()))
	l, _, _, err := f.ListCurrentPath(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "top.txt"}, l.Names())
}

func TestTryCloseOrDetach(t *testing.T) {
	testCases := []struct {
		name      string
		behavior  Behavior
		force     bool
		canDetach bool
		ok        bool
		detach    bool
	}{
		{"plain close", Behavior{}, false, false, true, false},
		{"refuse", Behavior{RefuseClose: true}, false, true, false, false},
		{"forced", Behavior{RefuseClose: true}, true, false, true, false},
		{"refuse force", Behavior{RefuseClose: true, RefuseForce: true}, true, false, false, false},
		{"detach", Behavior{DetachOnClose: true}, false, true, true, true},
		{"detach not allowed", Behavior{DetachOnClose: true}, false, false, true, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := New(nil)
			p.Behavior = tc.behavior
			f := open(t, p)
			ok, detach := f.TryCloseOrDetach(tc.force, tc.canDetach, pluginfs.ReasonChangePath)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.detach, detach)
		})
	}
}

func TestOpenAndCloseBookkeeping(t *testing.T) {
	p := New(nil)
	f := open(t, p)
	f.Event(pluginfs.EventOpened, pluginfs.SideLeft)
	assert.Equal(t, []pluginfs.EventKind{pluginfs.EventOpened}, f.EventLog())
	assert.Equal(t, 1, p.OpenCount())
	p.CloseFS(f)
	assert.Equal(t, 0, p.OpenCount())

	p.OpenErr = errors.New("boom")
	_, err := p.OpenFS("mem", 0)
	assert.Error(t, err)
}

func TestVolumeRemove(t *testing.T) {
	v := sampleVolume()
	v.Remove("/a/b")
	assert.Nil(t, v.stat("/a/b/file.txt"))
	assert.NotNil(t, v.stat("/a"))
}

func TestVolumeImport(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs", "deep"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "a.txt"), []byte("alpha"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "top.txt"), []byte("t"), 0o644))

	v := NewVolume()
	files, dirs, err := v.Import(root)
	require.NoError(t, err)
	assert.Equal(t, 2, files)
	assert.Equal(t, 3, dirs)

	n := v.stat("/docs/a.txt")
	require.NotNil(t, n)
	assert.False(t, n.dir)
	assert.Equal(t, uint64(5), n.size)
	assert.True(t, v.stat("/docs/deep").dir)
	assert.True(t, v.stat("/empty").dir)

	_, _, err = NewVolume().Import(filepath.Join(root, "missing"))
	assert.Error(t, err)
}
