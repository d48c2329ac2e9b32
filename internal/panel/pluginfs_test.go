package panel

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/salpanel/internal/location"
	"github.com/justyntemme/salpanel/internal/pluginfs"
	"github.com/justyntemme/salpanel/internal/pluginfs/memfs"
)

type fsHarness struct {
	*harness
	plugin *memfs.Plugin
	vol    *memfs.Volume
	reg    *pluginfs.Registry
}

func newFSHarness(t *testing.T, settings Settings, b memfs.Behavior, names ...string) *fsHarness {
	t.Helper()
	vol := memfs.NewVolume()
	vol.MkdirAll("/a/b")
	vol.MkdirAll("/a/c")
	vol.WriteFile("/a/b/file.txt", 12)
	vol.WriteFile("/top.txt", 1)

	plugin := memfs.New(vol, names...)
	plugin.Behavior = b
	reg := pluginfs.NewRegistry()
	require.NoError(t, reg.Register(plugin))

	h := newHarness(t, settings, func(d *Deps) { d.Plugins = reg })
	h.disk.mkdir(`C:\A`)
	h.goTo(t, `C:\A`)
	return &fsHarness{harness: h, plugin: plugin, vol: vol, reg: reg}
}

func (h *fsHarness) session(t *testing.T) *memfs.FS {
	t.Helper()
	s := h.p.Session()
	require.NotNil(t, s)
	return s.FS.(*memfs.FS)
}

func (h *fsHarness) open(t *testing.T, user string) {
	t.Helper()
	res := h.p.ChangePathToPluginFS(context.Background(), "mem", user, NewOptions())
	require.True(t, res.OK, "ChangePathToPluginFS(%q): %s", user, res)
}

func TestChangePathToPluginFSOpensSession(t *testing.T) {
	h := newFSHarness(t, Settings{}, memfs.Behavior{})

	res := h.p.ChangePathToPluginFS(context.Background(), "mem", "/a", NewOptions())
	require.True(t, res.OK, res.String())
	assert.Equal(t, location.PluginFS{FSName: "mem", UserPart: "/a"}, h.p.Location())
	assert.Equal(t, `C:\A`, h.p.GetPath())
	assert.Equal(t, "mem:/a", h.p.GeneralPath())
	assert.Equal(t, []string{"..", "b", "c"}, h.p.Listing().Names())
	assert.Equal(t, pluginfs.IconsSimple, h.p.IconsType())
	assert.Equal(t, []pluginfs.EventKind{pluginfs.EventOpened, pluginfs.EventPathChanged}, h.session(t).EventLog())
	assert.Equal(t, 1, h.plugin.OpenCount())
	_, ok := h.p.FreeSpace()
	assert.False(t, ok)
}

func TestChangePathToPluginFSSamePathIsNoChange(t *testing.T) {
	h := newFSHarness(t, Settings{}, memfs.Behavior{})
	h.open(t, "/a")
	gen := h.p.Generation()

	res := h.p.ChangePathToPluginFS(context.Background(), "MEM", "/a", NewOptions())
	assert.True(t, res.OK)
	assert.True(t, res.NoChange)
	assert.Equal(t, gen, h.p.Generation())
	assert.Equal(t, 1, h.plugin.OpenCount())
}

func TestChangePathToPluginFSSamePathKeepsScroll(t *testing.T) {
	h := newFSHarness(t, Settings{}, memfs.Behavior{})
	h.vol.MkdirAll("/big")
	for i := 0; i < 100; i++ {
		h.vol.WriteFile(fmt.Sprintf("/big/f%03d.txt", i), 1)
	}
	h.open(t, "/big")
	h.p.RefreshListBox(NoTopIndex, 40, 45, false, false)
	require.Equal(t, 40, h.box.TopIndex())

	res := h.p.ChangePathToPluginFS(context.Background(), "mem", "/big", NewOptions())
	assert.True(t, res.OK)
	assert.True(t, res.NoChange)
	assert.Equal(t, 40, h.box.TopIndex())
	assert.Equal(t, 45, h.box.Focus())
}

func TestChangePathToPluginFSShortens(t *testing.T) {
	testCases := []struct {
		name     string
		behavior memfs.Behavior
		target   string
		opts     func(Options) Options
		reason   FailReason
		expected string
		focus    string
	}{
		{
			name:     "missing directory",
			target:   "/a/zzz/q",
			reason:   ShorterPathUsed,
			expected: "/a",
		},
		{
			name:     "unlistable directory",
			behavior: memfs.Behavior{ListErrors: map[string]error{"/a/b": memfs.ErrOffline}},
			target:   "/a/b",
			reason:   ShorterPathUsed,
			expected: "/a",
		},
		{
			name:   "typed file name is focused",
			target: "/a/b/file.txt",
			opts: func(o Options) Options {
				o.Mode = pluginfs.ModeUserInput
				o.CanFocusFileName = true
				return o
			},
			reason:   FileNameWasFocusedInstead,
			expected: "/a/b",
			focus:    "file.txt",
		},
		{
			name:   "file name outside user input is not focused",
			target: "/a/b/file.txt",
			opts: func(o Options) Options {
				o.CanFocusFileName = true
				return o
			},
			reason:   ShorterPathUsed,
			expected: "/a/b",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := newFSHarness(t, Settings{}, tc.behavior)
			opts := NewOptions()
			if tc.opts != nil {
				opts = tc.opts(opts)
			}
			res := h.p.ChangePathToPluginFS(context.Background(), "mem", tc.target, opts)
			assert.False(t, res.OK)
			assert.Equal(t, tc.reason, res.Reason)
			assert.Equal(t, tc.focus, res.FocusName)
			assert.Equal(t, tc.expected, h.p.Location().(location.PluginFS).UserPart)
			if tc.focus != "" {
				assert.Equal(t, h.index(t, tc.focus), h.box.Focus())
			}
		})
	}
}

func TestChangePathToPluginFSNameSwitch(t *testing.T) {
	t.Run("own name", func(t *testing.T) {
		h := newFSHarness(t, Settings{}, memfs.Behavior{SwitchFSName: map[string]string{"/a": "mem2"}}, "mem", "mem2")
		h.open(t, "/a")
		assert.Equal(t, location.PluginFS{FSName: "mem2", FSNameIndex: 1, UserPart: "/a"}, h.p.Location())
		assert.True(t, h.p.Session().IsFSName("mem2"))
	})

	t.Run("foreign name", func(t *testing.T) {
		h := newFSHarness(t, Settings{}, memfs.Behavior{ForeignFSName: map[string]string{"/a": "other"}})
		require.NoError(t, h.reg.Register(memfs.New(nil, "other")))

		res := h.p.ChangePathToPluginFS(context.Background(), "mem", "/a", NewOptions())
		assert.Equal(t, InvalidPath, res.Reason)
		assert.Equal(t, location.Disk{Path: `C:\A`}, h.p.Location())
		assert.Zero(t, h.plugin.OpenCount())
		assert.Equal(t, 1, h.plugin.Closed)
	})
}

func TestPluginIconsWithoutDataDegrade(t *testing.T) {
	h := newFSHarness(t, Settings{}, memfs.Behavior{NoPluginData: true})
	h.open(t, "/a")
	assert.Equal(t, pluginfs.IconsSimple, h.p.IconsType())
}

func TestChangePathToPluginFSOpenFailures(t *testing.T) {
	testCases := []struct {
		name  string
		setup func(h *fsHarness)
		fs    string
	}{
		{"unknown fs name", func(*fsHarness) {}, "nope"},
		{"plugin refuses to open", func(h *fsHarness) { h.plugin.OpenErr = memfs.ErrOffline }, "mem"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := newFSHarness(t, Settings{}, memfs.Behavior{})
			tc.setup(h)
			gen := h.p.Generation()

			res := h.p.ChangePathToPluginFS(context.Background(), tc.fs, "/a", NewOptions())
			assert.Equal(t, InvalidPath, res.Reason)
			assert.True(t, res.NoChange)
			assert.Equal(t, location.KindDisk, h.p.Kind())
			assert.Equal(t, gen, h.p.Generation())
			assert.Len(t, h.prompt.errors, 1)
		})
	}
}

func TestPrepareCloseCurrentPath(t *testing.T) {
	testCases := []struct {
		name      string
		behavior  memfs.Behavior
		canForce  bool
		canDetach bool
		confirm   bool
		closable  bool
		detach    bool
	}{
		{"closes", memfs.Behavior{}, false, true, false, true, false},
		{"refuses", memfs.Behavior{RefuseClose: true}, false, true, false, false, false},
		{"detaches", memfs.Behavior{DetachOnClose: true}, false, true, false, true, true},
		{"detach not allowed", memfs.Behavior{DetachOnClose: true}, false, false, false, true, false},
		{"forced after confirmation", memfs.Behavior{RefuseClose: true}, true, true, true, true, false},
		{"force declined", memfs.Behavior{RefuseClose: true}, true, true, false, false, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := newFSHarness(t, Settings{}, tc.behavior)
			h.open(t, "/a")
			h.prompt.forceClose = tc.confirm
			loc, gen := h.p.Location(), h.p.Generation()

			closable, detach := h.p.PrepareCloseCurrentPath(context.Background(), tc.canForce, tc.canDetach, pluginfs.ReasonChangePath)
			assert.Equal(t, tc.closable, closable)
			assert.Equal(t, tc.detach, detach)
			// asking changes nothing
			assert.Equal(t, loc, h.p.Location())
			assert.Equal(t, gen, h.p.Generation())
			assert.Equal(t, 1, h.plugin.OpenCount())
		})
	}
}

func TestRefusedCloseLeavesPanelUntouched(t *testing.T) {
	h := newFSHarness(t, Settings{}, memfs.Behavior{RefuseClose: true})
	h.open(t, "/a")
	f := h.session(t)
	h.p.SetUserWorkedOnThisPath(true)
	h.p.TopIndexMemory().Push(`C:\A`, 3)
	loc, gen, hist := h.p.Location(), h.p.Generation(), h.hist.Len()

	res := h.p.ChangePathToDisk(context.Background(), `C:\A`, NewOptions())
	assert.Equal(t, CannotClosePath, res.Reason)
	assert.True(t, res.NoChange)
	assert.Equal(t, loc, h.p.Location())
	assert.Equal(t, gen, h.p.Generation())
	assert.Equal(t, hist, h.hist.Len())
	assert.Equal(t, 1, h.p.TopIndexMemory().Len())
	assert.True(t, h.p.UserWorkedOnThisPath())

	// a forced close goes through once confirmed
	h.prompt.forceClose = true
	opts := NewOptions()
	opts.CanForce = true
	res = h.p.ChangePathToDisk(context.Background(), `C:\A`, opts)
	require.True(t, res.OK, res.String())
	assert.Equal(t, 1, h.plugin.Closed)
	assert.Equal(t, 1, f.Released)
	// the worked-on fs path went to history
	require.Equal(t, 1, h.hist.Len())
	assert.Equal(t, "mem", h.hist.Entries()[0].Primary)
	assert.Equal(t, "/a", h.hist.Entries()[0].Secondary)
}

func TestDetachAndAttach(t *testing.T) {
	h := newFSHarness(t, Settings{}, memfs.Behavior{DetachOnClose: true})
	h.open(t, "/a/b")
	f := h.session(t)
	id := h.p.Session().ID

	h.goTo(t, `C:\A`)
	require.Equal(t, 1, h.p.deps.Detached.Len())
	assert.Contains(t, f.EventLog(), pluginfs.EventDetached)
	assert.Zero(t, f.Released)
	assert.Equal(t, 1, h.plugin.OpenCount())

	res := h.p.ChangePathToDetachedFS(context.Background(), 0, "", "", NewOptions())
	require.True(t, res.OK, res.String())
	assert.Equal(t, id, h.p.Session().ID)
	assert.Equal(t, "/a/b", h.p.Location().(location.PluginFS).UserPart)
	assert.Zero(t, h.p.deps.Detached.Len())
	events := f.EventLog()
	assert.Equal(t, []pluginfs.EventKind{pluginfs.EventAttached, pluginfs.EventPathChanged}, events[len(events)-2:])
	assert.Equal(t, []string{"..", "file.txt"}, h.p.Listing().Names())
}

func TestAttachToNewPath(t *testing.T) {
	h := newFSHarness(t, Settings{}, memfs.Behavior{DetachOnClose: true})
	h.open(t, "/a/b")
	h.goTo(t, `C:\A`)

	res := h.p.ChangePathToDetachedFS(context.Background(), 0, "mem", "/a/c", NewOptions())
	require.True(t, res.OK, res.String())
	assert.Equal(t, "/a/c", h.p.Location().(location.PluginFS).UserPart)
}

func TestAttachFailure(t *testing.T) {
	testCases := []struct {
		name     string
		refuse   bool
		confirm  bool
		detached int
		closed   int
	}{
		{"unusable session is closed", false, false, 0, 1},
		{"refused close keeps it detached", true, false, 1, 0},
		{"forced close after confirmation", true, true, 0, 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := newFSHarness(t, Settings{}, memfs.Behavior{DetachOnClose: true})
			h.open(t, "/a/b")
			f := h.session(t)
			h.goTo(t, `C:\A`)

			f.SetBehavior(memfs.Behavior{ChangePathFail: true, RefuseClose: tc.refuse})
			h.prompt.forceClose = tc.confirm

			res := h.p.ChangePathToDetachedFS(context.Background(), 0, "", "", NewOptions())
			assert.Equal(t, InvalidPath, res.Reason)
			assert.Equal(t, location.Disk{Path: `C:\A`}, h.p.Location())
			assert.Equal(t, tc.detached, h.p.deps.Detached.Len())
			assert.Equal(t, tc.closed, h.plugin.Closed)
		})
	}
}

func TestAttachInvalidIndex(t *testing.T) {
	h := newFSHarness(t, Settings{}, memfs.Behavior{})
	res := h.p.ChangePathToDetachedFS(context.Background(), 3, "", "", NewOptions())
	assert.Equal(t, InvalidPath, res.Reason)
	assert.True(t, res.NoChange)
}

func TestSameFSUnlistableSubdirKeepsFocus(t *testing.T) {
	h := newFSHarness(t, Settings{}, memfs.Behavior{ListErrors: map[string]error{"/a/c": memfs.ErrOffline}})
	h.open(t, "/a")
	c := h.index(t, "c")
	h.box.SetFocus(c)

	res := h.p.Execute(context.Background(), c)
	assert.Equal(t, ShorterPathUsed, res.Reason)
	assert.Equal(t, "/a", h.p.Location().(location.PluginFS).UserPart)
	assert.Equal(t, c, h.box.Focus())
}

func TestSameFSShortenedToShownPathKeepsListing(t *testing.T) {
	h := newFSHarness(t, Settings{KeepOldFSListing: true}, memfs.Behavior{})
	h.open(t, "/a")
	gen := h.p.Generation()

	res := h.p.ChangePathToPluginFS(context.Background(), "mem", "/a/missing", NewOptions())
	assert.Equal(t, ShorterPathUsed, res.Reason)
	assert.True(t, res.NoChange)
	assert.Equal(t, gen, h.p.Generation())
}

func TestSameFSFailureFallsBackToDisk(t *testing.T) {
	h := newFSHarness(t, Settings{}, memfs.Behavior{})
	h.open(t, "/a")
	h.session(t).SetBehavior(memfs.Behavior{ChangePathFail: true})

	res := h.p.ChangePathToPluginFS(context.Background(), "mem", "/a/c", NewOptions())
	assert.Equal(t, InvalidPath, res.Reason)
	assert.Equal(t, location.KindDisk, h.p.Kind())
	assert.Equal(t, `C:\`, h.p.GetPath())
	assert.Equal(t, 1, h.plugin.Closed)
}

func TestExecuteOnPluginFS(t *testing.T) {
	h := newFSHarness(t, Settings{}, memfs.Behavior{})
	h.open(t, "/a")

	res := h.p.Execute(context.Background(), h.index(t, "b"))
	require.True(t, res.OK, res.String())
	assert.Equal(t, "/a/b", h.p.Location().(location.PluginFS).UserPart)

	res = h.p.Execute(context.Background(), h.index(t, "file.txt"))
	assert.True(t, res.NoChange)
	assert.True(t, h.p.UserWorkedOnThisPath())

	res = h.p.Execute(context.Background(), h.index(t, ".."))
	require.True(t, res.OK, res.String())
	assert.Equal(t, "/a", h.p.Location().(location.PluginFS).UserPart)
	assert.Equal(t, h.index(t, "b"), h.box.Focus())
	// the worked-on directory was remembered when it was left
	require.NotZero(t, h.hist.Len())
	assert.Equal(t, "/a/b", h.hist.Entries()[0].Secondary)
}

func TestRefreshOnPluginFS(t *testing.T) {
	h := newFSHarness(t, Settings{}, memfs.Behavior{})
	h.open(t, "/a")
	h.vol.WriteFile("/a/new.txt", 3)

	require.True(t, h.p.RefreshDirectory(context.Background()))
	assert.Equal(t, []string{"..", "b", "c", "new.txt"}, h.p.Listing().Names())
}

func TestCutUserPart(t *testing.T) {
	testCases := []struct {
		user   string
		parent string
		ok     bool
	}{
		{"/a/b", "/a", true},
		{"/a/b/", "/a", true},
		{"/a", "/", true},
		{"/", "/", false},
		{"single", "", false},
		{`\x\y`, `\x`, true},
	}
	for _, tc := range testCases {
		t.Run(tc.user, func(t *testing.T) {
			parent, ok := cutUserPart(tc.user)
			assert.Equal(t, tc.ok, ok)
			if ok {
				assert.Equal(t, tc.parent, parent)
			}
		})
	}
}

func TestChangePathDispatches(t *testing.T) {
	h := newFSHarness(t, Settings{}, memfs.Behavior{})

	res := h.p.ChangePath(context.Background(), `mem:\a\c`, NewOptions())
	require.True(t, res.OK, res.String())
	assert.Equal(t, "mem:/a/c", h.p.GeneralPath())

	res = h.p.ChangePath(context.Background(), `C:\A`, NewOptions())
	require.True(t, res.OK, res.String())
	assert.Equal(t, location.KindDisk, h.p.Kind())

	res = h.p.ChangePath(context.Background(), "", NewOptions())
	assert.Equal(t, InvalidPath, res.Reason)
}
