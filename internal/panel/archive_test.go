package panel

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/salpanel/internal/archive"
	"github.com/justyntemme/salpanel/internal/fs"
	"github.com/justyntemme/salpanel/internal/location"
)

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	w := zip.NewWriter(f)
	for name, body := range files {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
}

var sampleMembers = map[string]string{
	"docs/a.txt":      "alpha",
	"docs/deep/b.txt": "beta",
	"top.txt":         "top",
}

type archiveHarness struct {
	*harness
	dir string
	zip string
}

// newArchiveHarness works on a real temporary directory holding x.zip and
// note.txt.
func newArchiveHarness(t *testing.T, tune ...func(*Deps)) *archiveHarness {
	t.Helper()
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "x.zip")
	writeZip(t, zipPath, sampleMembers)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "note.txt"), []byte("n"), 0o644))

	real := func(d *Deps) {
		d.Prober = &fs.OSProber{}
		d.ReadDir = fs.ReadDir
		d.Drives = fs.OSDrives{}
		d.Archives = archive.DefaultRegistry()
	}
	h := newHarness(t, Settings{}, append([]func(*Deps){real}, tune...)...)
	h.goTo(t, dir)
	return &archiveHarness{harness: h, dir: dir, zip: zipPath}
}

func (h *archiveHarness) inner(t *testing.T) string {
	t.Helper()
	loc, ok := h.p.Location().(location.Archive)
	require.True(t, ok, "panel shows %s", h.p.GeneralPath())
	return loc.Inner
}

func TestChangePathToArchiveOpens(t *testing.T) {
	h := newArchiveHarness(t)

	res := h.p.ChangePathToArchive(context.Background(), h.zip, "", NewOptions())
	require.True(t, res.OK, res.String())
	assert.False(t, res.NoChange)
	assert.Equal(t, location.KindArchive, h.p.Kind())
	assert.Equal(t, h.dir, h.p.GetPath())
	assert.Equal(t, []string{"..", "docs", "top.txt"}, h.p.Listing().Names())
	_, ok := h.p.FreeSpace()
	assert.False(t, ok)

	res = h.p.ChangePathToArchive(context.Background(), h.zip, `docs\deep\`, NewOptions())
	require.True(t, res.OK, res.String())
	assert.Equal(t, "docs/deep", h.inner(t))
	assert.Equal(t, filepath.Join(h.zip, "docs", "deep"), h.p.GeneralPath())

	// relative to the directory holding the archive
	res = h.p.ChangePathToArchive(context.Background(), "x.zip", "docs", NewOptions())
	require.True(t, res.OK, res.String())
	assert.Equal(t, "docs", h.inner(t))
}

func TestChangePathToArchiveSameInnerIsNoChange(t *testing.T) {
	h := newArchiveHarness(t)
	res := h.p.ChangePathToArchive(context.Background(), h.zip, "docs", NewOptions())
	require.True(t, res.OK)

	res = h.p.ChangePathToArchive(context.Background(), h.zip, "DOCS/", NewOptions())
	assert.True(t, res.OK)
	assert.True(t, res.NoChange)
	assert.Equal(t, "docs", h.inner(t))
}

func TestChangePathToArchiveShortens(t *testing.T) {
	testCases := []struct {
		name     string
		inner    string
		focus    bool
		reason   FailReason
		expected string
		focused  string
	}{
		{"missing directories", "docs/missing/x", false, ShorterPathUsed, "docs", ""},
		{"case is taken from the archive", "DOCS/Deep/nothing", false, ShorterPathUsed, "docs/deep", ""},
		{"file name focused", "docs/a.txt", true, FileNameWasFocusedInstead, "docs", "a.txt"},
		{"missing file is not focused", "docs/nope.txt", true, ShorterPathUsed, "docs", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := newArchiveHarness(t)
			opts := NewOptions()
			opts.CanFocusFileName = tc.focus

			res := h.p.ChangePathToArchive(context.Background(), h.zip, tc.inner, opts)
			assert.False(t, res.OK)
			assert.Equal(t, tc.reason, res.Reason)
			assert.False(t, res.NoChange)
			assert.Equal(t, tc.expected, h.inner(t))
			assert.Equal(t, tc.focused, res.FocusName)
			if tc.focused != "" {
				assert.Equal(t, h.index(t, tc.focused), h.box.Focus())
			}
		})
	}
}

func TestChangePathToArchiveShortenedBackIsNoChange(t *testing.T) {
	h := newArchiveHarness(t)
	require.True(t, h.p.ChangePathToArchive(context.Background(), h.zip, "docs", NewOptions()).OK)
	gen := h.p.Generation()

	res := h.p.ChangePathToArchive(context.Background(), h.zip, "docs/missing", NewOptions())
	assert.Equal(t, ShorterPathUsed, res.Reason)
	assert.True(t, res.NoChange)
	assert.Equal(t, gen, h.p.Generation())
}

func TestChangePathToArchiveRejectsPlainFile(t *testing.T) {
	h := newArchiveHarness(t)
	gen := h.p.Generation()

	res := h.p.ChangePathToArchive(context.Background(), filepath.Join(h.dir, "note.txt"), "", NewOptions())
	assert.Equal(t, InvalidArchive, res.Reason)
	assert.Equal(t, location.Disk{Path: h.dir}, h.p.Location())
	assert.Equal(t, gen, h.p.Generation())
	assert.Len(t, h.prompt.errors, 1)
}

func TestChangedArchiveIsReopenedOnForceUpdate(t *testing.T) {
	h := newArchiveHarness(t)
	require.True(t, h.p.ChangePathToArchive(context.Background(), h.zip, "docs", NewOptions()).OK)

	members := map[string]string{"new.txt": "fresh content"}
	for k, v := range sampleMembers {
		members[k] = v
	}
	writeZip(t, h.zip, members)

	opts := NewOptions()
	opts.ForceUpdate = true
	res := h.p.ChangePathToArchive(context.Background(), h.zip, "", opts)
	require.True(t, res.OK, res.String())
	assert.False(t, res.NoChange)
	assert.Contains(t, h.p.Listing().Names(), "new.txt")

	st, err := archive.StatStamp(h.zip)
	require.NoError(t, err)
	loc := h.p.Location().(location.Archive)
	assert.Equal(t, st.Size, loc.Size)
}

func TestDeletedArchiveFallsBackToItsDirectory(t *testing.T) {
	h := newArchiveHarness(t)
	require.True(t, h.p.ChangePathToArchive(context.Background(), h.zip, "docs", NewOptions()).OK)
	require.NoError(t, os.Remove(h.zip))

	require.True(t, h.p.RefreshDirectory(context.Background()))
	assert.Equal(t, location.Disk{Path: h.dir}, h.p.Location())
	assert.NotContains(t, h.p.Listing().Names(), "x.zip")
}

func TestExecuteThroughArchive(t *testing.T) {
	h := newArchiveHarness(t)

	res := h.p.Execute(context.Background(), h.index(t, "x.zip"))
	require.True(t, res.OK, res.String())
	assert.Equal(t, 1, h.p.TopIndexMemory().Len())

	require.True(t, h.p.Execute(context.Background(), h.index(t, "docs")).OK)
	require.True(t, h.p.Execute(context.Background(), h.index(t, "deep")).OK)
	assert.Equal(t, "docs/deep", h.inner(t))
	assert.Equal(t, 3, h.p.TopIndexMemory().Len())

	require.True(t, h.p.Execute(context.Background(), h.index(t, "..")).OK)
	assert.Equal(t, "docs", h.inner(t))
	assert.Equal(t, h.index(t, "deep"), h.box.Focus())

	require.True(t, h.p.Execute(context.Background(), h.index(t, "..")).OK)
	assert.Equal(t, "", h.inner(t))
	assert.Equal(t, h.index(t, "docs"), h.box.Focus())

	res = h.p.Execute(context.Background(), h.index(t, ".."))
	require.True(t, res.OK, res.String())
	assert.Equal(t, location.Disk{Path: h.dir}, h.p.Location())
	assert.Equal(t, h.index(t, "x.zip"), h.box.Focus())
	assert.Zero(t, h.p.TopIndexMemory().Len())
}

func TestExecuteArchiveMember(t *testing.T) {
	var launched []string
	h := newArchiveHarness(t, func(d *Deps) {
		d.Assoc = archive.NewAssocFiles(archive.DefaultRegistry(), t.TempDir())
		d.Launch = func(path string) error {
			launched = append(launched, path)
			return nil
		}
	})
	require.True(t, h.p.ChangePathToArchive(context.Background(), h.zip, "", NewOptions()).OK)

	res := h.p.Execute(context.Background(), h.index(t, "top.txt"))
	require.True(t, res.OK, res.String())
	require.Len(t, launched, 1)
	body, err := os.ReadFile(launched[0])
	require.NoError(t, err)
	assert.Equal(t, "top", string(body))
	assert.Equal(t, 1, h.p.deps.Assoc.Count(h.zip))

	// leaving the archive checks the extracted copy; it did not change
	h.goTo(t, h.dir)
	assert.Zero(t, h.p.deps.Assoc.Count(h.zip))
}

func TestChangePathClassifiesInput(t *testing.T) {
	h := newArchiveHarness(t)

	opts := NewOptions()
	opts.CanFocusFileName = true
	res := h.p.ChangePath(context.Background(), filepath.Join(h.dir, "note.txt"), opts)
	assert.False(t, res.OK)
	assert.Equal(t, FileNameWasFocusedInstead, res.Reason)
	assert.Equal(t, "note.txt", res.FocusName)
	assert.Equal(t, h.index(t, "note.txt"), h.box.Focus())

	res = h.p.ChangePath(context.Background(), filepath.Join(h.zip, "docs", "deep"), NewOptions())
	require.True(t, res.OK, res.String())
	assert.Equal(t, "docs/deep", h.inner(t))

	res = h.p.ChangePath(context.Background(), h.dir, NewOptions())
	require.True(t, res.OK, res.String())
	assert.Equal(t, location.KindDisk, h.p.Kind())
}
