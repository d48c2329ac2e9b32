package dircmp

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/salpanel/internal/archive"
	"github.com/justyntemme/salpanel/internal/config"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, body := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if body == "/" {
			require.NoError(t, os.MkdirAll(p, 0o755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
}

type summary struct {
	Path   string
	Kind   Kind
	Reason Reason
}

func summarize(diffs []Difference) []summary {
	out := make([]summary, 0, len(diffs))
	for _, d := range diffs {
		out = append(out, summary{d.Path, d.Kind, d.Reason})
	}
	return out
}

func TestCompareDisk(t *testing.T) {
	left, right := t.TempDir(), t.TempDir()
	writeTree(t, left, map[string]string{
		"a.txt":         "same",
		"b.txt":         "short",
		"Case.TXT":      "x",
		"k/":            "/",
		"only_l.txt":    "l",
		"sub/x.txt":     "x",
		"sub/extra.txt": "e",
	})
	writeTree(t, right, map[string]string{
		"a.txt":      "same",
		"b.txt":      "much longer",
		"case.txt":   "x",
		"k":          "file",
		"only_r.txt": "r",
		"sub/x.txt":  "x",
	})

	diffs, err := Compare(context.Background(), DiskSource{Root: left}, DiskSource{Root: right}, Options{BySize: true, Subdirs: true})
	require.NoError(t, err)
	assert.Equal(t, []summary{
		{"b.txt", Differs, ReasonSize},
		{"k", TypeMismatch, 0},
		{"only_l.txt", OnlyLeft, 0},
		{"only_r.txt", OnlyRight, 0},
		{"sub/extra.txt", OnlyLeft, 0},
	}, summarize(diffs))

	// without subdirectories only the top level is compared
	diffs, err = Compare(context.Background(), DiskSource{Root: left}, DiskSource{Root: right}, Options{BySize: true})
	require.NoError(t, err)
	assert.Len(t, diffs, 4)
}

func TestCompareByTime(t *testing.T) {
	left, right := t.TempDir(), t.TempDir()
	writeTree(t, left, map[string]string{"dst.txt": "1", "newer.txt": "2", "same.txt": "3"})
	writeTree(t, right, map[string]string{"dst.txt": "1", "newer.txt": "2", "same.txt": "3"})

	base := time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)
	touch := func(root, name string, at time.Time) {
		require.NoError(t, os.Chtimes(filepath.Join(root, name), at, at))
	}
	touch(left, "dst.txt", base.Add(time.Hour))
	touch(right, "dst.txt", base)
	touch(left, "newer.txt", base)
	touch(right, "newer.txt", base.Add(5*time.Minute))
	touch(left, "same.txt", base)
	touch(right, "same.txt", base)

	diffs, err := Compare(context.Background(), DiskSource{Root: left}, DiskSource{Root: right}, Options{ByTime: true, IgnoreDST: true})
	require.NoError(t, err)
	require.Len(t, diffs, 1)
	assert.Equal(t, "newer.txt", diffs[0].Path)
	assert.Equal(t, ReasonTime, diffs[0].Reason)
	assert.Equal(t, SideRight, diffs[0].Newer)
}

func TestNewerSide(t *testing.T) {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	testCases := []struct {
		name     string
		offset   time.Duration
		opts     Options
		expected Side
	}{
		{"equal", 0, Options{}, SideNone},
		{"below a second", 500 * time.Millisecond, Options{}, SideNone},
		{"left newer", 3 * time.Second, Options{}, SideLeft},
		{"right newer", -3 * time.Second, Options{}, SideRight},
		{"one hour without dst", time.Hour, Options{}, SideLeft},
		{"one hour with dst", time.Hour, Options{IgnoreDST: true}, SideNone},
		{"two hours with dst", -2 * time.Hour, Options{IgnoreDST: true}, SideNone},
		{"ninety minutes with dst", 90 * time.Minute, Options{IgnoreDST: true}, SideLeft},
		{"dst needs an exact hour", time.Hour + time.Second, Options{IgnoreDST: true}, SideLeft},
		{"seconds ignored", 42 * time.Second, Options{IgnoreSeconds: true}, SideNone},
		{"minutes still count", 61 * time.Second, Options{IgnoreSeconds: true}, SideLeft},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, newerSide(base.Add(tc.offset), base, tc.opts))
		})
	}
}

func TestCompareByContent(t *testing.T) {
	big := make([]byte, 3*chunkSize+17)
	for i := range big {
		big[i] = byte(i)
	}
	changed := append([]byte(nil), big...)
	changed[len(changed)-1] ^= 0xff

	left, right := t.TempDir(), t.TempDir()
	writeTree(t, left, map[string]string{
		"big.bin":   string(big),
		"equal.bin": string(big),
		"size.txt":  "abc",
		"empty":     "",
	})
	writeTree(t, right, map[string]string{
		"big.bin":   string(changed),
		"equal.bin": string(big),
		"size.txt":  "abcd",
		"empty":     "",
	})

	diffs, err := Compare(context.Background(), DiskSource{Root: left}, DiskSource{Root: right}, Options{ByContent: true, Workers: 2})
	require.NoError(t, err)
	assert.Equal(t, []summary{
		{"big.bin", Differs, ReasonContent},
		{"size.txt", Differs, ReasonContent},
	}, summarize(diffs))
}

func TestCompareCanceled(t *testing.T) {
	left := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Compare(ctx, DiskSource{Root: left}, DiskSource{Root: left}, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCompareMissingRoot(t *testing.T) {
	left := t.TempDir()
	_, err := Compare(context.Background(), DiskSource{Root: left}, DiskSource{Root: filepath.Join(left, "gone")}, Options{})
	assert.Error(t, err)
}

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

func TestCompareArchiveWithDisk(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "x.zip")
	writeZip(t, zipPath, map[string]string{
		"docs/a.txt":  "alpha",
		"docs/b.txt":  "beta",
		"top.txt":     "top",
		"docs/in.txt": "archive only",
	})
	disk := filepath.Join(dir, "disk")
	writeTree(t, disk, map[string]string{
		"docs/a.txt": "alphA",
		"docs/b.txt": "beta",
		"top.txt":    "top",
	})

	reg := archive.DefaultRegistry()
	tree, _, err := reg.List(context.Background(), zipPath)
	require.NoError(t, err)

	testCases := []struct {
		name     string
		src      ArchiveSource
		right    string
		expected []summary
	}{
		{
			name:  "content read through the packer",
			src:   ArchiveSource{File: zipPath, Tree: tree, Members: reg},
			right: disk,
			expected: []summary{
				{"docs/a.txt", Differs, ReasonContent},
				{"docs/in.txt", OnlyLeft, 0},
			},
		},
		{
			name:  "without member access content is skipped",
			src:   ArchiveSource{File: zipPath, Tree: tree},
			right: disk,
			expected: []summary{
				{"docs/in.txt", OnlyLeft, 0},
			},
		},
		{
			name:  "starting below the archive root",
			src:   ArchiveSource{File: zipPath, Root: "docs", Tree: tree, Members: reg},
			right: filepath.Join(disk, "docs"),
			expected: []summary{
				{"a.txt", Differs, ReasonContent},
				{"in.txt", OnlyLeft, 0},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			diffs, err := Compare(context.Background(), tc.src, DiskSource{Root: tc.right}, Options{ByContent: true, Subdirs: true})
			require.NoError(t, err)
			assert.Equal(t, tc.expected, summarize(diffs))
		})
	}
}

func TestArchiveSourceMissingDir(t *testing.T) {
	_, err := ArchiveSource{File: "x.zip", Tree: archive.NewTree()}.List(context.Background(), "nope")
	assert.ErrorIs(t, err, archive.ErrNoEntry)
}

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(config.CompareConfig{BySize: true, IgnoreDST: true, Subdirs: true})
	assert.Equal(t, Options{BySize: true, IgnoreDST: true, Subdirs: true}, opts)
}
