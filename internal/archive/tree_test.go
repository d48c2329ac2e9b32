package archive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/salpanel/internal/listing"
)

func buildSample(t *testing.T) *Tree {
	t.Helper()
	b := NewBuilder()
	b.AllocAddCache()
	require.NoError(t, b.AddFile("readme.txt", &listing.Entry{Size: 3}))
	require.NoError(t, b.AddFile("Docs/api/index.html", &listing.Entry{Size: 10}))
	require.NoError(t, b.AddFile("docs/guide.md", &listing.Entry{Size: 7}))
	b.AddDir("empty/", nil)
	assert.ErrorIs(t, b.AddFile("readme.txt", &listing.Entry{}), ErrDuplicate)
	return b.Tree()
}

func TestTreeLookup(t *testing.T) {
	tree := buildSample(t)

	root, ok := tree.Lookup("")
	require.True(t, ok)
	assert.True(t, root.HasUpDir())
	assert.Equal(t, []string{"..", "Docs", "empty", "readme.txt"}, root.Names())

	docs, ok := tree.Lookup(`DOCS\`)
	require.True(t, ok)
	assert.Equal(t, []string{"..", "api", "guide.md"}, docs.Names())

	again, _ := tree.Lookup("docs")
	assert.Same(t, docs, again, "lookups are views into the tree")

	_, ok = tree.Lookup("docs/missing")
	assert.False(t, ok)
	assert.True(t, tree.Exists("docs/API"))

	canon, ok := tree.Canonical("docs/API")
	assert.True(t, ok)
	assert.Equal(t, "Docs/api", canon)

	files, dirs := tree.Counts()
	assert.Equal(t, 3, files)
	assert.Equal(t, 3, dirs)
}

func TestTreeWalk(t *testing.T) {
	tree := buildSample(t)
	var seen []string
	tree.Walk(func(inner string, l *listing.Listing) { seen = append(seen, inner) })
	assert.Equal(t, []string{"", "Docs", "Docs/api", "empty"}, seen)
}

func TestBuilderAddDirMetadata(t *testing.T) {
	b := NewBuilder()
	when := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	b.AddDir("a", &listing.Entry{ModTime: when})
	tree := b.Tree()
	root, _ := tree.Lookup("")
	require.NotNil(t, root.FindDir("a"))
	assert.Equal(t, when, root.FindDir("a").ModTime)
}

func TestStampChanged(t *testing.T) {
	now := time.Now()
	a := Stamp{ModTime: now, Size: 1}
	assert.False(t, Changed(a, a))
	assert.True(t, Changed(a, Stamp{ModTime: now, Size: 2}))
	assert.True(t, Changed(a, Stamp{ModTime: now.Add(time.Second), Size: 1}))
}
