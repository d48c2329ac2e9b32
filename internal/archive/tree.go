// Package archive builds and caches the directory trees of archive files
// and hosts the packers that read them.
package archive

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/justyntemme/salpanel/internal/listing"
	"github.com/justyntemme/salpanel/internal/location"
)

var folder = cases.Fold()

func fold(s string) string { return folder.String(s) }

type dirNode struct {
	entry    *listing.Entry // nil for the root
	list     *listing.Listing
	children map[string]*dirNode
}

func newDirNode(e *listing.Entry) *dirNode {
	n := &dirNode{entry: e, list: listing.New(), children: make(map[string]*dirNode)}
	n.list.AddUpDir()
	return n
}

// Tree is the full listing of an archive. Listings returned by Lookup are
// views into the tree and stay valid until the tree is dropped.
type Tree struct {
	root  *dirNode
	files int
	dirs  int
}

// NewTree returns a tree holding only the root.
func NewTree() *Tree { return &Tree{root: newDirNode(nil)} }

// Lookup returns the listing of inner, matching names case-insensitively.
// The root ("") always exists.
func (t *Tree) Lookup(inner string) (*listing.Listing, bool) {
	n := t.node(inner)
	if n == nil {
		return nil, false
	}
	return n.list, true
}

// Exists reports whether inner names a directory of the tree.
func (t *Tree) Exists(inner string) bool { return t.node(inner) != nil }

// Canonical returns inner spelled with the case stored in the archive.
func (t *Tree) Canonical(inner string) (string, bool) {
	n := t.root
	var parts []string
	for _, p := range splitInner(inner) {
		n = n.children[fold(p)]
		if n == nil {
			return "", false
		}
		parts = append(parts, n.entry.Name)
	}
	return strings.Join(parts, "/"), true
}

func (t *Tree) node(inner string) *dirNode {
	n := t.root
	for _, p := range splitInner(inner) {
		if n = n.children[fold(p)]; n == nil {
			return nil
		}
	}
	return n
}

// Counts returns the number of files and directories in the tree.
func (t *Tree) Counts() (files, dirs int) { return t.files, t.dirs }

// Walk calls fn for every directory of the tree, parents first.
func (t *Tree) Walk(fn func(inner string, l *listing.Listing)) {
	var walk func(prefix string, n *dirNode)
	walk = func(prefix string, n *dirNode) {
		fn(prefix, n.list)
		for _, d := range n.list.Dirs {
			if d.IsUpDir() {
				continue
			}
			child := n.children[fold(d.Name)]
			if child == nil {
				continue
			}
			walk(joinInner(prefix, d.Name), child)
		}
	}
	walk("", t.root)
}

func splitInner(inner string) []string {
	inner = location.NormalizeInner(inner)
	if inner == "" {
		return nil
	}
	return strings.Split(inner, "/")
}

func joinInner(a, b string) string {
	if a == "" {
		return b
	}
	return a + "/" + b
}
