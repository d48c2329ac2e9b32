package archive

import (
	"errors"

	"github.com/justyntemme/salpanel/internal/listing"
)

// ErrDuplicate is returned when a file is added twice at the same path.
var ErrDuplicate = errors.New("archive: duplicate entry")

// Builder fills a Tree. While the add cache is allocated, directory nodes
// are looked up by their full inner path instead of walking from the root.
type Builder struct {
	tree  *Tree
	cache map[string]*dirNode
}

// NewBuilder starts a new tree.
func NewBuilder() *Builder { return &Builder{tree: NewTree()} }

// AllocAddCache enables bulk insert.
func (b *Builder) AllocAddCache() { b.cache = map[string]*dirNode{"": b.tree.root} }

// FreeAddCache releases the bulk insert cache.
func (b *Builder) FreeAddCache() { b.cache = nil }

// AddDir makes sure the directory inner exists and updates its entry
// metadata when e is not nil.
func (b *Builder) AddDir(inner string, e *listing.Entry) {
	n := b.dir(splitInner(inner))
	if e != nil && n.entry != nil {
		n.entry.ModTime = e.ModTime
		n.entry.Attr |= e.Attr
	}
}

// AddFile inserts a file at inner; missing parent directories are created.
func (b *Builder) AddFile(inner string, e *listing.Entry) error {
	parts := splitInner(inner)
	if len(parts) == 0 {
		return ErrDuplicate
	}
	parent := b.dir(parts[:len(parts)-1])
	name := parts[len(parts)-1]
	if _, exists := parent.list.Find(name); exists {
		return ErrDuplicate
	}
	e.Name = name
	e.IsDir = false
	e.Ext = listing.NewEntry(name, false).Ext
	parent.list.Add(e)
	b.tree.files++
	return nil
}

// Tree returns the built tree and frees the add cache.
func (b *Builder) Tree() *Tree {
	b.FreeAddCache()
	return b.tree
}

func (b *Builder) dir(parts []string) *dirNode {
	key := ""
	n := b.tree.root
	for _, p := range parts {
		key = joinInner(key, fold(p))
		if b.cache != nil {
			if c, ok := b.cache[key]; ok {
				n = c
				continue
			}
		}
		child := n.children[fold(p)]
		if child == nil {
			e := listing.NewEntry(p, true)
			child = newDirNode(e)
			n.children[fold(p)] = child
			n.list.Add(e)
			b.tree.dirs++
		}
		if b.cache != nil {
			b.cache[key] = child
		}
		n = child
	}
	return n
}
