package dircmp

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/justyntemme/salpanel/internal/archive"
	"github.com/justyntemme/salpanel/internal/fs"
	"github.com/justyntemme/salpanel/internal/listing"
)

// Source is one side of a compare. Paths passed to it are relative to the
// side's root and use "/" separators.
type Source interface {
	// Label names the source in results and logs.
	Label() string
	// List returns the entries of rel, without the ".." entry.
	List(ctx context.Context, rel string) (*listing.Listing, error)
	// Open returns the content of the file rel.
	Open(rel string) (io.ReadCloser, error)
}

// DiskSource compares a directory on disk.
type DiskSource struct {
	Root    string
	ReadDir func(path string) (*listing.Listing, error) // defaults to fs.ReadDir
}

func (s DiskSource) Label() string { return s.Root }

func (s DiskSource) path(rel string) string {
	p := s.Root
	for _, part := range splitRel(rel) {
		p = fs.Join(p, part)
	}
	return p
}

func (s DiskSource) List(ctx context.Context, rel string) (*listing.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	read := s.ReadDir
	if read == nil {
		read = fs.ReadDir
	}
	l, err := read(s.path(rel))
	if err != nil {
		return nil, err
	}
	return stripUpDir(l), nil
}

func (s DiskSource) Open(rel string) (io.ReadCloser, error) { return os.Open(s.path(rel)) }

// ArchiveSource compares a directory inside an already listed archive.
// Content reads go through Members; when it is nil content compare reports
// ErrNoContent.
type ArchiveSource struct {
	File    string
	Root    string // inner path the compare starts at
	Tree    *archive.Tree
	Members *archive.Registry
}

func (s ArchiveSource) Label() string {
	if s.Root == "" {
		return s.File
	}
	return s.File + ":" + s.Root
}

func (s ArchiveSource) inner(rel string) string {
	switch {
	case s.Root == "":
		return rel
	case rel == "":
		return s.Root
	}
	return s.Root + "/" + rel
}

func (s ArchiveSource) List(ctx context.Context, rel string) (*listing.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l, ok := s.Tree.Lookup(s.inner(rel))
	if !ok {
		return nil, fmt.Errorf("%s: %w", s.inner(rel), archive.ErrNoEntry)
	}
	return stripUpDir(l), nil
}

func (s ArchiveSource) Open(rel string) (io.ReadCloser, error) {
	if s.Members == nil {
		return nil, ErrNoContent
	}
	return s.Members.Open(s.File, s.inner(rel))
}

// stripUpDir returns l without its ".." entry. The result shares entries
// with l and must not be modified.
func stripUpDir(l *listing.Listing) *listing.Listing {
	if !l.HasUpDir() {
		return l
	}
	return &listing.Listing{Dirs: l.Dirs[1:], Files: l.Files, Generation: l.Generation}
}

func splitRel(rel string) []string {
	rel = strings.Trim(rel, "/")
	if rel == "" {
		return nil
	}
	return strings.Split(rel, "/")
}

func joinRel(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}
