package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/justyntemme/salpanel/internal/debug"
)

var (
	// ErrNotArchive is returned when no packer handles a file.
	ErrNotArchive = errors.New("archive: not a recognized archive")
	// ErrCorrupt wraps packer read failures.
	ErrCorrupt = errors.New("archive: cannot read archive")
	// ErrNoEntry is returned by Open for a missing member.
	ErrNoEntry = errors.New("archive: no such entry")
)

// PluginData is whatever a packer wants to keep alongside a tree.
type PluginData any

// Packer reads one family of archive formats.
type Packer interface {
	Name() string
	Extensions() []string
	// Sniff reports whether header (the first bytes of a file) looks like
	// this format. Packers without a signature return false.
	Sniff(header []byte) bool
	List(ctx context.Context, path string) (*Tree, PluginData, error)
	// Open streams one member of the archive.
	Open(path, inner string) (io.ReadCloser, error)
	// CanClose asks a plugin-handled format whether the archive may be
	// released. force is set for a forced close.
	CanClose(path string, force bool) bool
}

// Updater is implemented by packers that can write members back.
type Updater interface {
	Update(ctx context.Context, path string, files map[string]string) error
}

// Registry maps files to packers by extension or signature.
type Registry struct {
	mu      sync.RWMutex
	packers []Packer
	byExt   map[string]Packer
}

// NewRegistry returns a registry holding packers.
func NewRegistry(packers ...Packer) *Registry {
	r := &Registry{byExt: make(map[string]Packer)}
	for _, p := range packers {
		r.Register(p)
	}
	return r
}

// DefaultRegistry returns a registry with the built-in packers.
func DefaultRegistry() *Registry { return NewRegistry(NewZipPacker()) }

// Register adds p; later registrations win for shared extensions.
func (r *Registry) Register(p Packer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.packers = append(r.packers, p)
	for _, ext := range p.Extensions() {
		r.byExt[strings.ToLower(ext)] = p
	}
}

// ForPath returns the packer for path, trying the extension first and the
// file signature second.
func (r *Registry) ForPath(path string) (Packer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(baseName(path)), "."))
	if p, ok := r.byExt[ext]; ok {
		return p, true
	}
	header := readHeader(path)
	if len(header) == 0 {
		return nil, false
	}
	for _, p := range r.packers {
		if p.Sniff(header) {
			return p, true
		}
	}
	return nil, false
}

// IsArchive implements location.ArchiveRecognizer.
func (r *Registry) IsArchive(path string) bool {
	_, ok := r.ForPath(path)
	return ok
}

// List builds the tree of path with the matching packer.
func (r *Registry) List(ctx context.Context, path string) (*Tree, PluginData, error) {
	p, ok := r.ForPath(path)
	if !ok {
		return nil, nil, fmt.Errorf("%s: %w", path, ErrNotArchive)
	}
	start := time.Now()
	tree, data, err := p.List(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	files, dirs := tree.Counts()
	debug.Log(debug.ARCHIVE, "List: %s via %s: %d files, %d dirs in %v", path, p.Name(), files, dirs, time.Since(start))
	return tree, data, nil
}

// Open reads one member of path.
func (r *Registry) Open(path, inner string) (io.ReadCloser, error) {
	p, ok := r.ForPath(path)
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrNotArchive)
	}
	return p.Open(path, inner)
}

// CanClose asks the packer of path whether the archive may be released.
func (r *Registry) CanClose(path string, force bool) bool {
	p, ok := r.ForPath(path)
	if !ok {
		return true
	}
	return p.CanClose(path, force)
}

// Update writes members back when the packer supports it.
func (r *Registry) Update(ctx context.Context, path string, files map[string]string) error {
	p, ok := r.ForPath(path)
	if !ok {
		return fmt.Errorf("%s: %w", path, ErrNotArchive)
	}
	u, ok := p.(Updater)
	if !ok {
		return fmt.Errorf("%s: packer %s is read-only", path, p.Name())
	}
	return u.Update(ctx, path, files)
}

func baseName(p string) string {
	i := strings.LastIndexAny(p, `/\`)
	return p[i+1:]
}

func readHeader(path string) []byte {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	buf := make([]byte, 8)
	n, _ := io.ReadFull(f, buf)
	return buf[:n]
}
