// Package memfs is an in-memory plugin filesystem. It backs the "mem:"
// demo location and exercises the plugin contract in tests.
package memfs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/justyntemme/salpanel/internal/debug"
	"github.com/justyntemme/salpanel/internal/listing"
	"github.com/justyntemme/salpanel/internal/pluginfs"
)

type node struct {
	name     string
	dir      bool
	size     uint64
	modTime  time.Time
	children map[string]*node
}

// Volume is a tree of directories and files shared by all sessions of a
// Plugin.
type Volume struct {
	mu   sync.RWMutex
	root *node
}

// NewVolume returns an empty volume.
func NewVolume() *Volume {
	return &Volume{root: &node{dir: true, children: map[string]*node{}}}
}

// Split turns "/a/b" into its elements.
func Split(p string) []string {
	return strings.FieldsFunc(p, func(r rune) bool { return r == '/' || r == '\\' })
}

// Clean returns p in canonical "/a/b" form.
func Clean(p string) string { return "/" + strings.Join(Split(p), "/") }

// MkdirAll creates directory p and its parents.
func (v *Volume) MkdirAll(p string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.mkdirs(Split(p))
}

func (v *Volume) mkdirs(parts []string) *node {
	n := v.root
	for _, part := range parts {
		c := n.children[part]
		if c == nil {
			c = &node{name: part, dir: true, modTime: time.Now(), children: map[string]*node{}}
			n.children[part] = c
		}
		n = c
	}
	return n
}

// WriteFile creates a file of the given size, making parents as needed.
func (v *Volume) WriteFile(p string, size uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	parts := Split(p)
	if len(parts) == 0 {
		return
	}
	parent := v.mkdirs(parts[:len(parts)-1])
	name := parts[len(parts)-1]
	parent.children[name] = &node{name: name, size: size, modTime: time.Now()}
}

// Remove deletes p and everything below it.
func (v *Volume) Remove(p string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	parts := Split(p)
	if len(parts) == 0 {
		return
	}
	if parent := v.lookup(parts[:len(parts)-1]); parent != nil {
		delete(parent.children, parts[len(parts)-1])
	}
}

func (v *Volume) lookup(parts []string) *node {
	n := v.root
	for _, part := range parts {
		if n = n.children[part]; n == nil {
			return nil
		}
	}
	return n
}

func (v *Volume) stat(p string) *node {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.lookup(Split(p))
}

// Plugin serves one or more fs names over a Volume. Its exported fields
// let tests script refusals and failures.
type Plugin struct {
	Volume *Volume
	Names  []string

	mu       sync.Mutex
	open     []*FS
	OpenErr  error
	Closed   int
	opened   int
	Behavior Behavior
}

// Behavior configures how new sessions react to close requests and listing.
type Behavior struct {
	RefuseClose    bool              // TryCloseOrDetach(force=false) says no
	DetachOnClose  bool              // answers detach when allowed
	RefuseForce    bool              // also refuses forced closes
	ListErrors     map[string]error  // ListCurrentPath fails for these paths
	SwitchFSName   map[string]string // ChangePath to key moves to another of our names
	ForeignFSName  map[string]string // ChangePath to key claims a name we do not own
	NoPluginData   bool              // report IconsFromPlugin without data
	ChangePathFail bool              // ChangePath fails outright
}

// New returns a plugin with the given fs names (default "mem").
func New(v *Volume, names ...string) *Plugin {
	if len(names) == 0 {
		names = []string{"mem"}
	}
	if v == nil {
		v = NewVolume()
	}
	return &Plugin{Volume: v, Names: names}
}

var _ pluginfs.Plugin = (*Plugin)(nil)

// Name implements pluginfs.Plugin.
func (p *Plugin) Name() string { return "memfs" }

// FSNames implements pluginfs.Plugin.
func (p *Plugin) FSNames() []string { return p.Names }

// OpenFS implements pluginfs.Plugin.
func (p *Plugin) OpenFS(fsName string, fsNameIndex int) (pluginfs.FS, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.OpenErr != nil {
		return nil, p.OpenErr
	}
	p.opened++
	f := &FS{plugin: p, behavior: p.Behavior, cur: "/"}
	p.open = append(p.open, f)
	debug.Log(debug.PLUGIN, "memfs: OpenFS %s (#%d)", fsName, p.opened)
	return f, nil
}

// CloseFS implements pluginfs.Plugin.
func (p *Plugin) CloseFS(f pluginfs.FS) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, o := range p.open {
		if o == f {
			p.open = append(p.open[:i], p.open[i+1:]...)
			break
		}
	}
	p.Closed++
}

// OpenCount returns the number of sessions not yet closed.
func (p *Plugin) OpenCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.open)
}

// ConvertPathToInternal implements pluginfs.Plugin; backslashes become
// slashes.
func (p *Plugin) ConvertPathToInternal(fsName string, fsNameIndex int, userPart string) string {
	return strings.ReplaceAll(userPart, `\`, "/")
}

// FS is one session on the volume.
type FS struct {
	plugin   *Plugin
	behavior Behavior

	mu       sync.Mutex
	cur      string
	valid    bool
	Events   []pluginfs.EventKind
	Messages []string // errors the plugin would have shown
	Released int
}

var _ pluginfs.FS = (*FS)(nil)

// ChangePath implements pluginfs.FS. It shortens the path until an
// existing directory is found; in ModeUserInput a trailing file name is
// returned for focus instead of being reported.
func (f *FS) ChangePath(ctx context.Context, req pluginfs.ChangePathRequest) pluginfs.ChangePathResult {
	f.mu.Lock()
	defer f.mu.Unlock()

	res := pluginfs.ChangePathResult{FSName: req.FSName, FSNameIndex: req.FSNameIndex}
	if f.behavior.ChangePathFail {
		f.Messages = append(f.Messages, "cannot change path")
		return res
	}
	target := Clean(req.UserPart)
	if name, ok := f.behavior.ForeignFSName[target]; ok {
		res.FSName = name
		res.UserPart = target
		res.OK = true
		return res
	}
	if name, ok := f.behavior.SwitchFSName[target]; ok {
		for i, n := range f.plugin.Names {
			if strings.EqualFold(n, name) {
				res.FSName, res.FSNameIndex = n, i
			}
		}
	}

	parts := Split(target)
	first := true
	for {
		if ctx.Err() != nil {
			return res
		}
		p := "/" + strings.Join(parts, "/")
		n := f.plugin.Volume.stat(p)
		switch {
		case n != nil && n.dir:
			f.cur = p
			f.valid = true
			res.OK = true
			res.UserPart = p
			return res
		case n != nil && first && req.Mode == pluginfs.ModeUserInput:
			res.CutFileName = n.name
		case n != nil:
			f.Messages = append(f.Messages, fmt.Sprintf("%s is a file", p))
		case req.Mode != pluginfs.ModeRefresh:
			f.Messages = append(f.Messages, fmt.Sprintf("%s not found", p))
		}
		if len(parts) == 0 {
			return res
		}
		parts = parts[:len(parts)-1]
		res.PathWasCut = true
		first = false
	}
}

// ListCurrentPath implements pluginfs.FS.
func (f *FS) ListCurrentPath(ctx context.Context, forceUpdate bool) (*listing.Listing, pluginfs.PluginData, pluginfs.IconsType, error) {
	f.mu.Lock()
	cur := f.cur
	f.mu.Unlock()

	if err := f.behavior.ListErrors[cur]; err != nil {
		return nil, nil, pluginfs.IconsSimple, fmt.Errorf("%s: %w: %w", cur, pluginfs.ErrListFailed, err)
	}
	v := f.plugin.Volume
	v.mu.RLock()
	n := v.lookup(Split(cur))
	if n == nil || !n.dir {
		v.mu.RUnlock()
		return nil, nil, pluginfs.IconsSimple, fmt.Errorf("%s: %w", cur, pluginfs.ErrListFailed)
	}
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)
	l := listing.New()
	for _, name := range names {
		c := n.children[name]
		e := listing.NewEntry(name, c.dir)
		e.Size = c.size
		e.ModTime = c.modTime
		l.Add(e)
	}
	v.mu.RUnlock()
	if cur != "/" {
		l.AddUpDir()
	}
	if f.behavior.NoPluginData {
		return l, nil, pluginfs.IconsFromPlugin, nil
	}
	return l, cur, pluginfs.IconsSimple, nil
}

// GetCurrentPath implements pluginfs.FS.
func (f *FS) GetCurrentPath() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cur, f.valid
}

// IsCurrentPath implements pluginfs.FS.
func (f *FS) IsCurrentPath(fsNameIndex int, userPart string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.valid && f.cur == Clean(userPart)
}

// Event implements pluginfs.FS.
func (f *FS) Event(kind pluginfs.EventKind, side pluginfs.Side) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Events = append(f.Events, kind)
}

// TryCloseOrDetach implements pluginfs.FS.
func (f *FS) TryCloseOrDetach(force, canDetach bool, reason pluginfs.CloseReason) (bool, bool) {
	if canDetach && f.behavior.DetachOnClose {
		return true, true
	}
	if force {
		return !f.behavior.RefuseForce, false
	}
	return !f.behavior.RefuseClose, false
}

// ReleaseObject implements pluginfs.FS.
func (f *FS) ReleaseObject(side pluginfs.Side) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Released++
}

// SetBehavior replaces the behavior of an open session.
func (f *FS) SetBehavior(b Behavior) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.behavior = b
}

// EventLog returns a copy of the events received.
func (f *FS) EventLog() []pluginfs.EventKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]pluginfs.EventKind(nil), f.Events...)
}

// ErrOffline can be used as an OpenErr or list error.
var ErrOffline = errors.New("memfs: volume offline")
