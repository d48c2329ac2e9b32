package pluginfs

import (
	"fmt"
	"strings"
	"sync"
)

type fsEntry struct {
	plugin Plugin
	index  int
}

// Registry maps fs names to the plugins that serve them.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	byName  map[string]fsEntry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]fsEntry)}
}

// Register installs p. An fs name already taken by another plugin is an error.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range p.FSNames() {
		if e, ok := r.byName[strings.ToLower(name)]; ok && e.plugin != p {
			return fmt.Errorf("pluginfs: fs name %q already registered by %s", name, e.plugin.Name())
		}
	}
	for i, name := range p.FSNames() {
		r.byName[strings.ToLower(name)] = fsEntry{plugin: p, index: i}
	}
	r.plugins = append(r.plugins, p)
	return nil
}

// IsPluginFS returns the plugin serving name and the index of name among
// the plugin's fs names.
func (r *Registry) IsPluginFS(name string) (Plugin, int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return nil, -1, false
	}
	return e.plugin, e.index, true
}

// IsPluginFSName implements location.FSNameRegistry.
func (r *Registry) IsPluginFSName(name string) bool {
	_, _, ok := r.IsPluginFS(name)
	return ok
}

// Plugins returns the installed plugins in registration order.
func (r *Registry) Plugins() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Plugin, len(r.plugins))
	copy(out, r.plugins)
	return out
}
