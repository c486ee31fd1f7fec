package plugin

import (
	"maps"
	"slices"
	"sync"

	"scenarioctl/internal/api"
)

// Registry maps item types to plugins.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]Plugin
}

// NewRegistry builds a registry from plugin sets. Later sets override earlier
// ones, so built-in plugins go first and user plugins after them.
func NewRegistry(sets ...map[string]Plugin) *Registry {
	r := &Registry{plugins: map[string]Plugin{}}
	for _, set := range sets {
		for typ, p := range set {
			r.Register(typ, p)
		}
	}
	return r
}

// Register adds or replaces the plugin for typ.
func (r *Registry) Register(typ string, p Plugin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins[typ] = p
}

// Lookup returns the plugin registered for typ.
func (r *Registry) Lookup(typ string) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[typ]
	return p, ok
}

// Select returns the plugin for the type of def. Errors are *api.ItemError.
func (r *Registry) Select(c api.Context, def api.Definition) (Plugin, error) {
	typ := def.String("type")
	if typ == "" {
		return Plugin{}, api.NewItemError(api.ErrMissingType, c, def)
	}
	p, ok := r.Lookup(typ)
	if !ok {
		return Plugin{}, api.NewItemError(api.ErrUnknownType, c, def)
	}
	return p, nil
}

// Types returns the registered types in lexical order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.plugins))
}
