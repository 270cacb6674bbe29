package bot

import (
	"fmt"
	"sync"
)

// Registry holds registered modules in registration order.
type Registry struct {
	mu      sync.RWMutex
	modules []Module
	names   map[string]struct{}
}

// NewRegistry creates an empty module registry.
func NewRegistry() *Registry {
	return &Registry{
		modules: make([]Module, 0),
		names:   make(map[string]struct{}),
	}
}

// Register adds a module to the registry.
// It panics if a module with the same name is already registered, since two
// modules sharing a name would also share command and config namespaces.
func (r *Registry) Register(m Module) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := m.Name()
	if _, dup := r.names[name]; dup {
		panic(fmt.Sprintf("bot: module %q registered twice", name))
	}
	r.names[name] = struct{}{}
	r.modules = append(r.modules, m)
}

// Modules returns a snapshot of all registered modules.
func (r *Registry) Modules() []Module {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Module, len(r.modules))
	copy(result, r.modules)
	return result
}

// globalRegistry collects modules that register themselves from init().
var globalRegistry = NewRegistry()

// Register adds a module to the global registry.
// Modules call it from init() and are enabled by a blank import in main.
func Register(m Module) {
	globalRegistry.Register(m)
}

// Modules returns all modules from the global registry.
func Modules() []Module {
	return globalRegistry.Modules()
}

// ResetGlobalRegistry resets the global registry. Tests only.
func ResetGlobalRegistry() {
	globalRegistry = NewRegistry()
}

// moduleNames lists the names of mods in order.
func moduleNames(mods []Module) []string {
	names := make([]string, len(mods))
	for i, mod := range mods {
		names[i] = mod.Name()
	}
	return names
}
