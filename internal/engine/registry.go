package engine

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps engine names to instances. It is filled at startup and read
// concurrently afterwards.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]Engine
}

func NewRegistry() *Registry {
	return &Registry{engines: make(map[string]Engine)}
}

// Register adds e under its name. Names are unique.
func (r *Registry) Register(e Engine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.engines[e.Name()]; ok {
		return fmt.Errorf("engine %q already registered", e.Name())
	}
	r.engines[e.Name()] = e
	return nil
}

func (r *Registry) Get(name string) (Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.engines[name]
	return e, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Names returns the registered engine names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
