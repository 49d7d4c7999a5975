package courier

import (
	"fmt"
	"sync"
)

// Factory builds a Tracker bound to one tenant's credentials. Credentials are
// tenant-scoped, so trackers are constructed fresh per order rather than
// cached process-wide.
type Factory func(creds Credentials) (Tracker, error)

// Registry maps carrier names to tracker factories.
type Registry struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

// NewRegistry creates a new tracker registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a carrier factory to the registry.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Supports reports whether a factory is registered for the carrier.
func (r *Registry) Supports(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// New constructs a tracker for the named carrier using the given credentials.
func (r *Registry) New(name string, creds Credentials) (Tracker, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCarrierNotFound, name)
	}
	return f(creds)
}

// Names returns the names of all registered carriers.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	return names
}

// Count returns the number of registered carriers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.factories)
}
