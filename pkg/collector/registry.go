package collector

import "sync"

// entry binds a collector to the name it was registered under. The slot name
// survives promotion: replacing an entry swaps the collector but keeps the
// name and the registration order position.
type entry struct {
	name string
	coll Collector
}

// Registry is the process-wide set of registered collectors, keyed by name.
//
// Reads during an assembly round go through Snapshot, which returns a stable
// copy in registration order. Mutation (Register, Replace, Remove) happens
// under the write lock, so an in-flight round observes either the old or the
// new registration, never a partial update.
type Registry struct {
	mu      sync.RWMutex
	entries []entry
	index   map[string]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Register adds a collector under its metadata name.
// Returns ErrDuplicateName if the name is already taken.
func (r *Registry) Register(c Collector) error {
	if c == nil {
		return ErrNilCollector
	}
	name := c.Metadata().Name
	if name == "" {
		return ErrEmptyName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.index[name]; exists {
		return ErrDuplicateName
	}
	r.index[name] = len(r.entries)
	r.entries = append(r.entries, entry{name: name, coll: c})
	return nil
}

// Replace atomically swaps the collector registered under name. The slot
// keeps its name and registration order position; the previous collector is
// no longer reachable through the registry. This is the promotion primitive.
func (r *Registry) Replace(name string, c Collector) error {
	if c == nil {
		return ErrNilCollector
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i, exists := r.index[name]
	if !exists {
		return ErrNotRegistered
	}
	r.entries[i] = entry{name: name, coll: c}
	return nil
}

// Remove deletes the registration under name.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, exists := r.index[name]
	if !exists {
		return ErrNotRegistered
	}
	r.entries = append(r.entries[:i], r.entries[i+1:]...)
	delete(r.index, name)
	for j := i; j < len(r.entries); j++ {
		r.index[r.entries[j].name] = j
	}
	return nil
}

// Get returns the collector registered under name.
func (r *Registry) Get(name string) (Collector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, exists := r.index[name]
	if !exists {
		return nil, false
	}
	return r.entries[i].coll, true
}

// Snapshot returns the registered collectors as a copy in registration
// order. The slice is owned by the caller; later registry mutation does not
// affect it.
func (r *Registry) Snapshot() []Collector {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Collector, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.coll
	}
	return out
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.name
	}
	return out
}

// Len returns the number of registrations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
