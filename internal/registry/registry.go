package registry

import (
	"fmt"
	"sync"
)

// DuplicateError is returned when an identity is registered twice.
type DuplicateError struct {
	ID       string
	Existing string
	Incoming string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("step %q already registered by %s (rejected registration from %s)", e.ID, e.Existing, e.Incoming)
}

// Registry records step identities with the name of whatever registered
// them. It is safe for concurrent use.
type Registry struct {
	mu     sync.Mutex
	owners map[string]string
	order  []string
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{owners: make(map[string]string)}
}

// Register claims id on behalf of owner.
func (r *Registry) Register(id, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.owners[id]; ok {
		return &DuplicateError{ID: id, Existing: existing, Incoming: owner}
	}
	r.owners[id] = owner
	r.order = append(r.order, id)
	return nil
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.owners[id]
	return ok
}

// Owner returns who registered id.
func (r *Registry) Owner(id string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	owner, ok := r.owners[id]
	return owner, ok
}

// IDs returns all identities in registration order.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}
