package agent

import (
	"fmt"
	"sync"
)

// Registry indexes agent definitions by role. It is populated once at startup
// and read-mostly afterwards; the mutex makes it safe for concurrent lookups
// during overlapping sessions.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]*Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]*Definition)}
}

// Register adds (or replaces) a definition under its role.
func (r *Registry) Register(d *Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[d.Role()] = d
}

// Get returns the definition for a role, or nil if absent.
func (r *Registry) Get(role string) *Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.agents[role]
}

// Require returns the definition for a role or an error naming the missing role.
func (r *Registry) Require(role string) (*Definition, error) {
	if d := r.Get(role); d != nil {
		return d, nil
	}
	return nil, fmt.Errorf("no agent registered for role: %s", role)
}

// Roles returns the registered role ids.
func (r *Registry) Roles() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	roles := make([]string, 0, len(r.agents))
	for role := range r.agents {
		roles = append(roles, role)
	}
	return roles
}

// All returns every registered definition.
func (r *Registry) All() []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]*Definition, 0, len(r.agents))
	for _, d := range r.agents {
		all = append(all, d)
	}
	return all
}
