// Package provider implements the registry and shared helpers for the
// per-provider adapters.
package provider

import (
	"fmt"
	"slices"
	"sync"

	gateway "github.com/eugener/radagast/internal"
)

// Registry maps canonical provider ids to gateway.Adapter instances.
// It is safe for concurrent use. Enabled iterates ids in lexicographic
// order, which fixes the failover order.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]gateway.Adapter
}

// NewRegistry returns an empty, ready-to-use Registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]gateway.Adapter)}
}

// Register adds an adapter under its canonical id.
// It overwrites any previously registered adapter with the same id.
func (r *Registry) Register(a gateway.Adapter) {
	r.mu.Lock()
	r.adapters[a.Name()] = a
	r.mu.Unlock()
}

// Get returns the adapter registered under id, or an error if not found.
func (r *Registry) Get(id string) (gateway.Adapter, error) {
	r.mu.RLock()
	a, ok := r.adapters[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("provider %q not registered", id)
	}
	return a, nil
}

// Enabled returns all registered provider ids in lexicographic order.
func (r *Registry) Enabled() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.adapters))
	for id := range r.adapters {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	slices.Sort(ids)
	return ids
}

// Len returns the number of registered adapters.
func (r *Registry) Len() int {
	r.mu.RLock()
	n := len(r.adapters)
	r.mu.RUnlock()
	return n
}
