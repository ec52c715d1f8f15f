package session

import (
	"sync"
	"time"
)

// Registry keeps one Store per browser session so concurrent requests of
// the same browser share state and subscriptions.
type Registry struct {
	mu      sync.Mutex
	stores  map[string]*Store
	factory func(id string) *Store
}

// NewRegistry builds a Registry creating stores with factory.
func NewRegistry(factory func(id string) *Store) *Registry {
	return &Registry{stores: make(map[string]*Store), factory: factory}
}

// Get returns the store for id, creating it on first use.
func (r *Registry) Get(id string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.stores[id]; ok {
		s.touch()
		return s
	}
	s := r.factory(id)
	r.stores[id] = s
	return s
}

// Forget drops the store for id.
func (r *Registry) Forget(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stores, id)
}

// Len returns the number of tracked stores.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

// Sweep drops stores idle for longer than idle that have no subscribers and
// returns how many were removed.
func (r *Registry) Sweep(now time.Time, idle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, s := range r.stores {
		if now.Sub(s.idleSince()) < idle || s.Subscribers() > 0 {
			continue
		}
		delete(r.stores, id)
		removed++
	}
	return removed
}
