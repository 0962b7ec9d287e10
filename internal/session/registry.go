package session

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Registry holds at most one open session per tenant. Concurrent first
// requests for a tenant share a single Open.
type Registry struct {
	deps Deps

	mu       sync.RWMutex
	sessions map[string]*Session
	opening  singleflight.Group
}

func NewRegistry(deps Deps) *Registry {
	return &Registry{deps: deps.withDefaults(), sessions: make(map[string]*Session)}
}

// Get returns the tenant's session, opening it on first use. A failed open
// is not cached.
func (r *Registry) Get(ctx context.Context, tenant string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[tenant]
	r.mu.RUnlock()
	if ok {
		return s, nil
	}

	v, err, _ := r.opening.Do(tenant, func() (interface{}, error) {
		r.mu.RLock()
		existing, ok := r.sessions[tenant]
		r.mu.RUnlock()
		if ok {
			return existing, nil
		}
		opened, err := Open(context.WithoutCancel(ctx), tenant, r.deps)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.sessions[tenant] = opened
		r.mu.Unlock()
		return opened, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

// Close signs the tenant out. It reports whether a session was open.
func (r *Registry) Close(ctx context.Context, tenant string) bool {
	r.mu.Lock()
	s, ok := r.sessions[tenant]
	delete(r.sessions, tenant)
	r.mu.Unlock()
	if ok {
		s.Close(ctx)
	}
	return ok
}

// CloseAll closes every open session.
func (r *Registry) CloseAll(ctx context.Context) {
	for _, tenant := range r.Tenants() {
		r.Close(ctx, tenant)
	}
}

// Tenants lists tenants with open sessions, sorted.
func (r *Registry) Tenants() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.sessions))
	for tenant := range r.sessions {
		out = append(out, tenant)
	}
	sort.Strings(out)
	return out
}
