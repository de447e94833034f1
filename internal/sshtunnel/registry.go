package sshtunnel

import "sync"

// Registry deduplicates tunnels by key so that many connections through
// the same SSH hop to the same target share one forward.
type Registry struct {
	mu      sync.Mutex
	tunnels map[string]*Tunnel
}

func NewRegistry() *Registry {
	return &Registry{tunnels: make(map[string]*Tunnel)}
}

// GetOrCreate returns the tunnel registered under key, calling factory to
// build one if none exists. The lock is never held across factory: two
// concurrent callers may both build, in which case the loser's tunnel is
// stopped and the winner's is returned to both.
func (r *Registry) GetOrCreate(key string, factory func() (*Tunnel, error)) (*Tunnel, error) {
	r.mu.Lock()
	if t, ok := r.tunnels[key]; ok {
		r.mu.Unlock()
		return t, nil
	}
	r.mu.Unlock()

	t, err := factory()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if existing, ok := r.tunnels[key]; ok {
		r.mu.Unlock()
		t.Stop()
		return existing, nil
	}
	r.tunnels[key] = t
	r.mu.Unlock()
	return t, nil
}

// Get returns the registered tunnel for key, if any.
func (r *Registry) Get(key string) (*Tunnel, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tunnels[key]
	return t, ok
}

// Evict stops and removes the tunnel for key. Missing keys are a no-op.
func (r *Registry) Evict(key string) {
	r.mu.Lock()
	t, ok := r.tunnels[key]
	delete(r.tunnels, key)
	r.mu.Unlock()
	if ok {
		t.Stop()
	}
}

// StopAll tears down every registered tunnel. Called on app shutdown.
func (r *Registry) StopAll() {
	r.mu.Lock()
	tunnels := make([]*Tunnel, 0, len(r.tunnels))
	for _, t := range r.tunnels {
		tunnels = append(tunnels, t)
	}
	r.tunnels = make(map[string]*Tunnel)
	r.mu.Unlock()
	for _, t := range tunnels {
		t.Stop()
	}
}

// Sweep drops tunnels whose local port no longer accepts connections,
// e.g. because the backing ssh process died. The liveness probe dials,
// so it runs outside the lock on a snapshot. Returns how many were
// removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	snapshot := make(map[string]*Tunnel, len(r.tunnels))
	for key, t := range r.tunnels {
		snapshot[key] = t
	}
	r.mu.Unlock()

	var removed []*Tunnel
	for key, t := range snapshot {
		if t.Alive() {
			continue
		}
		r.mu.Lock()
		// Only remove if the slot still holds the tunnel we probed.
		if r.tunnels[key] == t {
			delete(r.tunnels, key)
			removed = append(removed, t)
		}
		r.mu.Unlock()
	}

	for _, t := range removed {
		t.Stop()
	}
	return len(removed)
}
