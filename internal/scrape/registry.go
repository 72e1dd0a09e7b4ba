package scrape

import (
	"fmt"
	"sort"
	"sync"
)

// Registry resolves adapters by platform name. Adapters are registered at
// startup; resolution is tagged dispatch, not inheritance.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[string]Adapter),
	}
}

// Register binds an adapter to its platform name. Registering the same
// platform twice is a configuration mistake and returns an error rather
// than silently replacing the previous adapter.
func (r *Registry) Register(adapter Adapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	platform := adapter.Platform()
	if _, exists := r.adapters[platform]; exists {
		return fmt.Errorf("%w: %s", ErrPlatformAlreadyRegistered, platform)
	}
	r.adapters[platform] = adapter
	return nil
}

// Resolve returns the adapter for the given platform.
func (r *Registry) Resolve(platform string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapter, ok := r.adapters[platform]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPlatformUnknown, platform)
	}
	return adapter, nil
}

// Platforms returns the registered platform names in sorted order.
func (r *Registry) Platforms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
