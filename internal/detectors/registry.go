package detectors

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a fresh detector instance. Each Get call invokes the
// factory so callers never share state through a returned detector.
type Factory func() (Detector, error)

// Registry maps unique algorithm names to detector factories. It is
// populated explicitly at bootstrap (see Default); there is no init-time
// self-registration, so construction order is plain and visible.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Default returns a registry with every built-in detector registered under
// its default config.
func Default() (*Registry, error) {
	r := NewRegistry()
	if err := r.Register(func() (Detector, error) {
		return NewLayeringDetector(DefaultLayeringConfig())
	}); err != nil {
		return nil, err
	}
	if err := r.Register(func() (Detector, error) {
		return NewWashTradingDetector(DefaultWashTradingConfig())
	}); err != nil {
		return nil, err
	}
	return r, nil
}

// Register adds a detector factory, keyed by the name of the detector it
// produces. It rejects a nil factory, a factory that fails or produces nil,
// an empty name, and a duplicate name.
func (r *Registry) Register(factory Factory) error {
	if factory == nil {
		return fmt.Errorf("register: nil factory")
	}
	probe, err := factory()
	if err != nil {
		return fmt.Errorf("register: factory failed: %w", err)
	}
	if probe == nil {
		return fmt.Errorf("register: factory produced no detector")
	}
	name := probe.Name()
	if name == "" {
		return fmt.Errorf("register: detector name is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("register: algorithm %q already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// Get returns a fresh instance of the named detector.
func (r *Registry) Get(name string) (Detector, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown algorithm %q", name)
	}
	return factory()
}

// List returns the registered names, alphabetically sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetAll returns fresh instances for the enabled names. A nil slice means
// all registered detectors; an empty non-nil slice means none; an unknown
// name fails the whole call.
func (r *Registry) GetAll(enabled []string) ([]Detector, error) {
	if enabled == nil {
		enabled = r.List()
	}
	out := make([]Detector, 0, len(enabled))
	for _, name := range enabled {
		d, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
