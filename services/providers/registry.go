package providers

import "errors"

var (
	// ErrProviderNotFound is returned when a provider is not registered
	ErrProviderNotFound = errors.New("provider not found")

	// ErrProviderAlreadyRegistered is returned when a duplicate name is registered
	ErrProviderAlreadyRegistered = errors.New("provider already registered")

	// ErrEmptyProviderName is returned when a provider reports an empty name
	ErrEmptyProviderName = errors.New("provider name cannot be empty")
)

// Registry is the set of configured, enabled providers.
//
// It is built exactly once at process start and never mutated afterward,
// so reads require no locking. Configuration changes require a restart.
type Registry struct {
	providers map[string]Provider
	names     []string // registration order, for deterministic listings
}

// NewRegistry builds an immutable registry from the given providers.
// Only enabled providers should be passed in; a disabled provider simply
// never enters the registry.
func NewRegistry(list ...Provider) (*Registry, error) {
	r := &Registry{
		providers: make(map[string]Provider, len(list)),
		names:     make([]string, 0, len(list)),
	}

	for _, p := range list {
		name := p.Name()
		if name == "" {
			return nil, ErrEmptyProviderName
		}
		if _, exists := r.providers[name]; exists {
			return nil, ErrProviderAlreadyRegistered
		}
		r.providers[name] = p
		r.names = append(r.names, name)
	}

	return r, nil
}

// Get retrieves a provider by name
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, ErrProviderNotFound
	}
	return p, nil
}

// Has reports whether a provider with the given name is registered
func (r *Registry) Has(name string) bool {
	_, ok := r.providers[name]
	return ok
}

// Names returns all registered provider names in registration order
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Count returns the number of registered providers
func (r *Registry) Count() int {
	return len(r.providers)
}
