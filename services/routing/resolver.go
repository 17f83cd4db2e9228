package routing

import "errors"

// ErrEmptyRoute is returned when resolution yields no usable provider
var ErrEmptyRoute = errors.New("resolved route contains no enabled provider")

// ProviderSet answers whether a provider name is currently registered and
// enabled. Satisfied by *providers.Registry.
type ProviderSet interface {
	Has(name string) bool
}

// Policy is the declarative routing intent: purpose routes plus one default
// route used when a purpose has no explicit entry. Names listed here may
// refer to providers that are disabled at runtime; resolution filters the
// intent against actual availability.
type Policy struct {
	// Routes maps a purpose to an ordered provider-name list
	Routes map[string][]string

	// DefaultRoute is used for any purpose without an explicit entry
	DefaultRoute []string
}

// Resolver turns (purpose, override, enabled-provider-set) into an effective
// ordered route. Resolution is a pure function of its inputs: identical
// inputs always yield an identical route.
type Resolver struct {
	policy Policy
}

// NewResolver creates a resolver over an immutable policy
func NewResolver(policy Policy) *Resolver {
	return &Resolver{policy: policy}
}

// Resolve returns the effective ordered provider-name list for a purpose.
//
// Precedence: explicit caller override, then the static purpose route, then
// the default route. Each candidate list is filtered against the enabled
// provider set, preserving relative order. An empty result is an error and
// must not be attempted.
func (r *Resolver) Resolve(purpose string, override []string, enabled ProviderSet) ([]string, error) {
	candidates := override
	if len(candidates) == 0 {
		if route, ok := r.policy.Routes[purpose]; ok {
			candidates = route
		} else {
			candidates = r.policy.DefaultRoute
		}
	}

	route := make([]string, 0, len(candidates))
	for _, name := range candidates {
		if enabled.Has(name) {
			route = append(route, name)
		}
	}

	if len(route) == 0 {
		return nil, ErrEmptyRoute
	}
	return route, nil
}
