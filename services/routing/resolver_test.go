package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// nameSet is a trivial ProviderSet for tests
type nameSet map[string]bool

func (s nameSet) Has(name string) bool { return s[name] }

func TestResolvePurposeRoute(t *testing.T) {
	r := NewResolver(Policy{
		Routes: map[string][]string{
			"chat":                {"local", "deepseek"},
			"propose_fields_only": {"deepseek"},
		},
		DefaultRoute: []string{"deepseek"},
	})

	route, err := r.Resolve("chat", nil, nameSet{"local": true, "deepseek": true})
	require.NoError(t, err)
	assert.Equal(t, []string{"local", "deepseek"}, route)
}

func TestResolveFallsBackToDefaultRoute(t *testing.T) {
	r := NewResolver(Policy{
		Routes:       map[string][]string{"chat": {"local"}},
		DefaultRoute: []string{"deepseek", "openai"},
	})

	route, err := r.Resolve("analyze_ticket", nil, nameSet{"deepseek": true, "openai": true})
	require.NoError(t, err)
	assert.Equal(t, []string{"deepseek", "openai"}, route)
}

func TestResolveFiltersDisabledPreservingOrder(t *testing.T) {
	r := NewResolver(Policy{
		DefaultRoute: []string{"local", "deepseek", "openai"},
	})

	route, err := r.Resolve("chat", nil, nameSet{"deepseek": true, "openai": true})
	require.NoError(t, err)
	assert.Equal(t, []string{"deepseek", "openai"}, route)
}

func TestResolveOverrideWinsOverPolicy(t *testing.T) {
	r := NewResolver(Policy{
		Routes:       map[string][]string{"chat": {"local"}},
		DefaultRoute: []string{"deepseek"},
	})

	route, err := r.Resolve("chat", []string{"openai", "deepseek"}, nameSet{"openai": true, "deepseek": true, "local": true})
	require.NoError(t, err)
	assert.Equal(t, []string{"openai", "deepseek"}, route)
}

func TestResolveEmptyRouteIsError(t *testing.T) {
	r := NewResolver(Policy{DefaultRoute: []string{"local"}})

	route, err := r.Resolve("chat", nil, nameSet{})
	assert.Nil(t, route)
	assert.ErrorIs(t, err, ErrEmptyRoute)
}

func TestResolveExplicitEmptyPurposeRouteIsError(t *testing.T) {
	// An explicit empty entry means the purpose is routed nowhere; it must
	// not silently fall through to the default route.
	r := NewResolver(Policy{
		Routes:       map[string][]string{"chat": {}},
		DefaultRoute: []string{"deepseek"},
	})

	_, err := r.Resolve("chat", nil, nameSet{"deepseek": true})
	assert.ErrorIs(t, err, ErrEmptyRoute)
}

func TestResolveIsDeterministic(t *testing.T) {
	r := NewResolver(Policy{DefaultRoute: []string{"a", "b", "c"}})
	enabled := nameSet{"a": true, "b": true, "c": true}

	first, err := r.Resolve("chat", nil, enabled)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := r.Resolve("chat", nil, enabled)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
