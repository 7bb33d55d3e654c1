package provider

import (
	"fmt"

	"github.com/chandama/touken-west-sub001/internal/user"
)

// Registry holds all configured OAuth providers and allows
// lookup by provider name. It performs no auth logic itself.
type Registry struct {
	providers map[user.Provider]OAuthProvider
}

// NewRegistry registers the given OAuth providers by name.
// Provider names must be unique.
func NewRegistry(list ...OAuthProvider) *Registry {
	m := make(map[user.Provider]OAuthProvider)
	for _, p := range list {
		m[p.Name()] = p
	}
	return &Registry{providers: m}
}

// Get returns the OAuth provider by name or an error if not registered.
func (r *Registry) Get(name string) (OAuthProvider, error) {
	p, ok := r.providers[user.Provider(name)]
	if !ok {
		return nil, fmt.Errorf("unknown oauth provider: %s", name)
	}
	return p, nil
}

// Configured reports whether name is registered.
func (r *Registry) Configured(name user.Provider) bool {
	_, ok := r.providers[name]
	return ok
}

// Names lists registered providers in user.Providers order.
func (r *Registry) Names() []string {
	names := []string{}
	for _, p := range user.Providers() {
		if r.Configured(p) {
			names = append(names, string(p))
		}
	}
	return names
}
