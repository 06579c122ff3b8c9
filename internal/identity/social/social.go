// Package social defines the contract for external consent providers and the
// registry that holds the configured ones.
package social

import (
	"context"
	"sort"

	"golang.org/x/oauth2"
)

// Identity is the normalized result of a completed consent. Providers return
// identity facts only and never create or link accounts.
type Identity struct {
	Provider      string
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}

// Provider is an OAuth/OIDC consent provider.
type Provider interface {
	Name() string
	// AuthCodeURL returns the authorization URL for the state and S256 challenge.
	AuthCodeURL(state, challenge string) string
	Exchange(ctx context.Context, code, verifier string) (*Identity, error)
}

// Registry holds configured providers by name.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry(list ...Provider) *Registry {
	m := make(map[string]Provider, len(list))
	for _, p := range list {
		m[p.Name()] = p
	}
	return &Registry{providers: m}
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (Provider, bool) {
	if r == nil {
		return nil, false
	}
	p, ok := r.providers[name]
	return p, ok
}

// Names lists registered providers in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.providers))
	for name := range r.providers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// NewPKCE returns a fresh verifier and its S256 challenge.
func NewPKCE() (verifier, challenge string) {
	verifier = oauth2.GenerateVerifier()
	return verifier, oauth2.S256ChallengeFromVerifier(verifier)
}
