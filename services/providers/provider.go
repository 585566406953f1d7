package providers

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"lyrics-sync-go/track"
)

// Role declares what kind of lyrics a provider returns.
type Role int

const (
	// RolePrimary providers return the lyrics themselves
	RolePrimary Role = iota
	// RoleTranslation providers return a translated track of someone else's lyrics
	RoleTranslation
)

func (r Role) String() string {
	if r == RoleTranslation {
		return "translation"
	}
	return "primary"
}

// Provider defines the interface that all lyrics sources must implement
type Provider interface {
	// Name returns the provider's identifier (e.g., "netease", "lrclib", "local")
	Name() string

	// Role reports whether the provider returns primary or translation lyrics
	Role() Role

	// Fetch looks up lyrics for the track. The context carries the per-call
	// timeout. A missing result is reported as ErrNotFound, never as an empty
	// LyricsResult.
	Fetch(ctx context.Context, t track.Metadata) (*LyricsResult, error)
}

// Registry holds all registered providers
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

var (
	globalRegistry *Registry
	registryOnce   sync.Once
)

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// GetRegistry returns the global provider registry
func GetRegistry() *Registry {
	registryOnce.Do(func() {
		globalRegistry = NewRegistry()
	})
	return globalRegistry
}

// Register adds a provider to the registry
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get retrieves a provider by name
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider not found: %s", name)
	}
	return p, nil
}

// List returns all registered provider names, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has checks if a provider is registered
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.providers[name]
	return ok
}

// Ordered resolves names to providers in the given order, keeping only those
// with the wanted role. Unknown names are returned separately so the caller
// can report them.
func (r *Registry) Ordered(names []string, role Role) ([]Provider, []string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Provider
	var unknown []string
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		p, ok := r.providers[name]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		if p.Role() == role {
			out = append(out, p)
		}
	}
	return out, unknown
}

// Register is a convenience function to register a provider in the global registry
func Register(p Provider) {
	GetRegistry().Register(p)
}

// Get is a convenience function to get a provider from the global registry
func Get(name string) (Provider, error) {
	return GetRegistry().Get(name)
}

// List is a convenience function to list all providers in the global registry
func List() []string {
	return GetRegistry().List()
}

// Has is a convenience function to check if a provider exists in the global registry
func Has(name string) bool {
	return GetRegistry().Has(name)
}

// Ordered is a convenience function over the global registry
func Ordered(names []string, role Role) ([]Provider, []string) {
	return GetRegistry().Ordered(names, role)
}
