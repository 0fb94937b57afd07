package providers

import (
	"context"
	"time"

	"github.com/enricharr/enricharr/internal/models"
)

// Provider wraps one external data source behind a uniform contract.
// Implementations are stateless between calls apart from credentials; they
// must honor the caller's context deadline and never block past it.
type Provider interface {
	Name() string
	Capabilities() []models.Capability
	// Budget declares the provider's rate limit: n requests per window.
	Budget() (n int, window time.Duration)
	RequiresAuth() bool
	Fetch(ctx context.Context, target *models.Target, capability models.Capability) ([]models.Candidate, error)
}

// Config holds per-provider runtime options. Owned by configuration; the
// orchestrator only reads it.
type Config struct {
	Enabled  bool   `json:"enabled"`
	APIKey   string `json:"-"`
	Language string `json:"language"` // preferred candidate language, e.g. "en"
	Region   string `json:"region"`
}

// Registry is the set of constructed providers plus their configs.
type Registry struct {
	providers []Provider
	configs   map[string]Config
}

func NewRegistry() *Registry {
	return &Registry{configs: make(map[string]Config)}
}

// Register adds a provider with its config. Registration order is stable and
// becomes the fallback ordering for providers missing from a priority list.
func (r *Registry) Register(p Provider, cfg Config) {
	r.providers = append(r.providers, p)
	r.configs[p.Name()] = cfg
}

// Get returns the provider with the given name, or nil.
func (r *Registry) Get(name string) Provider {
	for _, p := range r.providers {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// Config returns the config for a provider name (zero value if unknown).
func (r *Registry) Config(name string) Config {
	return r.configs[name]
}

// SetEnabled flips a provider's enabled flag.
func (r *Registry) SetEnabled(name string, enabled bool) {
	cfg := r.configs[name]
	cfg.Enabled = enabled
	r.configs[name] = cfg
}

// All returns every registered provider in registration order.
func (r *Registry) All() []Provider {
	return r.providers
}

// EnabledFor returns the enabled providers that declare the capability.
// Providers requiring credentials are skipped when no API key is configured.
func (r *Registry) EnabledFor(capability models.Capability) []Provider {
	var out []Provider
	for _, p := range r.providers {
		cfg := r.configs[p.Name()]
		if !cfg.Enabled {
			continue
		}
		if p.RequiresAuth() && cfg.APIKey == "" {
			continue
		}
		if supports(p, capability) {
			out = append(out, p)
		}
	}
	return out
}

// EnabledNamesFor returns the names of enabled providers supplying a
// capability, in registration order. Used by priority-order validation.
func (r *Registry) EnabledNamesFor(capability models.Capability) []string {
	var names []string
	for _, p := range r.EnabledFor(capability) {
		names = append(names, p.Name())
	}
	return names
}

func supports(p Provider, capability models.Capability) bool {
	for _, c := range p.Capabilities() {
		if c == capability {
			return true
		}
	}
	return false
}
