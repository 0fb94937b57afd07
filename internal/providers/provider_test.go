package providers

import (
	"context"
	"testing"
	"time"

	"github.com/enricharr/enricharr/internal/models"
)

type stubProvider struct {
	name string
	caps []models.Capability
	auth bool
}

func (s *stubProvider) Name() string                      { return s.name }
func (s *stubProvider) Capabilities() []models.Capability { return s.caps }
func (s *stubProvider) Budget() (int, time.Duration)      { return 10, time.Minute }
func (s *stubProvider) RequiresAuth() bool                { return s.auth }
func (s *stubProvider) Fetch(ctx context.Context, target *models.Target, capability models.Capability) ([]models.Candidate, error) {
	return nil, nil
}

func TestEnabledForFiltersProviders(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubProvider{name: "open", caps: []models.Capability{models.CapPoster}},
		Config{Enabled: true})
	r.Register(&stubProvider{name: "disabled", caps: []models.Capability{models.CapPoster}},
		Config{Enabled: false})
	r.Register(&stubProvider{name: "keyless", caps: []models.Capability{models.CapPoster}, auth: true},
		Config{Enabled: true})
	r.Register(&stubProvider{name: "keyed", caps: []models.Capability{models.CapPoster}, auth: true},
		Config{Enabled: true, APIKey: "k"})
	r.Register(&stubProvider{name: "wrongcap", caps: []models.Capability{models.CapTrailer}},
		Config{Enabled: true})

	names := r.EnabledNamesFor(models.CapPoster)
	want := []string{"open", "keyed"}
	if len(names) != len(want) {
		t.Fatalf("EnabledNamesFor = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("EnabledNamesFor = %v, want %v", names, want)
			break
		}
	}
}

func TestSetEnabledFlipsSupply(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubProvider{name: "p", caps: []models.Capability{models.CapPoster}},
		Config{Enabled: true})

	if len(r.EnabledFor(models.CapPoster)) != 1 {
		t.Fatal("provider should supply while enabled")
	}
	r.SetEnabled("p", false)
	if len(r.EnabledFor(models.CapPoster)) != 0 {
		t.Error("disabled provider must not supply")
	}
}

func TestRegistryGet(t *testing.T) {
	r := NewRegistry()
	p := &stubProvider{name: "p"}
	r.Register(p, Config{})
	if r.Get("p") != p {
		t.Error("Get should return the registered provider")
	}
	if r.Get("missing") != nil {
		t.Error("Get on unknown name should return nil")
	}
}
