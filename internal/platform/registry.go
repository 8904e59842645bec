package platform

import (
	"fmt"
	"slices"
	"sort"

	"bookhub/pkg/models"
	"bookhub/pkg/utils"
)

// Registry holds the registered adapters keyed by platform id. Group tag
// and scale are validated once here, at startup, never at call time.
type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

func (r *Registry) Register(a Adapter) error {
	d := a.Descriptor()
	if d.ID == "" {
		return fmt.Errorf("register adapter: empty platform id")
	}
	if _, exists := r.adapters[d.ID]; exists {
		return fmt.Errorf("register adapter %q: duplicate platform id", d.ID)
	}
	if d.Scale <= 0 {
		return fmt.Errorf("register adapter %q: rating scale must be positive, got %v", d.ID, d.Scale)
	}
	if d.Group != models.GroupBrowser && d.Group != models.GroupNetwork {
		return fmt.Errorf("register adapter %q: unknown execution group %q", d.ID, d.Group)
	}
	r.adapters[d.ID] = a
	return nil
}

func (r *Registry) Get(id string) (Adapter, bool) {
	a, ok := r.adapters[id]
	return a, ok
}

// Descriptors returns all registered platforms in display order.
func (r *Registry) Descriptors() []models.PlatformDescriptor {
	out := make([]models.PlatformDescriptor, 0, len(r.adapters))
	for _, a := range r.adapters {
		out = append(out, a.Descriptor())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func (r *Registry) IDs() []string {
	descs := r.Descriptors()
	ids := make([]string, 0, len(descs))
	for _, d := range descs {
		ids = append(ids, d.ID)
	}
	return ids
}

// Default builds the registry with every known platform adapter, minus
// the ones disabled in config.
func Default(cfg utils.CrawlConfig) (*Registry, error) {
	r := NewRegistry()
	all := []Adapter{
		NewAladin(cfg),
		NewKyobo(cfg),
		NewYes24(cfg),
		NewSarak(cfg),
		NewWatcha(cfg),
		NewGoodreads(cfg),
		NewAmazon(cfg),
		NewLibraryThing(cfg),
	}
	for _, a := range all {
		if slices.Contains(cfg.DisabledPlatforms, a.Descriptor().ID) {
			continue
		}
		if err := r.Register(a); err != nil {
			return nil, err
		}
	}
	return r, nil
}
