package crawler

import (
	"context"
	"errors"
	"fmt"

	"taxsync/internal/config"
	"taxsync/internal/models"
)

// ErrUnknownProvider is returned for a provider tag with no registered adapter.
var ErrUnknownProvider = errors.New("no adapter registered for provider")

// Adapter drives one jurisdiction's portal and parses what it shows.
// Scrape returns an error only for scrape-time failures (navigation, missing
// elements, timeouts); a property the portal does not know is a result with
// Success false.
type Adapter interface {
	Provider() models.Provider
	Scrape(ctx context.Context, session *Session, prop models.Property) (*models.ScrapeResult, error)
}

// Registry maps provider tags to adapters.
type Registry struct {
	adapters map[models.Provider]Adapter
	order    []models.Provider
}

// NewRegistry creates a registry holding adapters in the given order.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[models.Provider]Adapter, len(adapters))}

	for _, a := range adapters {
		r.Register(a)
	}

	return r
}

// Register adds or replaces the adapter for its provider.
func (r *Registry) Register(a Adapter) {
	if _, ok := r.adapters[a.Provider()]; !ok {
		r.order = append(r.order, a.Provider())
	}

	r.adapters[a.Provider()] = a
}

// Get returns the adapter for provider.
func (r *Registry) Get(provider models.Provider) (Adapter, error) {
	a, ok := r.adapters[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}

	return a, nil
}

// Providers lists registered providers in registration order.
func (r *Registry) Providers() []models.Provider {
	return append([]models.Provider(nil), r.order...)
}

// DefaultRegistry registers every jurisdiction adapter with its portal settings.
func DefaultRegistry(cfg *config.Config) *Registry {
	return NewRegistry(
		NewSantaClaraAdapter(cfg.Portal(models.ProviderSantaClara)),
		NewCityHallAdapter(cfg.Portal(models.ProviderCityHall)),
		NewNEMRCAdapter(cfg.Portal(models.ProviderVermontNEMRC)),
		NewAxisGISAdapter(cfg.Portal(models.ProviderVermontAxisGIS)),
		NewNYCAdapter(cfg.Portal(models.ProviderNYCFinance)),
	)
}
