package crawler

import (
	"context"
	"fmt"

	"taxsync/internal/browser"
	"taxsync/internal/config"
	"taxsync/internal/crawler/parsers"
	"taxsync/internal/models"
)

// CityHallAdapter scripts the City Hall Systems e-pay portal for one municipality.
type CityHallAdapter struct {
	portal config.PortalConfig
	parser *parsers.CityHallParser
}

// NewCityHallAdapter creates the adapter.
func NewCityHallAdapter(portal config.PortalConfig) *CityHallAdapter {
	return &CityHallAdapter{portal: portal, parser: parsers.NewCityHallParser()}
}

// Provider returns the provider tag.
func (a *CityHallAdapter) Provider() models.Provider {
	return models.ProviderCityHall
}

// Scrape picks the municipality, switches to real-estate bills and searches by address.
func (a *CityHallAdapter) Scrape(ctx context.Context, s *Session, prop models.Property) (*models.ScrapeResult, error) {
	d := s.Driver()

	if err := s.Open(ctx, a.portal.URL); err != nil {
		return nil, err
	}

	if err := s.ShortPause(ctx); err != nil {
		return nil, err
	}

	s.Logger().Info(fmt.Sprintf("🏛️  Selecting municipality %s", a.portal.Municipality))

	muni := browser.CSS(`input[type="text"]`).Nth(1)
	if err := d.Fill(ctx, muni, a.portal.Municipality); err != nil {
		return nil, err
	}

	if err := s.ShortPause(ctx); err != nil {
		return nil, err
	}

	for _, key := range []string{"ArrowDown", "Enter"} {
		if err := d.Press(ctx, muni, key); err != nil {
			return nil, err
		}
	}

	if err := s.Pause(ctx); err != nil {
		return nil, err
	}

	s.Capture("municipality")

	if err := d.Click(ctx, browser.CSS(`button:has-text("View/Pay bills")`)); err != nil {
		return nil, err
	}

	if err := s.Pause(ctx); err != nil {
		return nil, err
	}

	if err := a.selectRealEstate(ctx, s); err != nil {
		return nil, err
	}

	if err := s.Pause(ctx); err != nil {
		return nil, err
	}

	s.Capture("bill-search")
	s.Logger().Info(fmt.Sprintf("🔎 Searching for: %s", prop.Key()))

	if err := d.Fill(ctx, browser.CSS("#form_for"), prop.Key()); err != nil {
		return nil, err
	}

	if err := d.Click(ctx, browser.CSS(`button:has-text("Search Bill")`)); err != nil {
		return nil, err
	}

	if err := s.Pause(ctx); err != nil {
		return nil, err
	}

	s.Capture("results")

	text, err := s.Text(ctx)
	if err != nil {
		return nil, err
	}

	return a.parser.Parse(text, prop), nil
}

// selectRealEstate calls the portal's bill-type switcher, falling back to the
// Real Estate button when the script hook is gone.
func (a *CityHallAdapter) selectRealEstate(ctx context.Context, s *Session) error {
	_, err := s.Driver().Evaluate(ctx, `selectionTypes("re")`)
	if err == nil {
		return nil
	}

	s.Logger().Debug(fmt.Sprintf("selectionTypes hook failed: %v", err))

	return s.Driver().Click(ctx, browser.Role("button", "Real Estate"))
}
