package crawler

import (
	"context"
	"fmt"

	"taxsync/internal/browser"
	"taxsync/internal/config"
	"taxsync/internal/crawler/parsers"
	"taxsync/internal/models"
)

var sccAddressInputs = []string{"#mat-input-1", "#mat-input-0", "input[type='text']", "input"}

// SantaClaraAdapter scripts the county's secured property tax search.
type SantaClaraAdapter struct {
	portal config.PortalConfig
	parser *parsers.SantaClaraParser
}

// NewSantaClaraAdapter creates the adapter.
func NewSantaClaraAdapter(portal config.PortalConfig) *SantaClaraAdapter {
	return &SantaClaraAdapter{portal: portal, parser: parsers.NewSantaClaraParser()}
}

// Provider returns the provider tag.
func (a *SantaClaraAdapter) Provider() models.Provider {
	return models.ProviderSantaClara
}

// Scrape searches by address and parses the installment blocks.
func (a *SantaClaraAdapter) Scrape(ctx context.Context, s *Session, prop models.Property) (*models.ScrapeResult, error) {
	d := s.Driver()

	if err := s.Open(ctx, a.portal.URL); err != nil {
		return nil, err
	}

	if err := s.Pause(ctx); err != nil {
		return nil, err
	}

	s.Capture("landing")

	secured := browser.CSS(`a[href="/search/1"]`)
	if n, _ := d.Count(ctx, secured); n > 0 {
		s.Logger().Info("🔗 Following Secured Property Tax link")

		if err := d.Click(ctx, secured); err != nil {
			return nil, err
		}

		if err := s.Pause(ctx); err != nil {
			return nil, err
		}

		s.WaitIdle(ctx)
		s.Capture("secured-search")
	}

	input, ok := s.FirstPresent(ctx, sccAddressInputs...)
	if !ok {
		return nil, fmt.Errorf("%w: address input", browser.ErrElementNotFound)
	}

	s.Logger().Info(fmt.Sprintf("🔎 Searching for: %s", prop.Key()))

	if err := d.Fill(ctx, input, prop.Key()); err != nil {
		return nil, err
	}

	if err := s.ShortPause(ctx); err != nil {
		return nil, err
	}

	if err := a.submit(ctx, s, input); err != nil {
		return nil, err
	}

	if err := s.Pause(ctx); err != nil {
		return nil, err
	}

	s.WaitIdle(ctx)
	s.Capture("results")

	text, err := s.Text(ctx)
	if err != nil {
		return nil, err
	}

	return a.parser.Parse(text, prop), nil
}

// submit clicks the search icon, falling back to Enter in the input.
func (a *SantaClaraAdapter) submit(ctx context.Context, s *Session, input browser.Target) error {
	button := browser.CSS("button.mat-mdc-icon-button, button[type='submit']")

	if err := s.Driver().Click(ctx, button); err == nil {
		return nil
	}

	s.Logger().Debug("Search button not found, pressing Enter")

	return s.Driver().Press(ctx, input, "Enter")
}
