package crawler

import (
	"context"
	"fmt"
	"strings"

	"taxsync/internal/browser"
	"taxsync/internal/config"
	"taxsync/internal/crawler/parsers"
	"taxsync/internal/models"
	"taxsync/pkg/utils"
)

var (
	axisSearchButton = `[title*="Search"], [title*="Find"], .esri-search, button:has-text("Search")`
	axisSearchInputs = []string{
		"input.esri-search__input",
		`input[type="search"]`,
		`input[placeholder*="Find"]`,
		`input[placeholder*="Search"]`,
		`input[type="text"]`,
	}
	axisSuggestions = `.esri-search__suggestions-list li, .autocomplete-suggestion, [role="option"]`
)

// AxisGISAdapter scripts an AxisGIS town map application.
type AxisGISAdapter struct {
	portal config.PortalConfig
	parser *parsers.AxisGISParser
}

// NewAxisGISAdapter creates the adapter.
func NewAxisGISAdapter(portal config.PortalConfig) *AxisGISAdapter {
	return &AxisGISAdapter{portal: portal, parser: parsers.NewAxisGISParser()}
}

// Provider returns the provider tag.
func (a *AxisGISAdapter) Provider() models.Provider {
	return models.ProviderVermontAxisGIS
}

// Scrape opens the map, searches by parcel (or address) and reads the property panel.
func (a *AxisGISAdapter) Scrape(ctx context.Context, s *Session, prop models.Property) (*models.ScrapeResult, error) {
	d := s.Driver()

	if err := s.Open(ctx, a.portal.URL); err != nil {
		return nil, err
	}

	// The map renders well after the load event.
	if err := s.LongPause(ctx); err != nil {
		return nil, err
	}

	s.Capture("map")

	button := browser.CSS(axisSearchButton)
	if n, _ := d.Count(ctx, button); n > 0 {
		s.Logger().Info("🔍 Opening map search")

		if err := d.Click(ctx, button); err != nil {
			return nil, err
		}

		if err := s.ShortPause(ctx); err != nil {
			return nil, err
		}
	}

	input, ok := s.FirstPresent(ctx, axisSearchInputs...)
	if !ok {
		return nil, fmt.Errorf("%w: map search input", browser.ErrElementNotFound)
	}

	term := prop.Parcel
	if term == "" {
		term = prop.Address
	}

	s.Logger().Info(fmt.Sprintf("🔎 Searching map for: %s", term))

	if err := d.Click(ctx, input); err != nil {
		return nil, err
	}

	if err := d.Fill(ctx, input, term); err != nil {
		return nil, err
	}

	if err := s.ShortPause(ctx); err != nil {
		return nil, err
	}

	suggestions := browser.CSS(axisSuggestions)

	texts, err := d.Texts(ctx, suggestions)
	if err != nil {
		return nil, err
	}

	if len(texts) > 0 {
		pick := matchingSuggestion(texts, term)
		s.Logger().Info(fmt.Sprintf("Found %d suggestions, choosing %q", len(texts), texts[pick]))

		if err := d.Click(ctx, suggestions.Nth(pick)); err != nil {
			return nil, err
		}
	} else if err := d.Press(ctx, input, "Enter"); err != nil {
		return nil, err
	}

	if err := s.Pause(ctx); err != nil {
		return nil, err
	}

	s.Capture("parcel")

	text, err := s.Text(ctx)
	if err != nil {
		return nil, err
	}

	return a.parser.Parse(text, prop), nil
}

// matchingSuggestion returns the index of the first suggestion naming term,
// ignoring separators and case, or 0 when none does.
func matchingSuggestion(suggestions []string, term string) int {
	helper := utils.NewStringHelper()
	want := strings.ToUpper(helper.StripNonAlnum(term))

	for i, text := range suggestions {
		if want != "" && strings.Contains(strings.ToUpper(helper.StripNonAlnum(text)), want) {
			return i
		}
	}

	return 0
}
