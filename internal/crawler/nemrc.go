package crawler

import (
	"context"
	"fmt"
	"strings"

	"taxsync/internal/browser"
	"taxsync/internal/config"
	"taxsync/internal/crawler/parsers"
	"taxsync/internal/models"
)

// NEMRCAdapter scripts a NEMRC town grand-list search.
// Field order on the search form: parcel id, owner name, street number, street name.
type NEMRCAdapter struct {
	portal config.PortalConfig
	parser *parsers.NEMRCParser
}

// NewNEMRCAdapter creates the adapter.
func NewNEMRCAdapter(portal config.PortalConfig) *NEMRCAdapter {
	return &NEMRCAdapter{portal: portal, parser: parsers.NewNEMRCParser()}
}

// Provider returns the provider tag.
func (a *NEMRCAdapter) Provider() models.Provider {
	return models.ProviderVermontNEMRC
}

// SplitStreetAddress separates a leading house number from the street name.
func SplitStreetAddress(address string) (string, string) {
	address = strings.TrimSpace(address)

	number, rest, found := strings.Cut(address, " ")
	if !found || strings.Trim(number, "0123456789") != "" {
		return "", address
	}

	return number, strings.TrimSpace(rest)
}

// Scrape searches by street number and name, opens the matching detail page and parses it.
func (a *NEMRCAdapter) Scrape(ctx context.Context, s *Session, prop models.Property) (*models.ScrapeResult, error) {
	d := s.Driver()

	if err := s.Open(ctx, a.portal.URL); err != nil {
		return nil, err
	}

	if err := s.ShortPause(ctx); err != nil {
		return nil, err
	}

	number, street := SplitStreetAddress(prop.Address)
	inputs := browser.CSS(`input[type="text"]`)

	count, err := d.Count(ctx, inputs)
	if err != nil {
		return nil, err
	}

	s.Logger().Info(fmt.Sprintf("🔎 Searching for: %s (%d text inputs)", prop.Address, count))

	if number != "" && count >= 3 {
		if err := d.Fill(ctx, inputs.Nth(2), number); err != nil {
			return nil, err
		}
	}

	if count < 4 {
		return nil, fmt.Errorf("%w: street name field (found %d inputs)", browser.ErrElementNotFound, count)
	}

	if err := d.Fill(ctx, inputs.Nth(3), street); err != nil {
		return nil, err
	}

	if err := d.Click(ctx, browser.CSS(`input[type="submit"], button[type="submit"]`)); err != nil {
		return nil, err
	}

	if err := s.Pause(ctx); err != nil {
		return nil, err
	}

	s.Capture("search-results")

	found, err := a.openDetail(ctx, s, number, street)
	if err != nil {
		return nil, err
	}

	if !found {
		text, err := s.Text(ctx)
		if err != nil {
			return nil, err
		}

		result := &models.ScrapeResult{Provider: a.Provider(), Query: prop}
		result.Fail(models.CodeParseMismatch, "property not found in search results")
		result.Snapshot = text

		return result, nil
	}

	if err := s.ShortPause(ctx); err != nil {
		return nil, err
	}

	s.Capture("detail")

	text, err := s.Text(ctx)
	if err != nil {
		return nil, err
	}

	return a.parser.Parse(text, prop), nil
}

// openDetail clicks the result row for the property, or the first
// "View Detail" link when no row matches. It reports false when the search
// returned nothing to open.
func (a *NEMRCAdapter) openDetail(ctx context.Context, s *Session, number, street string) (bool, error) {
	d := s.Driver()

	if number != "" {
		prefix := strings.ToUpper(street)
		if len(prefix) > 6 {
			prefix = prefix[:6]
		}

		row := browser.CSS(fmt.Sprintf(`tr:has-text(%q):has-text(%q) a`, number, prefix))
		if n, _ := d.Count(ctx, row); n > 0 {
			s.Logger().Info("📋 Opening matching result row")

			return true, d.Click(ctx, row)
		}
	}

	links := browser.CSS(`a:has-text("View Detail")`)

	n, err := d.Count(ctx, links)
	if err != nil {
		return false, err
	}

	if n == 0 {
		return false, nil
	}

	s.Logger().Info(fmt.Sprintf("📋 Found %d View Detail links, opening first", n))

	return true, d.Click(ctx, links)
}
