package crawler

import (
	"context"
	"fmt"
	"time"

	"taxsync/internal/config"
	"taxsync/internal/crawler/parsers"
	"taxsync/internal/models"
)

// NYCAdapter reads NYC Finance's payment-history datalet, plus the current
// quarterly bill when a bill URL is configured.
type NYCAdapter struct {
	now    func() time.Time
	portal config.PortalConfig
	parser *parsers.NYCParser
}

// NewNYCAdapter creates the adapter.
func NewNYCAdapter(portal config.PortalConfig) *NYCAdapter {
	return &NYCAdapter{portal: portal, parser: parsers.NewNYCParser(), now: time.Now}
}

// Provider returns the provider tag.
func (a *NYCAdapter) Provider() models.Provider {
	return models.ProviderNYCFinance
}

func (a *NYCAdapter) taxYear() int {
	if a.portal.TaxYear > 0 {
		return a.portal.TaxYear
	}

	return NYCFiscalYear(a.now())
}

// Scrape loads the payment history for the property's borough-block-lot.
func (a *NYCAdapter) Scrape(ctx context.Context, s *Session, prop models.Property) (*models.ScrapeResult, error) {
	bbl, err := parsers.ParseBBL(prop.Parcel)
	if err != nil {
		result := &models.ScrapeResult{Provider: a.Provider(), Query: prop}
		result.Fail(models.CodeParseMismatch, err.Error())

		return result, nil
	}

	pin := bbl.PIN()
	s.Logger().Info(fmt.Sprintf("🗽 %s block %s lot %s (PIN %s)", bbl.BoroughName(), bbl.Block, bbl.Lot, pin))

	historyURL, err := PaymentHistoryURL(a.portal.URL, pin, a.taxYear())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrNavigation, err)
	}

	if err := s.Open(ctx, historyURL); err != nil {
		return nil, err
	}

	if err := s.Pause(ctx); err != nil {
		return nil, err
	}

	s.Capture("payment-history")

	text, err := s.Text(ctx)
	if err != nil {
		return nil, err
	}

	result := a.parser.Parse(text, prop)
	if !result.Success || a.portal.BillURL == "" {
		return result, nil
	}

	a.readBill(ctx, s, pin, result)

	return result, nil
}

// readBill adds the current bill's amount and due date. A bill page that
// fails to load only leaves a note; the payment history already identifies
// the property.
func (a *NYCAdapter) readBill(ctx context.Context, s *Session, pin string, result *models.ScrapeResult) {
	if err := s.Open(ctx, ExpandPIN(a.portal.BillURL, pin)); err != nil {
		s.Logger().Warn(fmt.Sprintf("⚠️  Bill page unavailable: %v", err))
		result.Notes = append(result.Notes, "current bill unavailable: "+err.Error())

		return
	}

	if err := s.ShortPause(ctx); err != nil {
		return
	}

	s.Capture("bill")

	text, err := s.Text(ctx)
	if err != nil {
		result.Notes = append(result.Notes, "current bill unreadable: "+err.Error())

		return
	}

	parsers.ApplyBill(result, a.parser.ParseBill(text))
}
