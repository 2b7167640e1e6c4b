package crawler

import (
	"context"
	"fmt"
	"time"

	"taxsync/internal/browser"
	"taxsync/internal/config"
	"taxsync/internal/logger"
	"taxsync/internal/models"
)

// Scraper runs one property lookup end to end: it opens a driver (live
// Chromium, or a replay of dumped pages), prepares diagnostics and hands the
// session to the client.
type Scraper struct {
	cfg       *config.Config
	client    *Client
	logger    *logger.Logger
	now       func() time.Time
	replayDir string
}

// NewScraper creates a scraper with the default adapter registry.
func NewScraper(cfg *config.Config, log *logger.Logger) *Scraper {
	return NewScraperWithClient(cfg, NewClient(DefaultRegistry(cfg), log), log)
}

// NewScraperWithClient creates a scraper around an existing client.
func NewScraperWithClient(cfg *config.Config, client *Client, log *logger.Logger) *Scraper {
	return &Scraper{
		cfg:    cfg,
		client: client,
		logger: log,
		now:    time.Now,
	}
}

// WithReplay makes the scraper replay pages recorded in dir instead of launching a browser.
func (s *Scraper) WithReplay(dir string) *Scraper {
	s.replayDir = dir

	return s
}

// Scrape looks prop up. Errors are returned only when no session could be
// started or the provider is unknown; scrape failures are inside the result.
func (s *Scraper) Scrape(ctx context.Context, prop models.Property) (*models.ScrapeResult, error) {
	driver, err := s.openDriver()
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := driver.Close(); err != nil {
			s.logger.Warn(fmt.Sprintf("⚠️  Failed to close browser: %v", err))
		}
	}()

	diagBase := s.cfg.Diagnostics.Dir
	if s.cfg.Diagnostics.Disabled {
		diagBase = ""
	}

	diag, err := browser.NewDiagnostics(diagBase, string(prop.Provider), s.now())
	if err != nil {
		s.logger.Warn(fmt.Sprintf("⚠️  Diagnostics disabled: %v", err))

		diag = nil
	}

	session := NewSession(driver, diag, s.logger, Timing{
		Navigation: s.cfg.NavigationTimeout(),
		Idle:       s.cfg.IdleTimeout(),
		Settle:     s.cfg.SettleDelay(),
	})

	return s.client.Lookup(ctx, session, prop)
}

func (s *Scraper) openDriver() (browser.Driver, error) {
	if s.replayDir != "" {
		s.logger.Info(fmt.Sprintf("📼 Replaying recorded pages from %s", s.replayDir))

		return browser.NewReplay(s.replayDir, s.logger)
	}

	return browser.NewPlaywright(browser.Options{
		UserAgent:      s.cfg.Browser.UserAgent,
		ProfileDir:     s.cfg.Browser.ProfileDir,
		ExecutablePath: s.cfg.Browser.ExecutablePath,
		ElementTimeout: s.cfg.ElementTimeout(),
		Headed:         s.cfg.Browser.Headed,
	}, s.logger)
}
