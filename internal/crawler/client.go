// Package crawler drives jurisdiction portals through a browser session and
// turns what they show into raw scrape results.
package crawler

import (
	"context"
	"fmt"
	"time"

	"taxsync/internal/logger"
	"taxsync/internal/models"
	"taxsync/pkg/utils"
)

const snapshotLimit = 1000

// Client runs adapters at the adapter boundary: every scrape-time error becomes
// a failed result carrying its error code, a page snapshot and the path of the
// last diagnostic dump.
type Client struct {
	registry *Registry
	logger   *logger.Logger
	strings  *utils.StringHelper
	now      func() time.Time
}

// NewClient creates a client over registry.
func NewClient(registry *Registry, log *logger.Logger) *Client {
	return &Client{
		registry: registry,
		logger:   log,
		strings:  utils.NewStringHelper(),
		now:      time.Now,
	}
}

// Registry returns the adapter registry.
func (c *Client) Registry() *Registry {
	return c.registry
}

// Lookup scrapes prop with its provider's adapter. The only error returned is
// ErrUnknownProvider; everything else is reported inside the result.
func (c *Client) Lookup(ctx context.Context, s *Session, prop models.Property) (*models.ScrapeResult, error) {
	adapter, err := c.registry.Get(prop.Provider)
	if err != nil {
		return nil, err
	}

	c.logger.Info(fmt.Sprintf("🏠 Looking up %s via %s", prop, prop.Provider.Label()))

	result, err := c.scrape(ctx, adapter, s, prop)

	switch {
	case err != nil:
		c.logger.Error(fmt.Sprintf("❌ %s: %v", prop, err))
		result = c.failure(ctx, s, prop, err)
	case result == nil:
		result = c.failure(ctx, s, prop, fmt.Errorf("%w: adapter returned no result", models.ErrParseMismatch))
	case !result.Success:
		c.logger.Warn(fmt.Sprintf("⚠️  %s: %s", prop, result.Error))
		s.Capture("not-found")
		c.attachSnapshot(ctx, s, result)
	default:
		c.logger.Info(fmt.Sprintf("✅ %s: parcel %s", prop, result.ParcelNumber))
	}

	result.Provider = prop.Provider
	result.Query = prop
	result.ScrapedAt = c.now().UTC()

	return result, nil
}

// scrape runs the adapter, converting a panic into a worker failure.
func (c *Client) scrape(ctx context.Context, adapter Adapter, s *Session, prop models.Property) (result *models.ScrapeResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("%w: panic: %v", models.ErrWorkerFailure, r)
		}
	}()

	return adapter.Scrape(ctx, s, prop)
}

func (c *Client) failure(ctx context.Context, s *Session, prop models.Property, err error) *models.ScrapeResult {
	s.Capture("error")

	result := &models.ScrapeResult{Provider: prop.Provider, Query: prop}
	result.Fail(models.CodeFor(err), err.Error())
	c.attachSnapshot(ctx, s, result)

	return result
}

// attachSnapshot keeps the page text and dump path for a failed result.
// The page is read even when ctx has expired so timeouts still leave evidence.
func (c *Client) attachSnapshot(ctx context.Context, s *Session, result *models.ScrapeResult) {
	if result.Snapshot == "" {
		if text, err := s.Text(context.WithoutCancel(ctx)); err == nil {
			result.Snapshot = text
		}
	}

	result.Snapshot = c.strings.TruncateString(c.strings.TrimWhitespace(result.Snapshot), snapshotLimit)
	result.SnapshotPath = s.LastCapture()
}
