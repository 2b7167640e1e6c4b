// Package normalizer converts jurisdiction-specific scrape results into the
// canonical tax record schema.
package normalizer

import (
	"fmt"
	"time"

	"taxsync/internal/models"
)

// Processor transforms and checks records.
type Processor struct {
	validator   *Validator
	transformer *Transformer
	now         func() time.Time
}

// NewProcessor creates a new processor instance.
func NewProcessor() *Processor {
	return &Processor{
		validator:   NewValidator(),
		transformer: NewTransformer(),
		now:         time.Now,
	}
}

// Process normalizes raw. The record is always returned; a non-nil error
// reports integrity problems found in it.
func (p *Processor) Process(raw *models.ScrapeResult) (*models.TaxRecord, error) {
	provider := models.Provider("")
	if raw != nil {
		provider = raw.Provider
	}

	rec := p.transformer.Transform(provider, raw, p.now())

	if err := p.validator.Validate(rec); err != nil {
		return rec, fmt.Errorf("integrity check failed: %w", err)
	}

	return rec, nil
}

// FailureRecord builds the record for a property whose adapter never produced
// a result: a timeout, a crashed worker or an unreadable result channel.
func FailureRecord(prop models.Property, code models.ErrorCode, message string, now time.Time) *models.TaxRecord {
	raw := &models.ScrapeResult{
		Provider:  prop.Provider,
		Query:     prop,
		ScrapedAt: now.UTC(),
	}
	raw.Fail(code, message)

	return Normalize(prop.Provider, raw, now)
}
