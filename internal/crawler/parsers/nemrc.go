package parsers

import (
	"regexp"

	"taxsync/internal/models"
)

// NEMRCParser reads a NEMRC town grand-list detail page.
type NEMRCParser struct {
	spanPattern     *regexp.Regexp
	parcelPattern   *regexp.Regexp
	ownerPattern    *regexp.Regexp
	locationPattern *regexp.Regexp
	landPattern     *regexp.Regexp
	buildingPattern *regexp.Regexp
	totalPattern    *regexp.Regexp
	taxPattern      *regexp.Regexp
}

// NewNEMRCParser creates a new parser instance.
func NewNEMRCParser() *NEMRCParser {
	return &NEMRCParser{
		spanPattern:     regexp.MustCompile(`SPAN[:\s]+(\d{3}-\d{3}-\d{5})`),
		parcelPattern:   regexp.MustCompile(`(?i)Parcel ID[:\s]+([A-Z0-9\-]+)`),
		ownerPattern:    regexp.MustCompile(`Owner[: \t]+([A-Z][A-Z ,\.&]+)`),
		locationPattern: regexp.MustCompile(`(?i)Location[: \t]+([^\n]+)`),
		landPattern:     regexp.MustCompile(`Land[: \t]+\$?(\d[\d,]*)`),
		buildingPattern: regexp.MustCompile(`Buildings?[: \t]+\$?(\d[\d,]*)`),
		totalPattern:    regexp.MustCompile(`Total[: \t]+\$?(\d[\d,]*)`),
		taxPattern:      regexp.MustCompile(`Tax[: \t]+\$?(\d[\d,]*\.?\d*)`),
	}
}

// Parse extracts SPAN, parcel id, owner, location and the grand-list values.
func (p *NEMRCParser) Parse(text string, query models.Property) *models.ScrapeResult {
	result := newResult(models.ProviderVermontNEMRC, query)

	span := firstSubmatch(p.spanPattern, text)
	parcelID := firstSubmatch(p.parcelPattern, text)
	location := firstSubmatch(p.locationPattern, text)

	addressMatched := matchesAddress(text, query)
	if span == "" && parcelID == "" && !addressMatched {
		result.Fail(models.CodeParseMismatch, "could not parse property information from results")
		result.Snapshot = preview(text)

		return result
	}

	result.Success = true
	result.ParcelNumber = span

	if result.ParcelNumber == "" {
		result.ParcelNumber = parcelID
	}

	result.Address = location
	if result.Address == "" && addressMatched {
		result.Address = query.Address
	}

	result.Owner = helper.NormalizeWhitespace(firstSubmatch(p.ownerPattern, text))
	result.AssessedValue = firstBounded(p.totalPattern, text, NEMRCAssessedMax)
	result.AnnualTax = firstBounded(p.taxPattern, text, NEMRCTaxMax)

	result.SetDetail("span", span)
	result.SetDetail("parcel_id", parcelID)
	result.SetDetail("land_value", firstBounded(p.landPattern, text, NEMRCAssessedMax))
	result.SetDetail("building_value", firstBounded(p.buildingPattern, text, NEMRCAssessedMax))

	if result.AnnualTax == "" {
		result.Notes = append(result.Notes, "NEMRC shows assessed values only; tax amounts require the town tax rate")
	}

	return result
}
