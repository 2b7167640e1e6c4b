package parsers

import (
	"regexp"

	"taxsync/internal/models"
)

// AxisGISParser reads the property panel of an AxisGIS map application.
type AxisGISParser struct {
	valuePattern *regexp.Regexp
}

// NewAxisGISParser creates a new parser instance.
func NewAxisGISParser() *AxisGISParser {
	return &AxisGISParser{
		valuePattern: regexp.MustCompile(`(?:Total|Assessed|Value)[:\s]*\$?(\d[\d,]*)`),
	}
}

// Parse confirms the parcel is shown and reads the assessed value when present.
func (p *AxisGISParser) Parse(text string, query models.Property) *models.ScrapeResult {
	result := newResult(models.ProviderVermontAxisGIS, query)

	parcelMatched := matchesParcel(text, query)
	addressMatched := matchesAddress(text, query)

	if !parcelMatched && !addressMatched {
		result.Fail(models.CodeParseMismatch, "could not find parcel in AxisGIS results")
		result.Snapshot = preview(text)
		result.Notes = append(result.Notes, "AxisGIS requires the interactive map; see the diagnostic screenshot")

		return result
	}

	result.Success = true

	if parcelMatched {
		result.ParcelNumber = query.Parcel
	}

	if addressMatched {
		result.Address = query.Address
		result.SetDetail("address_confirmed", "true")
	}

	result.AssessedValue = firstBounded(p.valuePattern, text, AxisGISAssessedMax)

	return result
}
