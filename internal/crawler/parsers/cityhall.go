package parsers

import (
	"regexp"
	"strconv"

	"taxsync/internal/models"
)

// CityHallParser reads City Hall Systems bill search results.
type CityHallParser struct {
	parcelPattern  *regexp.Regexp
	addressPattern *regexp.Regexp
	ownerPattern   *regexp.Regexp
	duePattern     *regexp.Regexp
	balancePattern *regexp.Regexp
	yearPattern    *regexp.Regexp
}

// NewCityHallParser creates a new parser instance.
func NewCityHallParser() *CityHallParser {
	return &CityHallParser{
		parcelPattern:  regexp.MustCompile(`(\d{3}-\d{4}-\d{4})`),
		addressPattern: regexp.MustCompile(`(?i)\d{3}-\d{4}-\d{4}\s+(.+?(?:ST|AVE|RD|DR|LN|CT|PL|WAY)),?\s*PROVIDENCE`),
		ownerPattern:   regexp.MustCompile(`(\d{4})[ \t]+\d+[ \t]+([A-Z][A-Z \t]+)[ \t]+\d{3}-\d{4}`),
		duePattern:     regexp.MustCompile(`Due\s+(\d{2}/\d{2}/\d{4}):\s*\$\s*([\d,]+\.\d{2})`),
		balancePattern: regexp.MustCompile(`Full Balance:\s*\$\s*([\d,]+\.\d{2})`),
		yearPattern:    regexp.MustCompile(`\b(20\d{2})\b.*TAX`),
	}
}

// Parse extracts parcel, owner, the next quarterly due amount and the remaining balance.
func (p *CityHallParser) Parse(text string, query models.Property) *models.ScrapeResult {
	result := newResult(models.ProviderCityHall, query)

	result.ParcelNumber = firstSubmatch(p.parcelPattern, text)

	addressMatched := matchesAddress(text, query)
	if result.ParcelNumber == "" && !addressMatched && !matchesParcel(text, query) {
		result.Fail(models.CodeParseMismatch, "could not parse tax information from results")
		result.Snapshot = preview(text)

		return result
	}

	result.Success = true

	if m := p.addressPattern.FindStringSubmatch(text); m != nil {
		result.Address = m[1] + ", Providence"
	} else if addressMatched {
		result.Address = query.Address
	}

	if m := p.ownerPattern.FindStringSubmatch(text); m != nil {
		result.Owner = helper.NormalizeWhitespace(m[2])
	}

	outstanding := 0

	for _, m := range p.duePattern.FindAllStringSubmatch(text, -1) {
		amount, ok := boundedAmount(m[2], CityHallDueMax)
		if !ok {
			continue
		}

		// Due lines list only what is still outstanding, not the full schedule.
		outstanding++

		if result.PeriodAmount == "" {
			result.PeriodAmount = amount
			result.NextDueDate = m[1]
		}
	}

	if outstanding > 0 {
		result.SetDetail("outstanding_installments", strconv.Itoa(outstanding))
	}

	result.Balance = firstSubmatch(p.balancePattern, text)
	result.TaxYear = firstSubmatch(p.yearPattern, text)

	return result
}
