package parsers

import (
	"regexp"
	"strings"

	"taxsync/internal/models"
	"taxsync/pkg/utils"
)

// Plausibility bounds. Amounts outside the open interval are discarded as
// false matches against unrelated numbers on the page.
const (
	SantaClaraInstallmentMax = 1e6
	CityHallDueMax           = 1e5
	NEMRCAssessedMax         = 1e8
	NEMRCTaxMax              = 1e6
	AxisGISAssessedMax       = 1e8
	NYCBillMax               = 1e5
	NYCPaymentMax            = 1e6
	NYCValueMax              = 1e10
)

// TextParser turns a portal's visible page text into a raw result.
type TextParser interface {
	Parse(text string, query models.Property) *models.ScrapeResult
}

var helper = utils.NewStringHelper()

// newResult starts a result for query with nothing established yet.
func newResult(provider models.Provider, query models.Property) *models.ScrapeResult {
	return &models.ScrapeResult{
		Provider: provider,
		Query:    query,
	}
}

// boundedAmount returns raw unchanged when it parses to a value inside (0, max).
func boundedAmount(raw string, max float64) (string, bool) {
	value, ok := utils.ParseCurrency(raw)
	if !ok || !utils.WithinBounds(value, 0, max) {
		return "", false
	}

	return strings.TrimSpace(raw), true
}

// firstSubmatch returns group 1 of the first match, trimmed.
func firstSubmatch(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}

	return strings.TrimSpace(m[1])
}

// firstBounded returns the first group-1 match that passes the plausibility bound.
func firstBounded(re *regexp.Regexp, text string, max float64) string {
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		if amount, ok := boundedAmount(m[1], max); ok {
			return amount
		}
	}

	return ""
}

// addressKey reduces an address to its house number and first street word,
// which is what the portals reliably echo back ("125 DANA").
func addressKey(address string) string {
	fields := strings.Fields(address)
	if len(fields) > 2 {
		fields = fields[:2]
	}

	return strings.Join(fields, " ")
}

// matchesAddress reports whether the page mentions the queried address.
func matchesAddress(text string, query models.Property) bool {
	key := addressKey(query.Address)
	if key == "" {
		return false
	}

	return helper.ContainsFold(text, key)
}

// matchesParcel reports whether the page mentions the queried parcel,
// ignoring separators.
func matchesParcel(text string, query models.Property) bool {
	want := helper.StripNonAlnum(query.Parcel)
	if want == "" {
		return false
	}

	return strings.Contains(strings.ToUpper(helper.StripNonAlnum(text)), strings.ToUpper(want))
}

// preview truncates page text for failure snapshots.
func preview(text string) string {
	return helper.TruncateString(strings.TrimSpace(text), 1000)
}
