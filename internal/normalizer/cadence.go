package normalizer

import (
	"fmt"
	"time"

	"taxsync/internal/models"
)

// DueDate is one installment's due day, relative to the resolved tax year.
type DueDate struct {
	Month      time.Month
	Day        int
	YearOffset int
}

// On returns the calendar date for tax year taxYear in MM/DD/YYYY form.
func (d DueDate) On(taxYear int) string {
	return fmt.Sprintf("%02d/%02d/%04d", int(d.Month), d.Day, taxYear+d.YearOffset)
}

// Cadence is a jurisdiction's fixed payment schedule.
type Cadence struct {
	Name string
	Due  []DueDate
	// RangeEndsYear resolves "2025/2026" style labels to the second year.
	RangeEndsYear bool
}

// Periods returns the number of installments per tax year.
func (c Cadence) Periods() int {
	return len(c.Due)
}

var cadences = map[models.Provider]Cadence{
	models.ProviderSantaClara: {
		Name: "semiannual",
		Due: []DueDate{
			{Month: time.December, Day: 10},
			{Month: time.April, Day: 10, YearOffset: 1},
		},
	},
	models.ProviderCityHall: {
		Name: "quarterly",
		Due: []DueDate{
			{Month: time.July, Day: 24},
			{Month: time.October, Day: 24},
			{Month: time.January, Day: 24, YearOffset: 1},
			{Month: time.April, Day: 24, YearOffset: 1},
		},
	},
	models.ProviderVermontNEMRC: {
		Name: "semiannual",
		Due: []DueDate{
			{Month: time.August, Day: 15},
			{Month: time.February, Day: 15, YearOffset: 1},
		},
	},
	models.ProviderVermontAxisGIS: {
		Name: "quarterly",
		Due: []DueDate{
			{Month: time.August, Day: 15},
			{Month: time.November, Day: 15},
			{Month: time.February, Day: 15, YearOffset: 1},
			{Month: time.May, Day: 15, YearOffset: 1},
		},
	},
	// NYC fiscal years run July through June and carry the ending year's name.
	models.ProviderNYCFinance: {
		Name: "quarterly",
		Due: []DueDate{
			{Month: time.July, Day: 1, YearOffset: -1},
			{Month: time.October, Day: 1, YearOffset: -1},
			{Month: time.January, Day: 1},
			{Month: time.April, Day: 1},
		},
		RangeEndsYear: true,
	},
}

// CadenceFor returns the payment cadence of provider.
func CadenceFor(provider models.Provider) (Cadence, bool) {
	c, ok := cadences[provider]

	return c, ok
}
