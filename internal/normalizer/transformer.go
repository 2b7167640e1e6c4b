package normalizer

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"taxsync/internal/models"
	"taxsync/pkg/utils"
)

// Notes attached to records whose values were derived rather than read.
const (
	NoteYearUnverified     = "tax year not shown on portal; defaulted to current calendar year (unverified)"
	NoteAnnualFromRows     = "annual tax derived from installment rows"
	NoteAnnualFromPayments = "annual tax derived from payment history"
	NoteAnnualFromPeriod   = "annual tax derived from period amount and payment cadence"
	NoteNoCadence          = "no payment cadence known for provider; installments not synthesized"

	msgSuccessWithoutData = "portal matched the property but no tax data was found"
	paymentDateLayout     = "01/02/2006"
	centsPerDollar        = 100
)

// Transformer converts raw scrape results into canonical tax records.
type Transformer struct {
	rangePattern *regexp.Regexp
	yearPattern  *regexp.Regexp
}

// NewTransformer creates a new transformer instance.
func NewTransformer() *Transformer {
	return &Transformer{
		rangePattern: regexp.MustCompile(`\b((?:19|20)\d{2})\s*[/-]\s*((?:19|20)\d{2})\b`),
		yearPattern:  regexp.MustCompile(`\b((?:19|20)\d{2})\b`),
	}
}

// Normalize converts raw into a TaxRecord for provider. It never fabricates
// amounts: absent values stay nil.
func Normalize(provider models.Provider, raw *models.ScrapeResult, now time.Time) *models.TaxRecord {
	return NewTransformer().Transform(provider, raw, now)
}

// Transform converts raw into a TaxRecord. now stamps the record when raw
// carries no scrape time and is the fallback tax year.
func (t *Transformer) Transform(provider models.Provider, raw *models.ScrapeResult, now time.Time) *models.TaxRecord {
	if raw == nil {
		raw = &models.ScrapeResult{Provider: provider}
		raw.Fail(models.CodeWorkerFailure, "no scrape result")
	}

	captured := raw.ScrapedAt
	if captured.IsZero() {
		captured = now.UTC()
	}

	rec := &models.TaxRecord{
		Provider:      provider,
		CapturedAt:    captured,
		Raw:           raw,
		Success:       raw.Success,
		Error:         raw.Error,
		ErrorCode:     raw.ErrorCode,
		ParcelNumber:  firstNonEmpty(raw.ParcelNumber, raw.Query.Parcel),
		Address:       firstNonEmpty(raw.Address, raw.Query.Address),
		Owner:         raw.Owner,
		AssessedValue: amount(raw.AssessedValue),
		MarketValue:   amount(raw.MarketValue),
		AnnualTax:     amount(raw.AnnualTax),
		Notes:         append([]string(nil), raw.Notes...),
		Installments:  []models.TaxInstallment{},
	}

	if raw.Query.ID != "" {
		id := raw.Query.ID
		rec.PropertyID = &id
	}

	if !rec.Success {
		return rec
	}

	cadence, hasCadence := CadenceFor(provider)

	year, verified := t.resolveYear(raw.TaxYear, cadence.RangeEndsYear)
	if !verified {
		year = now.Year()

		rec.Notes = append(rec.Notes, NoteYearUnverified)
	}

	rec.TaxYear = &year
	rec.YearVerified = verified

	period := amount(raw.PeriodAmount)
	rec.QuarterlyAmount = period

	switch {
	case len(raw.Installments) > 0:
		rec.Installments = fromRows(latestRows(raw.Installments))
		if rec.AnnualTax == nil && len(rec.Installments) > 0 {
			rec.AnnualTax = sumAmounts(rec.Installments)
			rec.Notes = append(rec.Notes, NoteAnnualFromRows)
		}
	case len(raw.Payments) > 0:
		rec.Installments = fromPayments(latestPayments(raw.Payments), cadence, year)
		if rec.AnnualTax == nil && len(rec.Installments) > 0 {
			rec.AnnualTax = sumAmounts(rec.Installments)
			rec.Notes = append(rec.Notes, NoteAnnualFromPayments)
		}
	case !hasCadence:
		if rec.AnnualTax != nil || period != nil {
			rec.Notes = append(rec.Notes, NoteNoCadence)
		}
	case rec.AnnualTax != nil:
		rec.Installments = splitEvenly(*rec.AnnualTax, cadence, year)
	case period != nil:
		rec.Installments = repeatPeriod(*period, cadence, year, outstandingCount(raw))
		rec.AnnualTax = sumAmounts(rec.Installments)
		rec.Notes = append(rec.Notes, NoteAnnualFromPeriod)
	}

	if !rec.HasData() {
		rec.Success = false
		rec.ErrorCode = models.CodeParseMismatch
		rec.Error = msgSuccessWithoutData
	}

	return rec
}

// resolveYear reads a tax year from portal text. Range labels resolve to the
// first year unless endsYear is set.
func (t *Transformer) resolveYear(text string, endsYear bool) (int, bool) {
	if m := t.rangePattern.FindStringSubmatch(text); m != nil {
		pick := m[1]
		if endsYear {
			pick = m[2]
		}

		year, err := strconv.Atoi(pick)

		return year, err == nil
	}

	if m := t.yearPattern.FindStringSubmatch(text); m != nil {
		year, err := strconv.Atoi(m[1])

		return year, err == nil
	}

	return 0, false
}

// MapStatus converts portal status vocabulary. Anything unrecognised is
// StatusUnknown rather than assumed paid.
func MapStatus(text string) models.InstallmentStatus {
	s := strings.ToLower(strings.TrimSpace(text))

	switch {
	case s == "":
		return models.StatusUnknown
	case strings.Contains(s, "unpaid"), strings.Contains(s, "not paid"), strings.Contains(s, "due"),
		strings.Contains(s, "delinquent"), strings.Contains(s, "outstanding"), strings.Contains(s, "open"):
		return models.StatusUnpaid
	case strings.Contains(s, "paid"), strings.Contains(s, "closed"):
		return models.StatusPaid
	}

	return models.StatusUnknown
}

func amount(text string) *float64 {
	v, ok := utils.ParseCurrency(text)
	if !ok || v < 0 {
		return nil
	}

	v = utils.RoundCents(v)

	return &v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}

	return ""
}

func sumAmounts(installments []models.TaxInstallment) *float64 {
	cents := int64(0)
	for _, inst := range installments {
		cents += int64(math.Round(inst.Amount * centsPerDollar))
	}

	total := float64(cents) / centsPerDollar

	return &total
}

// latestRows keeps the rows of the newest tax year on the page.
func latestRows(rows []models.RawInstallment) []models.RawInstallment {
	latest := ""
	for _, r := range rows {
		if r.TaxYear > latest {
			latest = r.TaxYear
		}
	}

	var kept []models.RawInstallment

	for _, r := range rows {
		if r.TaxYear == latest {
			kept = append(kept, r)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Number < kept[j].Number })

	return kept
}

func fromRows(rows []models.RawInstallment) []models.TaxInstallment {
	installments := make([]models.TaxInstallment, 0, len(rows))

	for _, r := range rows {
		value := amount(r.Amount)
		if value == nil {
			continue
		}

		inst := models.TaxInstallment{
			Number:  len(installments) + 1,
			Amount:  *value,
			DueDate: strings.TrimSpace(r.DueDate),
			Status:  MapStatus(r.Status),
			Balance: amount(r.Balance),
		}

		if inst.Status == models.StatusPaid {
			paid := inst.Amount
			if charges := amount(r.Charges); charges != nil {
				paid = utils.RoundCents(paid + *charges)
			}

			inst.AmountPaid = &paid
		}

		installments = append(installments, inst)
	}

	return installments
}

// latestPayments keeps the payments of the newest tax year, oldest first.
func latestPayments(payments []models.RawPayment) []models.RawPayment {
	latest := ""
	for _, p := range payments {
		if p.TaxYear > latest {
			latest = p.TaxYear
		}
	}

	var kept []models.RawPayment

	for _, p := range payments {
		if p.TaxYear == latest {
			kept = append(kept, p)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		a, errA := time.Parse(paymentDateLayout, kept[i].ActivityDate)
		b, errB := time.Parse(paymentDateLayout, kept[j].ActivityDate)

		if errA != nil || errB != nil {
			return false
		}

		return a.Before(b)
	})

	return kept
}

func fromPayments(payments []models.RawPayment, cadence Cadence, year int) []models.TaxInstallment {
	installments := make([]models.TaxInstallment, 0, len(payments))

	for _, p := range payments {
		value := amount(p.Amount)
		if value == nil {
			continue
		}

		i := len(installments)
		paid := *value
		zero := 0.0

		inst := models.TaxInstallment{
			Number:     i + 1,
			Amount:     paid,
			Status:     models.StatusPaid,
			AmountPaid: &paid,
			Balance:    &zero,
			DueDate:    p.ActivityDate,
		}

		if i < cadence.Periods() {
			inst.DueDate = cadence.Due[i].On(year)
		}

		installments = append(installments, inst)
	}

	return installments
}

// splitEvenly divides annual across the cadence. Leftover cents go to the
// leading installments so the parts sum exactly to annual.
func splitEvenly(annual float64, cadence Cadence, year int) []models.TaxInstallment {
	n := cadence.Periods()
	total := int64(math.Round(annual * centsPerDollar))
	base := total / int64(n)
	remainder := total % int64(n)

	installments := make([]models.TaxInstallment, n)

	for i := 0; i < n; i++ {
		cents := base
		if int64(i) < remainder {
			cents++
		}

		installments[i] = models.TaxInstallment{
			Number:  i + 1,
			Amount:  float64(cents) / centsPerDollar,
			DueDate: cadence.Due[i].On(year),
			Status:  models.StatusUnknown,
		}
	}

	return installments
}

// repeatPeriod builds one installment per period at the same amount. The last
// outstanding installments are unpaid; the rest stay unknown.
func repeatPeriod(period float64, cadence Cadence, year, outstanding int) []models.TaxInstallment {
	n := cadence.Periods()
	installments := make([]models.TaxInstallment, n)

	for i := 0; i < n; i++ {
		status := models.StatusUnknown
		if outstanding > 0 && i >= n-outstanding {
			status = models.StatusUnpaid
		}

		installments[i] = models.TaxInstallment{
			Number:  i + 1,
			Amount:  period,
			DueDate: cadence.Due[i].On(year),
			Status:  status,
		}
	}

	return installments
}

func outstandingCount(raw *models.ScrapeResult) int {
	n, err := strconv.Atoi(raw.Details["outstanding_installments"])
	if err != nil || n < 0 {
		return 0
	}

	return n
}

// String renders a one-line description of a record for logs.
func String(rec *models.TaxRecord) string {
	year := "?"
	if rec.TaxYear != nil {
		year = strconv.Itoa(*rec.TaxYear)
	}

	annual := "n/a"
	if rec.AnnualTax != nil {
		annual = fmt.Sprintf("$%.2f", *rec.AnnualTax)
	}

	return fmt.Sprintf("%s %s year=%s annual=%s installments=%d success=%t",
		rec.Provider, rec.ParcelNumber, year, annual, len(rec.Installments), rec.Success)
}
