package parsers

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"taxsync/internal/models"
	"taxsync/pkg/utils"
)

// ErrInvalidBBL is returned for a parcel that is not borough-block-lot.
var ErrInvalidBBL = errors.New("parcel must be borough-block-lot, e.g. 3-2324-1305")

// Boroughs maps NYC borough codes to names.
var Boroughs = map[string]string{
	"1": "Manhattan",
	"2": "Bronx",
	"3": "Brooklyn",
	"4": "Queens",
	"5": "Staten Island",
}

// BBL is an NYC borough/block/lot parcel key.
type BBL struct {
	Borough string
	Block   string
	Lot     string
}

// ParseBBL reads "3-2324-1305", "3 2324 1305" or the 10-digit PIN form.
func ParseBBL(parcel string) (BBL, error) {
	parcel = strings.TrimSpace(parcel)

	if len(parcel) == 10 && isDigits(parcel) {
		return BBL{Borough: parcel[:1], Block: parcel[1:6], Lot: parcel[6:]}, nil
	}

	parts := strings.FieldsFunc(parcel, func(r rune) bool { return r == '-' || r == ' ' || r == '/' })
	if len(parts) != 3 || !isDigits(parts[0]+parts[1]+parts[2]) {
		return BBL{}, fmt.Errorf("%w: %q", ErrInvalidBBL, parcel)
	}

	if _, ok := Boroughs[parts[0]]; !ok || len(parts[1]) > 5 || len(parts[2]) > 4 {
		return BBL{}, fmt.Errorf("%w: %q", ErrInvalidBBL, parcel)
	}

	return BBL{Borough: parts[0], Block: parts[1], Lot: parts[2]}, nil
}

// PIN formats the key as borough(1) + block(5) + lot(4).
func (b BBL) PIN() string {
	return b.Borough + zeroPad(b.Block, 5) + zeroPad(b.Lot, 4)
}

func zeroPad(s string, width int) string {
	if len(s) >= width {
		return s
	}

	return strings.Repeat("0", width-len(s)) + s
}

// BoroughName returns the borough's name.
func (b BBL) BoroughName() string {
	if name, ok := Boroughs[b.Borough]; ok {
		return name
	}

	return "Unknown"
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}

// NYCParser reads the NYC Finance payment-history datalet and bill pages.
type NYCParser struct {
	paymentPattern  *regexp.Regexp
	addressPattern  *regexp.Regexp
	amountPatterns  []*regexp.Regexp
	duePatterns     []*regexp.Regexp
	quarterPattern  *regexp.Regexp
	abatePattern    *regexp.Regexp
	assessedPattern *regexp.Regexp
	marketPattern   *regexp.Regexp
	yearPattern     *regexp.Regexp
}

// NewNYCParser creates a new parser instance.
func NewNYCParser() *NYCParser {
	return &NYCParser{
		paymentPattern: regexp.MustCompile(`(\d{2}/\d{2}/\d{4})\s+(\d{2}/\d{2}/\d{4})\s+-\$?(\d[\d,]*\.?\d*)\s+(\d{4})`),
		addressPattern: regexp.MustCompile(`(?i)(\d+[ \t]+[A-Z0-9 \t#]+STREET[^,\n]*)`),
		amountPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)Amount\s+Due[:\s]*\$?(\d[\d,]*\.?\d*)`),
			regexp.MustCompile(`(?i)Total\s+Due[:\s]*\$?(\d[\d,]*\.?\d*)`),
			regexp.MustCompile(`(?i)Current\s+Amount[:\s]*\$?(\d[\d,]*\.?\d*)`),
			regexp.MustCompile(`(?i)Quarterly\s+Amount[:\s]*\$?(\d[\d,]*\.?\d*)`),
		},
		duePatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)Due\s+Date[:\s]*(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`),
			regexp.MustCompile(`(?i)Due[:\s]+((?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},?\s+\d{4})`),
		},
		quarterPattern:  regexp.MustCompile(`(?i)\bQ([1-4])\b|Quarter\s*([1-4])`),
		abatePattern:    regexp.MustCompile(`(?i)421[-\s]?a|abatement`),
		assessedPattern: regexp.MustCompile(`(?i)Assessed\s+Value[:\s]*\$?(\d[\d,]*)`),
		marketPattern:   regexp.MustCompile(`(?i)(?:Market|Full)\s+Value[:\s]*\$?(\d[\d,]*)`),
		yearPattern:     regexp.MustCompile(`\b(20\d{2})[/-](20\d{2})\b`),
	}
}

// Parse reads the payment history. The datalet is keyed by PIN, so the parcel
// is identified as soon as payment rows or the PIN appear on the page.
func (p *NYCParser) Parse(text string, query models.Property) *models.ScrapeResult {
	result := newResult(models.ProviderNYCFinance, query)

	bbl, bblErr := ParseBBL(query.Parcel)

	latest := 0

	for _, m := range p.paymentPattern.FindAllStringSubmatch(text, -1) {
		amount, ok := boundedAmount(m[3], NYCPaymentMax)
		if !ok {
			continue
		}

		result.Payments = append(result.Payments, models.RawPayment{
			CreditedDate: m[1],
			ActivityDate: m[2],
			Amount:       amount,
			TaxYear:      m[4],
		})

		if year, _ := strconv.Atoi(m[4]); year > latest {
			latest = year
		}
	}

	pinShown := bblErr == nil && strings.Contains(helper.StripNonAlnum(text), bbl.PIN())
	addressMatched := matchesAddress(text, query)

	if len(result.Payments) == 0 && !pinShown && !addressMatched {
		result.Fail(models.CodeParseMismatch, "no payment history found")
		result.Snapshot = preview(text)

		return result
	}

	result.Success = true
	result.ParcelNumber = query.Parcel
	result.Address = firstSubmatch(p.addressPattern, text)

	if latest > 0 {
		result.TaxYear = strconv.Itoa(latest)
	}

	if bblErr == nil {
		result.SetDetail("pin", bbl.PIN())
		result.SetDetail("borough", bbl.BoroughName())
	}

	if query.Unit != "" {
		result.SetDetail("unit", query.Unit)
	}

	return result
}

// NYCBill holds what a quarterly bill page states.
type NYCBill struct {
	AmountText    string
	DueDate       string
	AbatementType string
	AssessedValue string
	MarketValue   string
	TaxYear       string
	Amount        float64
	Quarter       int
	HasAbatement  bool
}

// ParseBill extracts the amount due, due date, quarter, abatement and values from bill text.
func (p *NYCParser) ParseBill(text string) NYCBill {
	var bill NYCBill

	for _, re := range p.amountPatterns {
		if amount := firstBounded(re, text, NYCBillMax); amount != "" {
			bill.AmountText = amount
			bill.Amount, _ = utils.ParseCurrency(amount)

			break
		}
	}

	for _, re := range p.duePatterns {
		if due := firstSubmatch(re, text); due != "" {
			bill.DueDate = due

			break
		}
	}

	if m := p.quarterPattern.FindStringSubmatch(text); m != nil {
		q := m[1]
		if q == "" {
			q = m[2]
		}

		bill.Quarter, _ = strconv.Atoi(q)
	}

	if p.abatePattern.MatchString(text) {
		bill.HasAbatement = true
		bill.AbatementType = "421-a"
	}

	bill.AssessedValue = firstBounded(p.assessedPattern, text, NYCValueMax)
	bill.MarketValue = firstBounded(p.marketPattern, text, NYCValueMax)

	if m := p.yearPattern.FindStringSubmatch(text); m != nil {
		bill.TaxYear = m[1] + "/" + m[2]
	}

	return bill
}

// ApplyBill merges bill details into a payment-history result.
func ApplyBill(result *models.ScrapeResult, bill NYCBill) {
	if bill.AmountText != "" {
		result.PeriodAmount = bill.AmountText
	}

	if bill.DueDate != "" {
		result.NextDueDate = bill.DueDate
	}

	if bill.AssessedValue != "" {
		result.AssessedValue = bill.AssessedValue
	}

	if bill.MarketValue != "" {
		result.MarketValue = bill.MarketValue
	}

	if bill.HasAbatement {
		result.Abatement = bill.AbatementType
	}

	if bill.Quarter > 0 {
		result.SetDetail("quarter", strconv.Itoa(bill.Quarter))
	}

	if result.TaxYear == "" {
		result.TaxYear = bill.TaxYear
	}
}
