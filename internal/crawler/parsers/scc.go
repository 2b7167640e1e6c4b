package parsers

import (
	"regexp"
	"strconv"

	"taxsync/internal/models"
)

// SantaClaraParser reads the county portal's installment blocks. The page lists
// one "YYYY/YYYY Annual Tax Bill" section per tax year, newest first, each with
// "Installment N" blocks of label/value line pairs.
type SantaClaraParser struct {
	yearHeader        *regexp.Regexp
	installmentHeader *regexp.Regexp
	parcelPattern     *regexp.Regexp
}

// NewSantaClaraParser creates a new parser instance.
func NewSantaClaraParser() *SantaClaraParser {
	return &SantaClaraParser{
		yearHeader:        regexp.MustCompile(`^(\d{4}/\d{4}) Annual Tax Bill`),
		installmentHeader: regexp.MustCompile(`^Installment\s+(\d+)`),
		parcelPattern:     regexp.MustCompile(`\b(\d{3}-\d{2}-\d{3})\b`),
	}
}

// Parse extracts installments for every tax year on the page.
func (p *SantaClaraParser) Parse(text string, query models.Property) *models.ScrapeResult {
	result := newResult(models.ProviderSantaClara, query)

	parcel := firstSubmatch(p.parcelPattern, text)
	parcelMatched := matchesParcel(text, query)
	addressMatched := matchesAddress(text, query)

	if !parcelMatched && !addressMatched {
		result.Fail(models.CodeParseMismatch, "property not found in search results")
		result.Snapshot = preview(text)

		return result
	}

	result.Success = true
	result.ParcelNumber = parcel

	if addressMatched {
		result.Address = query.Address
	}

	lines := helper.NonEmptyLines(text)

	var (
		year    string
		current *models.RawInstallment
	)

	flush := func() {
		if current != nil && current.Amount != "" {
			result.Installments = append(result.Installments, *current)
		}

		current = nil
	}

	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if m := p.yearHeader.FindStringSubmatch(line); m != nil {
			flush()

			year = m[1]
			if result.TaxYear == "" {
				result.TaxYear = year
			}

			continue
		}

		if m := p.installmentHeader.FindStringSubmatch(line); m != nil {
			flush()

			number, _ := strconv.Atoi(m[1])
			current = &models.RawInstallment{Number: number, TaxYear: year}

			continue
		}

		if current == nil || i+1 >= len(lines) {
			continue
		}

		value := lines[i+1]

		switch line {
		case "Tax Amount":
			if amount, ok := boundedAmount(value, SantaClaraInstallmentMax); ok {
				current.Amount = amount
			}
		case "Additional Charges":
			current.Charges = value
		case "Balance Due":
			current.Balance = value
		case "Pay By Date":
			current.DueDate = value
		case "Status":
			current.Status = value
		case "Last Payment Date":
			if value != "N/A" {
				current.PaymentDate = value
			}

			i++
			flush()

			continue
		default:
			continue
		}

		i++
	}

	flush()

	if len(result.Installments) == 0 {
		result.Notes = append(result.Notes, "no installment blocks found on results page")
	}

	return result
}
