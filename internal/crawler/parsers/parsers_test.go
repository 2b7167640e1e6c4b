package parsers

import (
	"errors"
	"strings"
	"testing"

	"taxsync/internal/models"
)

var (
	_ TextParser = (*SantaClaraParser)(nil)
	_ TextParser = (*CityHallParser)(nil)
	_ TextParser = (*NEMRCParser)(nil)
	_ TextParser = (*AxisGISParser)(nil)
	_ TextParser = (*NYCParser)(nil)
)

const sccFixture = `Secured Property Tax
Parcel 274-15-034
125 DANA AV SAN JOSE
2025/2026 Annual Tax Bill
Installment 1
Tax Amount
$5,123.45
Additional Charges
$0.00
Balance Due
$0.00
Pay By Date
12/10/2025
Status
PAID
Last Payment Date
12/01/2025
Installment 2
Tax Amount
$5,123.45
Balance Due
$5,123.45
Pay By Date
04/10/2026
Status
UNPAID
Last Payment Date
N/A
2024/2025 Annual Tax Bill
Installment 1
Tax Amount
$4,900.00
Status
PAID
Last Payment Date
12/02/2024`

func TestSantaClaraParser_Parse(t *testing.T) {
	p := NewSantaClaraParser()
	query := models.Property{Address: "125 DANA AV SAN JOSE", Parcel: "274-15-034"}

	result := p.Parse(sccFixture, query)

	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}

	if result.ParcelNumber != "274-15-034" {
		t.Errorf("ParcelNumber = %q", result.ParcelNumber)
	}

	if result.TaxYear != "2025/2026" {
		t.Errorf("TaxYear = %q, want 2025/2026", result.TaxYear)
	}

	if len(result.Installments) != 3 {
		t.Fatalf("expected 3 installments, got %d", len(result.Installments))
	}

	first := result.Installments[0]
	if first.Number != 1 || first.Amount != "$5,123.45" || first.Status != "PAID" || first.PaymentDate != "12/01/2025" {
		t.Errorf("unexpected first installment: %+v", first)
	}

	second := result.Installments[1]
	if second.Number != 2 || second.DueDate != "04/10/2026" || second.PaymentDate != "" {
		t.Errorf("unexpected second installment: %+v", second)
	}

	if result.Installments[2].TaxYear != "2024/2025" {
		t.Errorf("third installment year = %q", result.Installments[2].TaxYear)
	}
}

func TestSantaClaraParser_NotFound(t *testing.T) {
	p := NewSantaClaraParser()
	query := models.Property{Address: "125 DANA AV SAN JOSE", Parcel: "274-15-034"}

	result := p.Parse("No records found", query)

	if result.Success {
		t.Fatal("expected failure")
	}

	if result.ErrorCode != models.CodeParseMismatch {
		t.Errorf("ErrorCode = %q", result.ErrorCode)
	}

	if result.Snapshot != "No records found" {
		t.Errorf("Snapshot = %q", result.Snapshot)
	}
}

func TestCityHallParser_Parse(t *testing.T) {
	text := `2025 REAL ESTATE TAX
2025 12345 SMITH JOHN 028-0123-0045 88 WILLIAMS ST, PROVIDENCE RI
Due 07/24/2025: $ 1,500.00
Due 10/24/2025: $ 1,500.00
Full Balance: $ 3,000.00`

	p := NewCityHallParser()
	result := p.Parse(text, models.Property{Address: "88 Williams St"})

	if !result.Success {
		t.Fatalf("expected success, got %q", result.Error)
	}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"parcel", result.ParcelNumber, "028-0123-0045"},
		{"address", result.Address, "88 WILLIAMS ST, Providence"},
		{"owner", result.Owner, "SMITH JOHN"},
		{"period amount", result.PeriodAmount, "1,500.00"},
		{"next due", result.NextDueDate, "07/24/2025"},
		{"balance", result.Balance, "3,000.00"},
		{"tax year", result.TaxYear, "2025"},
		{"outstanding", result.Details["outstanding_installments"], "2"},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestCityHallParser_RejectsImplausibleDue(t *testing.T) {
	text := `028-0123-0045 88 WILLIAMS ST, PROVIDENCE
Due 07/24/2025: $ 250,000.00
Due 10/24/2025: $ 1,500.00`

	result := NewCityHallParser().Parse(text, models.Property{Address: "88 Williams St"})

	if result.PeriodAmount != "1,500.00" || result.NextDueDate != "10/24/2025" {
		t.Errorf("got %q due %q, want the plausible line", result.PeriodAmount, result.NextDueDate)
	}
}

func TestNEMRCParser_Parse(t *testing.T) {
	text := `SPAN: 186-058-10123
Parcel ID: 05-010-000
Owner: DOE JANE & JOHN
Location: 2055 SUNSET LAKE RD
Land: $85,000
Building: $215,400
Total: $300,400
Tax: $6,789.12`

	result := NewNEMRCParser().Parse(text, models.Property{Address: "2055 Sunset Lake Rd"})

	if !result.Success {
		t.Fatalf("expected success, got %q", result.Error)
	}

	if result.ParcelNumber != "186-058-10123" {
		t.Errorf("ParcelNumber = %q", result.ParcelNumber)
	}

	if result.Owner != "DOE JANE & JOHN" {
		t.Errorf("Owner = %q", result.Owner)
	}

	if result.Address != "2055 SUNSET LAKE RD" {
		t.Errorf("Address = %q", result.Address)
	}

	if result.AssessedValue != "300,400" || result.AnnualTax != "6,789.12" {
		t.Errorf("values = %q / %q", result.AssessedValue, result.AnnualTax)
	}

	if result.Details["land_value"] != "85,000" || result.Details["building_value"] != "215,400" {
		t.Errorf("details = %v", result.Details)
	}

	if len(result.Notes) != 0 {
		t.Errorf("unexpected notes: %v", result.Notes)
	}
}

func TestNEMRCParser_NoTaxAddsNote(t *testing.T) {
	text := "SPAN: 186-058-10123\nTotal: $300,400"

	result := NewNEMRCParser().Parse(text, models.Property{Address: "2055 Sunset Lake Rd"})

	if !result.Success || result.AnnualTax != "" {
		t.Fatalf("unexpected result: %+v", result)
	}

	if len(result.Notes) != 1 {
		t.Errorf("expected a note about missing tax, got %v", result.Notes)
	}
}

func TestAxisGISParser_Parse(t *testing.T) {
	text := "Parcel ID 081-025-11151\nLocation 123 MAIN ST\nAssessed Value: $412,300"

	result := NewAxisGISParser().Parse(text, models.Property{Parcel: "081-025-11151"})

	if !result.Success {
		t.Fatalf("expected success, got %q", result.Error)
	}

	if result.ParcelNumber != "081-025-11151" {
		t.Errorf("ParcelNumber = %q", result.ParcelNumber)
	}

	if result.AssessedValue != "412,300" {
		t.Errorf("AssessedValue = %q", result.AssessedValue)
	}

	missing := NewAxisGISParser().Parse("Search the map", models.Property{Parcel: "081-025-11151"})
	if missing.Success || missing.ErrorCode != models.CodeParseMismatch {
		t.Errorf("expected parse mismatch, got %+v", missing)
	}
}

func TestNYCParser_Parse(t *testing.T) {
	text := `Property Tax Payment History
BBL: 3-02324-1305
06/28/2025 06/30/2025 -$2,345.67 2026
03/28/2025 03/31/2025 -$2,300.00 2025`

	result := NewNYCParser().Parse(text, models.Property{Parcel: "3-2324-1305"})

	if !result.Success {
		t.Fatalf("expected success, got %q", result.Error)
	}

	if len(result.Payments) != 2 {
		t.Fatalf("expected 2 payments, got %d", len(result.Payments))
	}

	if result.Payments[0].Amount != "2,345.67" || result.Payments[0].TaxYear != "2026" {
		t.Errorf("unexpected payment: %+v", result.Payments[0])
	}

	if result.TaxYear != "2026" {
		t.Errorf("TaxYear = %q", result.TaxYear)
	}

	if result.Details["pin"] != "3023241305" || result.Details["borough"] != "Brooklyn" {
		t.Errorf("details = %v", result.Details)
	}
}

func TestNYCParser_NoHistory(t *testing.T) {
	result := NewNYCParser().Parse("Datalet unavailable", models.Property{Parcel: "3-2324-1305"})

	if result.Success {
		t.Fatal("expected failure")
	}

	if result.ErrorCode != models.CodeParseMismatch {
		t.Errorf("ErrorCode = %q", result.ErrorCode)
	}
}

func TestNYCParser_ParseBill_RoundTrip(t *testing.T) {
	text := "Quarterly Property Tax Bill\nAmount Due: $1,234.56\nDue Date: 07/24/2026\n"

	bill := NewNYCParser().ParseBill(text)

	if bill.Amount != 1234.56 {
		t.Errorf("Amount = %v, want 1234.56", bill.Amount)
	}

	if bill.DueDate != "07/24/2026" {
		t.Errorf("DueDate = %q, want 07/24/2026", bill.DueDate)
	}

	result := &models.ScrapeResult{}
	ApplyBill(result, bill)

	if result.PeriodAmount != "1,234.56" || result.NextDueDate != "07/24/2026" {
		t.Errorf("ApplyBill gave %q / %q", result.PeriodAmount, result.NextDueDate)
	}
}

func TestNYCParser_ParseBill_Details(t *testing.T) {
	text := `2025/2026 Statement of Account
Quarter 3
421-a Abatement applied
Assessed Value: $64,350
Market Value: $1,430,000
Total Due: $2,011.00`

	bill := NewNYCParser().ParseBill(text)

	if bill.Amount != 2011 {
		t.Errorf("Amount = %v", bill.Amount)
	}

	if bill.Quarter != 3 {
		t.Errorf("Quarter = %d", bill.Quarter)
	}

	if !bill.HasAbatement || bill.AbatementType != "421-a" {
		t.Errorf("abatement = %v %q", bill.HasAbatement, bill.AbatementType)
	}

	if bill.AssessedValue != "64,350" || bill.MarketValue != "1,430,000" {
		t.Errorf("values = %q / %q", bill.AssessedValue, bill.MarketValue)
	}

	if bill.TaxYear != "2025/2026" {
		t.Errorf("TaxYear = %q", bill.TaxYear)
	}
}

func TestParseBBL(t *testing.T) {
	tests := []struct {
		input   string
		pin     string
		wantErr bool
	}{
		{"3-2324-1305", "3023241305", false},
		{"3023241305", "3023241305", false},
		{"1 100 25", "1001000025", false},
		{"6-2324-1305", "", true},
		{"3-2324", "", true},
		{"abc", "", true},
	}

	for _, tt := range tests {
		bbl, err := ParseBBL(tt.input)

		if tt.wantErr {
			if !errors.Is(err, ErrInvalidBBL) {
				t.Errorf("ParseBBL(%q) error = %v, want ErrInvalidBBL", tt.input, err)
			}

			continue
		}

		if err != nil {
			t.Errorf("ParseBBL(%q) unexpected error: %v", tt.input, err)

			continue
		}

		if got := bbl.PIN(); got != tt.pin {
			t.Errorf("ParseBBL(%q).PIN() = %q, want %q", tt.input, got, tt.pin)
		}
	}
}

func TestMatchesAddressUsesHouseNumberAndStreet(t *testing.T) {
	query := models.Property{Address: "125 Dana Av San Jose"}

	if !matchesAddress("RESULTS\n125   DANA AVENUE", query) {
		t.Error("expected match on house number and first street word")
	}

	if matchesAddress("126 DANA AV", query) {
		t.Error("unexpected match on a different house number")
	}
}

func TestPreviewTruncates(t *testing.T) {
	got := preview(strings.Repeat("x", 1200))

	if len(got) != 1003 || !strings.HasSuffix(got, "...") {
		t.Errorf("preview length = %d", len(got))
	}
}
