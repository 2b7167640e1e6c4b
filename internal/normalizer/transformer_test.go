package normalizer

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxsync/internal/models"
)

var testNow = time.Date(2026, time.October, 17, 9, 30, 0, 0, time.UTC)

func ptr(v float64) *float64 {
	return &v
}

func TestNormalize_ExplicitRows(t *testing.T) {
	raw := &models.ScrapeResult{
		Success:      true,
		ParcelNumber: "274-15-034",
		TaxYear:      "2025/2026",
		Query:        models.Property{ID: "dana-125", Address: "125 DANA AV SAN JOSE"},
		Installments: []models.RawInstallment{
			{Number: 1, TaxYear: "2025/2026", Amount: "$5,123.45", Charges: "$0.00", Balance: "$0.00", DueDate: "12/10/2025", Status: "PAID"},
			{Number: 2, TaxYear: "2025/2026", Amount: "$5,123.45", Balance: "$5,123.45", DueDate: "04/10/2026", Status: "UNPAID"},
			{Number: 1, TaxYear: "2024/2025", Amount: "$4,900.00", Status: "PAID"},
		},
	}

	rec := Normalize(models.ProviderSantaClara, raw, testNow)

	require.True(t, rec.Success)
	require.NotNil(t, rec.TaxYear)
	assert.Equal(t, 2025, *rec.TaxYear)
	assert.True(t, rec.YearVerified)
	require.NotNil(t, rec.PropertyID)
	assert.Equal(t, "dana-125", *rec.PropertyID)
	assert.Equal(t, "125 DANA AV SAN JOSE", rec.Address)

	want := []models.TaxInstallment{
		{Number: 1, Amount: 5123.45, DueDate: "12/10/2025", Status: models.StatusPaid, Balance: ptr(0), AmountPaid: ptr(5123.45)},
		{Number: 2, Amount: 5123.45, DueDate: "04/10/2026", Status: models.StatusUnpaid, Balance: ptr(5123.45)},
	}
	if diff := cmp.Diff(want, rec.Installments); diff != "" {
		t.Fatal(diff)
	}

	require.NotNil(t, rec.AnnualTax)
	assert.InDelta(t, 10246.90, *rec.AnnualTax, 0.001)
	assert.Contains(t, rec.Notes, NoteAnnualFromRows)
}

func TestNormalize_EvenSplitPutsCentsFirst(t *testing.T) {
	raw := &models.ScrapeResult{
		Success:   true,
		AnnualTax: "1,000.03",
		TaxYear:   "2025",
		Query:     models.Property{Parcel: "028-0123-0045"},
	}

	rec := Normalize(models.ProviderCityHall, raw, testNow)

	require.Len(t, rec.Installments, 4)

	amounts := []float64{}
	dues := []string{}

	for _, inst := range rec.Installments {
		amounts = append(amounts, inst.Amount)
		dues = append(dues, inst.DueDate)
		assert.Equal(t, models.StatusUnknown, inst.Status)
	}

	assert.Equal(t, []float64{250.01, 250.01, 250.01, 250.00}, amounts)
	assert.Equal(t, []string{"07/24/2025", "10/24/2025", "01/24/2026", "04/24/2026"}, dues)
	assert.InDelta(t, 1000.03, rec.InstallmentTotal(), 0.001)
}

func TestNormalize_UnverifiedYear(t *testing.T) {
	raw := &models.ScrapeResult{
		Success:      true,
		ParcelNumber: "186-058-10123",
		AnnualTax:    "6,789.13",
	}

	rec := Normalize(models.ProviderVermontNEMRC, raw, testNow)

	require.NotNil(t, rec.TaxYear)
	assert.Equal(t, 2026, *rec.TaxYear)
	assert.False(t, rec.YearVerified)
	assert.Contains(t, rec.Notes, NoteYearUnverified)

	require.Len(t, rec.Installments, 2)
	assert.Equal(t, 3394.57, rec.Installments[0].Amount)
	assert.Equal(t, 3394.56, rec.Installments[1].Amount)
	assert.Equal(t, "08/15/2026", rec.Installments[0].DueDate)
	assert.Equal(t, "02/15/2027", rec.Installments[1].DueDate)
}

func TestNormalize_PeriodAmountWithOutstanding(t *testing.T) {
	raw := &models.ScrapeResult{
		Success:      true,
		ParcelNumber: "028-0123-0045",
		TaxYear:      "2025",
		PeriodAmount: "1,500.00",
		Details:      map[string]string{"outstanding_installments": "2"},
	}

	rec := Normalize(models.ProviderCityHall, raw, testNow)

	require.Len(t, rec.Installments, 4)

	statuses := []models.InstallmentStatus{}
	for _, inst := range rec.Installments {
		statuses = append(statuses, inst.Status)
		assert.Equal(t, 1500.0, inst.Amount)
	}

	assert.Equal(t, []models.InstallmentStatus{
		models.StatusUnknown, models.StatusUnknown, models.StatusUnpaid, models.StatusUnpaid,
	}, statuses)

	require.NotNil(t, rec.AnnualTax)
	assert.Equal(t, 6000.0, *rec.AnnualTax)
	require.NotNil(t, rec.QuarterlyAmount)
	assert.Equal(t, 1500.0, *rec.QuarterlyAmount)
	assert.Contains(t, rec.Notes, NoteAnnualFromPeriod)
}

func TestNormalize_NYCPaymentHistory(t *testing.T) {
	raw := &models.ScrapeResult{
		Success: true,
		TaxYear: "2026",
		Query:   models.Property{Parcel: "3-2324-1305"},
		Payments: []models.RawPayment{
			{CreditedDate: "09/30/2025", ActivityDate: "10/01/2025", Amount: "2,345.67", TaxYear: "2026"},
			{CreditedDate: "06/28/2025", ActivityDate: "06/30/2025", Amount: "2,345.67", TaxYear: "2026"},
			{CreditedDate: "03/28/2025", ActivityDate: "03/31/2025", Amount: "2,300.00", TaxYear: "2025"},
		},
	}

	rec := Normalize(models.ProviderNYCFinance, raw, testNow)

	require.True(t, rec.Success)
	assert.Equal(t, "3-2324-1305", rec.ParcelNumber)
	require.Len(t, rec.Installments, 2)

	for i, inst := range rec.Installments {
		assert.Equal(t, i+1, inst.Number)
		assert.Equal(t, models.StatusPaid, inst.Status)
		assert.Equal(t, 2345.67, inst.Amount)
	}

	assert.Equal(t, "07/01/2025", rec.Installments[0].DueDate)
	assert.Equal(t, "10/01/2025", rec.Installments[1].DueDate)

	require.NotNil(t, rec.AnnualTax)
	assert.InDelta(t, 4691.34, *rec.AnnualTax, 0.001)
}

func TestNormalize_NYCRangeResolvesToEndingYear(t *testing.T) {
	raw := &models.ScrapeResult{Success: true, ParcelNumber: "3-2324-1305", TaxYear: "2025/2026"}

	rec := Normalize(models.ProviderNYCFinance, raw, testNow)

	require.NotNil(t, rec.TaxYear)
	assert.Equal(t, 2026, *rec.TaxYear)
}

func TestNormalize_SuccessWithoutDataIsDowngraded(t *testing.T) {
	raw := &models.ScrapeResult{
		Success: true,
		Query:   models.Property{Address: "123 Main St"},
	}

	rec := Normalize(models.ProviderVermontAxisGIS, raw, testNow)

	assert.False(t, rec.Success)
	assert.Equal(t, models.CodeParseMismatch, rec.ErrorCode)
	assert.NotEmpty(t, rec.Error)
}

func TestNormalize_FailurePassesThrough(t *testing.T) {
	raw := &models.ScrapeResult{Query: models.Property{ID: "p1", Parcel: "081-025-11151"}}
	raw.Fail(models.CodeElementNotFound, "element not found: #form_for")

	rec := Normalize(models.ProviderVermontAxisGIS, raw, testNow)

	assert.False(t, rec.Success)
	assert.Equal(t, models.CodeElementNotFound, rec.ErrorCode)
	assert.Nil(t, rec.TaxYear)
	assert.NotNil(t, rec.Installments)
	assert.Empty(t, rec.Installments)
	assert.Equal(t, testNow, rec.CapturedAt)
	assert.Same(t, raw, rec.Raw)
}

func TestNormalize_NeverFabricatesAmounts(t *testing.T) {
	raw := &models.ScrapeResult{
		Success:       true,
		ParcelNumber:  "081-025-11151",
		AssessedValue: "not shown",
		TaxYear:       "2025",
	}

	rec := Normalize(models.ProviderVermontAxisGIS, raw, testNow)

	assert.True(t, rec.Success)
	assert.Nil(t, rec.AnnualTax)
	assert.Nil(t, rec.AssessedValue)
	assert.Empty(t, rec.Installments)
}

func TestNormalize_PayloadKeysAlwaysPresent(t *testing.T) {
	raw := &models.ScrapeResult{
		Success:       true,
		AssessedValue: "412,300",
		Query:         models.Property{Parcel: "081-025-11151"},
	}

	rec := Normalize(models.ProviderVermontAxisGIS, raw, testNow)
	require.True(t, rec.Success)
	require.Empty(t, rec.Address)
	require.Empty(t, rec.Owner)

	body, err := json.Marshal(rec)
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(body, &payload))

	for _, key := range []string{
		"provider", "property_id", "parcel_number", "address", "owner", "tax_year", "assessed_value",
		"annual_tax", "quarterly_amount", "installments", "success", "error", "raw_data",
	} {
		assert.Contains(t, payload, key)
	}

	assert.Equal(t, "", payload["owner"])
	assert.Equal(t, "", payload["error"])
	assert.Nil(t, payload["annual_tax"])
}

func TestMapStatus(t *testing.T) {
	tests := map[string]models.InstallmentStatus{
		"PAID":         models.StatusPaid,
		"Paid in full": models.StatusPaid,
		"UNPAID":       models.StatusUnpaid,
		"Past Due":     models.StatusUnpaid,
		"Delinquent":   models.StatusUnpaid,
		"":             models.StatusUnknown,
		"Pending":      models.StatusUnknown,
		"Cancelled":    models.StatusUnknown,
	}

	for input, want := range tests {
		assert.Equal(t, want, MapStatus(input), "MapStatus(%q)", input)
	}
}

func TestCadences(t *testing.T) {
	for _, p := range models.Providers() {
		c, ok := CadenceFor(p)
		require.True(t, ok, "no cadence for %s", p)
		assert.Contains(t, []int{2, 4}, c.Periods(), "cadence for %s", p)
	}
}
