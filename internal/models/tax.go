package models

import "time"

// InstallmentStatus is the payment status of one installment.
type InstallmentStatus string

// Installment statuses.
const (
	StatusPaid    InstallmentStatus = "paid"
	StatusUnpaid  InstallmentStatus = "unpaid"
	StatusUnknown InstallmentStatus = "unknown"
)

// TaxInstallment is one payable unit within a tax year.
type TaxInstallment struct {
	AmountPaid *float64          `json:"amount_paid,omitempty"`
	Balance    *float64          `json:"balance,omitempty"`
	DueDate    string            `json:"due_date,omitempty"`
	Status     InstallmentStatus `json:"status"`
	Number     int               `json:"installment_number"`
	Amount     float64           `json:"amount"`
}

// TaxRecord is the canonical, provider-agnostic record handed to the callback.
// Its JSON form is the callback payload.
type TaxRecord struct {
	CapturedAt      time.Time        `json:"captured_at"`
	TaxYear         *int             `json:"tax_year"`
	AssessedValue   *float64         `json:"assessed_value"`
	MarketValue     *float64         `json:"market_value,omitempty"`
	AnnualTax       *float64         `json:"annual_tax"`
	QuarterlyAmount *float64         `json:"quarterly_amount"`
	Raw             *ScrapeResult    `json:"raw_data"`
	PropertyID      *string          `json:"property_id"`
	Provider        Provider         `json:"provider"`
	ParcelNumber    string           `json:"parcel_number"`
	Address         string           `json:"address"`
	Owner           string           `json:"owner"`
	Error           string           `json:"error"`
	ErrorCode       ErrorCode        `json:"error_code,omitempty"`
	Installments    []TaxInstallment `json:"installments"`
	Notes           []string         `json:"notes,omitempty"`
	YearVerified    bool             `json:"year_verified"`
	Success         bool             `json:"success"`
}

// HasData reports whether any identifying or monetary field is populated.
func (r *TaxRecord) HasData() bool {
	return r.AnnualTax != nil || r.AssessedValue != nil || r.ParcelNumber != ""
}

// InstallmentTotal sums the installment amounts.
func (r *TaxRecord) InstallmentTotal() float64 {
	total := 0.0
	for _, inst := range r.Installments {
		total += inst.Amount
	}

	return total
}
