package models

import "time"

// RawInstallment is one installment row exactly as a portal printed it.
type RawInstallment struct {
	Number      int    `json:"number"`
	TaxYear     string `json:"tax_year,omitempty"`
	Amount      string `json:"amount,omitempty"`
	Charges     string `json:"additional_charges,omitempty"`
	Balance     string `json:"balance_due,omitempty"`
	DueDate     string `json:"due_date,omitempty"`
	Status      string `json:"status,omitempty"`
	PaymentDate string `json:"payment_date,omitempty"`
}

// RawPayment is one row of a portal's payment history.
type RawPayment struct {
	CreditedDate string `json:"credited_date"`
	ActivityDate string `json:"activity_date"`
	Amount       string `json:"amount"`
	TaxYear      string `json:"tax_year"`
}

// ScrapeResult is the jurisdiction-specific output of one adapter run.
// Monetary fields hold the text as scraped; the normalizer converts them.
type ScrapeResult struct {
	ScrapedAt     time.Time         `json:"scraped_at"`
	Details       map[string]string `json:"details,omitempty"`
	Provider      Provider          `json:"provider"`
	Query         Property          `json:"query"`
	ParcelNumber  string            `json:"parcel_number,omitempty"`
	Address       string            `json:"address,omitempty"`
	Owner         string            `json:"owner,omitempty"`
	TaxYear       string            `json:"tax_year,omitempty"`
	AssessedValue string            `json:"assessed_value,omitempty"`
	MarketValue   string            `json:"market_value,omitempty"`
	AnnualTax     string            `json:"annual_tax,omitempty"`
	PeriodAmount  string            `json:"period_amount,omitempty"`
	NextDueDate   string            `json:"next_due_date,omitempty"`
	Balance       string            `json:"balance,omitempty"`
	Abatement     string            `json:"abatement,omitempty"`
	Snapshot      string            `json:"page_preview,omitempty"`
	SnapshotPath  string            `json:"snapshot_path,omitempty"`
	Error         string            `json:"error,omitempty"`
	ErrorCode     ErrorCode         `json:"error_code,omitempty"`
	Installments  []RawInstallment  `json:"installments,omitempty"`
	Payments      []RawPayment      `json:"payments,omitempty"`
	Notes         []string          `json:"notes,omitempty"`
	Success       bool              `json:"success"`
}

// SetDetail records a jurisdiction-specific value, ignoring empty values.
func (r *ScrapeResult) SetDetail(key, value string) {
	if value == "" {
		return
	}

	if r.Details == nil {
		r.Details = make(map[string]string)
	}

	r.Details[key] = value
}

// Fail marks the result as failed with the given code and message.
func (r *ScrapeResult) Fail(code ErrorCode, message string) {
	r.Success = false
	r.ErrorCode = code
	r.Error = message
}
