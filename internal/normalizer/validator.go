package normalizer

import (
	"errors"
	"fmt"
	"math"

	"taxsync/internal/models"
)

// Integrity errors. They describe records a consumer may want to flag; the
// pipeline reports them but still delivers the record.
var (
	ErrNilRecord              = errors.New("record is nil")
	ErrEmptySuccess           = errors.New("successful record carries no annual tax, assessed value or parcel")
	ErrInstallmentSequence    = errors.New("installment numbers must run 1..n without gaps")
	ErrNegativeAmount         = errors.New("installment amount is negative")
	ErrInstallmentSumMismatch = errors.New("installments do not sum to annual tax")
	ErrMissingErrorMessage    = errors.New("failed record has no error message")
)

// Validator checks canonical records for internal consistency.
type Validator struct {
	// centsTolerance is the allowed sum drift per installment.
	centsTolerance float64
}

// NewValidator creates a new validator instance.
func NewValidator() *Validator {
	return &Validator{centsTolerance: 0.01}
}

// Validate returns every integrity problem in rec joined into one error.
func (v *Validator) Validate(rec *models.TaxRecord) error {
	if rec == nil {
		return ErrNilRecord
	}

	var errs []error

	if rec.Success && !rec.HasData() {
		errs = append(errs, ErrEmptySuccess)
	}

	if !rec.Success && rec.Error == "" {
		errs = append(errs, ErrMissingErrorMessage)
	}

	for i, inst := range rec.Installments {
		if inst.Number != i+1 {
			errs = append(errs, fmt.Errorf("%w: position %d has number %d", ErrInstallmentSequence, i+1, inst.Number))

			break
		}
	}

	for _, inst := range rec.Installments {
		if inst.Amount < 0 {
			errs = append(errs, fmt.Errorf("%w: installment %d", ErrNegativeAmount, inst.Number))
		}
	}

	if rec.AnnualTax != nil && len(rec.Installments) > 0 {
		total := rec.InstallmentTotal()
		allowed := v.centsTolerance*float64(len(rec.Installments)) + 1e-9

		if math.Abs(total-*rec.AnnualTax) > allowed {
			errs = append(errs, fmt.Errorf("%w: %.2f vs %.2f", ErrInstallmentSumMismatch, total, *rec.AnnualTax))
		}
	}

	return errors.Join(errs...)
}
