package normalizer

import (
	"errors"
	"testing"

	"taxsync/internal/models"
)

func TestValidator_Validate(t *testing.T) {
	v := NewValidator()

	valid := &models.TaxRecord{
		Success:      true,
		ParcelNumber: "274-15-034",
		AnnualTax:    ptr(100.00),
		Installments: []models.TaxInstallment{
			{Number: 1, Amount: 50.00},
			{Number: 2, Amount: 50.00},
		},
	}

	if err := v.Validate(valid); err != nil {
		t.Errorf("Validate returned unexpected error for valid record: %v", err)
	}
}

func TestValidator_Validate_Errors(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name    string
		record  *models.TaxRecord
		wantErr error
	}{
		{
			name:    "nil record",
			record:  nil,
			wantErr: ErrNilRecord,
		},
		{
			name:    "empty success",
			record:  &models.TaxRecord{Success: true},
			wantErr: ErrEmptySuccess,
		},
		{
			name:    "failure without message",
			record:  &models.TaxRecord{},
			wantErr: ErrMissingErrorMessage,
		},
		{
			name: "numbering gap",
			record: &models.TaxRecord{
				Success:      true,
				ParcelNumber: "x",
				Installments: []models.TaxInstallment{{Number: 1}, {Number: 3}},
			},
			wantErr: ErrInstallmentSequence,
		},
		{
			name: "numbering starts at zero",
			record: &models.TaxRecord{
				Success:      true,
				ParcelNumber: "x",
				Installments: []models.TaxInstallment{{Number: 0}},
			},
			wantErr: ErrInstallmentSequence,
		},
		{
			name: "negative amount",
			record: &models.TaxRecord{
				Success:      true,
				ParcelNumber: "x",
				Installments: []models.TaxInstallment{{Number: 1, Amount: -5}},
			},
			wantErr: ErrNegativeAmount,
		},
		{
			name: "sum mismatch",
			record: &models.TaxRecord{
				Success:      true,
				AnnualTax:    ptr(100.00),
				Installments: []models.TaxInstallment{{Number: 1, Amount: 50}, {Number: 2, Amount: 49}},
			},
			wantErr: ErrInstallmentSumMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.record)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidator_SumWithinRounding(t *testing.T) {
	v := NewValidator()

	rec := &models.TaxRecord{
		Success:   true,
		AnnualTax: ptr(100.00),
		Installments: []models.TaxInstallment{
			{Number: 1, Amount: 33.33},
			{Number: 2, Amount: 33.33},
			{Number: 3, Amount: 33.33},
		},
	}

	if err := v.Validate(rec); err != nil {
		t.Errorf("one cent per installment should be tolerated: %v", err)
	}
}
