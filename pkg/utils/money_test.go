package utils

import "testing"

func TestParseCurrency(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   float64
		wantOK bool
	}{
		{"plain", "1234.56", 1234.56, true},
		{"dollar and commas", "$1,234.56", 1234.56, true},
		{"dollar with space", "$ 12,001.00", 12001, true},
		{"leading minus", "-$4,210.11", -4210.11, true},
		{"trailing minus", "310.00-", -310, true},
		{"parentheses", "($15.00)", -15, true},
		{"whole number", "450,000", 450000, true},
		{"empty", "", 0, false},
		{"only symbol", "$", 0, false},
		{"text", "N/A", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseCurrency(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ParseCurrency(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}

			if got != tt.want {
				t.Errorf("ParseCurrency(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestRoundCents(t *testing.T) {
	if got := RoundCents(1234.5649); got != 1234.56 {
		t.Errorf("Expected 1234.56, got %v", got)
	}

	if got := RoundCents(0.125); got != 0.13 {
		t.Errorf("Expected 0.13, got %v", got)
	}
}

func TestWithinBounds(t *testing.T) {
	if !WithinBounds(10, 0, 100) {
		t.Error("Expected 10 to be within (0, 100)")
	}

	if WithinBounds(0, 0, 100) {
		t.Error("Expected lower bound to be exclusive")
	}

	if WithinBounds(100, 0, 100) {
		t.Error("Expected upper bound to be exclusive")
	}
}

func TestStringHelper_NonEmptyLines(t *testing.T) {
	h := NewStringHelper()

	lines := h.NonEmptyLines("  Tax Amount \r\n\n $1,200.00\n   \nStatus")
	want := []string{"Tax Amount", "$1,200.00", "Status"}

	if len(lines) != len(want) {
		t.Fatalf("Expected %d lines, got %d: %v", len(want), len(lines), lines)
	}

	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: expected %q, got %q", i, want[i], lines[i])
		}
	}
}

func TestStringHelper_ContainsFold(t *testing.T) {
	h := NewStringHelper()

	if !h.ContainsFold("Results for 125  dana av san jose", "125 DANA") {
		t.Error("Expected case- and space-insensitive match")
	}

	if h.ContainsFold("88 WILLIAMS ST", "125 DANA") {
		t.Error("Expected no match")
	}
}

func TestHTTPHelper_IsValidURL(t *testing.T) {
	h := NewHTTPHelper()

	if !h.IsValidURL("https://example.com/api/taxes/sync/callback") {
		t.Error("Expected https URL to be valid")
	}

	if h.IsValidURL("localhost:3000") {
		t.Error("Expected URL without scheme to be invalid")
	}

	if h.IsValidURL("ftp://example.com") {
		t.Error("Expected non-http scheme to be invalid")
	}
}
