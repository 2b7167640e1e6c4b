package utils

import (
	"math"
	"strconv"
	"strings"
)

// ParseCurrency converts scraped currency text such as "$ 1,234.56" into a number.
// A leading or trailing minus, or accounting parentheses, make the value negative.
// It returns false when no number can be read.
func ParseCurrency(text string) (float64, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0, false
	}

	negative := false

	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	if strings.HasSuffix(s, "-") {
		negative = true
		s = strings.TrimSuffix(s, "-")
	}

	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "-") {
		negative = true
		s = strings.TrimPrefix(s, "-")
	}

	s = strings.NewReplacer("$", "", ",", "", " ", "", " ", "", "\t", "").Replace(s)
	if s == "" {
		return 0, false
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}

	if negative {
		value = -value
	}

	return value, true
}

// RoundCents rounds to two decimal places.
func RoundCents(value float64) float64 {
	return math.Round(value*100) / 100
}

// WithinBounds reports whether value lies in the open interval (lo, hi).
func WithinBounds(value, lo, hi float64) bool {
	return value > lo && value < hi
}
