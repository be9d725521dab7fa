// Package core provides money parsing and handling utilities.
//
// Amounts are signed decimals: positive values are income, negative values
// are expenses. Parsing accepts both dot and comma decimal separators.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a decimal string to a signed amount.
//
// It accepts dot (12.34) and comma (12,34) decimal separators, an optional
// leading sign, and thousands separators written as spaces or underscores.
// When both commas and dots appear, the last one is the decimal separator
// and the other is a thousands separator (1,234.56 and 1.234,56).
// Zero is rejected.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("-12,34") -> -12.34, nil
//	ParseAmount("1,234.5") -> 1234.5, nil
//	ParseAmount("0")      -> 0, ErrZeroAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.NewReplacer(" ", "", "_", "").Replace(s)
	switch comma, dot := strings.LastIndex(s, ","), strings.LastIndex(s, "."); {
	case comma >= 0 && dot >= 0 && comma < dot:
		s = strings.ReplaceAll(s, ",", "")
	case comma >= 0 && dot >= 0:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case strings.Count(s, ",") == 1:
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w %q", ErrInvalidAmount, s)
	}
	if d.IsZero() {
		return decimal.Zero, ErrZeroAmount
	}
	return d, nil
}

// FormatAmount renders an amount with two decimals, e.g. "-12.30".
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// EncodeAmount renders an amount for storage without losing precision:
// at least two decimals, more when the value carries them ("0.004").
func EncodeAmount(d decimal.Decimal) string {
	if d.Exponent() < -2 {
		return d.String()
	}
	return d.StringFixed(2)
}
