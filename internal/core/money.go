// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing user-entered amounts and
// formatting them for display.
package core

import (
	"errors"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

// ParseAmount converts a decimal string to a positive amount.
//
// The decimal separator is a dot. Commas are digit group separators in the
// integer part, so the text FormatCurrency prints parses back.
// Signs, exponents and non-positive values are rejected.
//
// Examples:
//
//	ParseAmount("150")      -> 150, nil
//	ParseAmount("1,50,000") -> 150000, nil
//	ParseAmount("-1")       -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.TrimPrefix(s, "₹")
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	intPart, _, _ := strings.Cut(s, ".")
	if strings.Contains(s[len(intPart):], ",") {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.Contains(intPart, ",") {
		if strings.HasPrefix(intPart, ",") || strings.HasSuffix(intPart, ",") || strings.Contains(intPart, ",,") {
			return decimal.Zero, ErrInvalidAmount
		}
		s = strings.ReplaceAll(s, ",", "")
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	if s == "." {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatCurrency renders an amount as whole rupees with Indian digit grouping,
// e.g. 150000 -> "₹1,50,000" and -150 -> "-₹150".
func FormatCurrency(amount decimal.Decimal) string {
	rounded := amount.Round(0)
	neg := rounded.IsNegative()
	digits := rounded.Abs().String()

	var grouped string
	if len(digits) <= 3 {
		grouped = digits
	} else {
		head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
		var parts []string
		for len(head) > 2 {
			parts = append([]string{head[len(head)-2:]}, parts...)
			head = head[:len(head)-2]
		}
		if head != "" {
			parts = append([]string{head}, parts...)
		}
		grouped = strings.Join(parts, ",") + "," + tail
	}

	if neg {
		return "-₹" + grouped
	}
	return "₹" + grouped
}
