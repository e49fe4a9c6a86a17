package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"150", "150", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,500", "1500", true},
		{"1,50,000", "150000", true},
		{"₹12,34,567.50", "1234567.5", true},
		{"12,34", "1234", true},
		{"0.01", "0.01", true},
		{" 2.50 ", "2.5", true},
		{".5", "0.5", true},
		{"-1", "", false},
		{"+1", "", false},
		{"0", "", false},
		{"0.00", "", false},
		{"abc", "", false},
		{"1e3", "", false},
		{"1.2.3", "", false},
		{".", "", false},
		{",500", "", false},
		{"1,,500", "", false},
		{"1500,", "", false},
		{"1.5,0", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestParseAmountReadsFormattedCurrency(t *testing.T) {
	for _, in := range []string{"150", "150000", "1234567"} {
		want := decimal.RequireFromString(in)
		got, err := ParseAmount(FormatCurrency(want))
		if err != nil || !got.Equal(want) {
			t.Fatalf("ParseAmount(FormatCurrency(%s)) = %s, %v", in, got, err)
		}
	}
}

func TestFormatCurrency(t *testing.T) {
	cases := []struct {
		in  string
		out string
	}{
		{"0", "₹0"},
		{"150", "₹150"},
		{"999.6", "₹1,000"},
		{"150000", "₹1,50,000"},
		{"1234567", "₹12,34,567"},
		{"-150", "-₹150"},
	}
	for _, tc := range cases {
		if got := FormatCurrency(decimal.RequireFromString(tc.in)); got != tc.out {
			t.Fatalf("FormatCurrency(%s) = %q, want %q", tc.in, got, tc.out)
		}
	}
}
